package service

import (
	"context"

	"go-gin-microblog/internal/domain"
)

type FeedService struct {
	posts domain.MicropostRepository
	users domain.UserRepository
}

func NewFeedService(posts domain.MicropostRepository, users domain.UserRepository) *FeedService {
	return &FeedService{posts: posts, users: users}
}

// Feed 首页信息流：自己 + 关注对象的微博，最新在前
func (s *FeedService) Feed(ctx context.Context, userID string, offset, limit int) ([]domain.Micropost, int64, error) {
	return s.posts.Feed(ctx, userID, offset, limit)
}

// UserPosts 某个用户主页的微博列表
func (s *FeedService) UserPosts(ctx context.Context, userID string, offset, limit int) ([]domain.Micropost, int64, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if u == nil {
		return nil, 0, domain.ErrUserNotFound
	}
	return s.posts.ListByUser(ctx, userID, offset, limit)
}
