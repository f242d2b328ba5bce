package service

import (
	"context"

	"go-gin-microblog/internal/core/database"
	"go-gin-microblog/internal/domain"
)

type RelationshipService struct {
	rels  domain.RelationshipRepository
	users domain.UserRepository
}

func NewRelationshipService(rels domain.RelationshipRepository, users domain.UserRepository) *RelationshipService {
	return &RelationshipService{rels: rels, users: users}
}

// Follow 应用层先查边，存储层唯一索引兜底：
// 并发下两个请求都过了预检，第二个 insert 撞唯一索引，按“已在关注”算成功
func (s *RelationshipService) Follow(ctx context.Context, followerID, followedID string) error {
	if followerID == followedID {
		return domain.ErrSelfFollow
	}
	target, err := s.users.FindByID(ctx, followedID)
	if err != nil {
		return err
	}
	if target == nil {
		return domain.ErrUserNotFound
	}

	following, err := s.rels.Exists(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	if following {
		return nil
	}
	err = s.rels.Create(ctx, &domain.Relationship{FollowerID: followerID, FollowedID: followedID})
	if database.IsDupKey(err) {
		return nil
	}
	return err
}

// Unfollow 边不存在时为 no-op
func (s *RelationshipService) Unfollow(ctx context.Context, followerID, followedID string) error {
	return s.rels.Delete(ctx, followerID, followedID)
}

func (s *RelationshipService) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	return s.rels.Exists(ctx, followerID, followedID)
}

func (s *RelationshipService) FollowedUsers(ctx context.Context, userID string, offset, limit int) ([]domain.User, int64, error) {
	return s.rels.FollowedUsers(ctx, userID, offset, limit)
}

func (s *RelationshipService) Followers(ctx context.Context, userID string, offset, limit int) ([]domain.User, int64, error) {
	return s.rels.Followers(ctx, userID, offset, limit)
}
