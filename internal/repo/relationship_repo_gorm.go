package repo

import (
	"context"

	"gorm.io/gorm"

	"go-gin-microblog/internal/domain"
)

type RelationshipRepo struct{ db *gorm.DB }

func NewRelationshipRepo(db *gorm.DB) *RelationshipRepo { return &RelationshipRepo{db: db} }

// Create 唯一索引冲突原样抛出，由 service 层判 dup-key 转为“已在关注”
func (r *RelationshipRepo) Create(ctx context.Context, rel *domain.Relationship) error {
	return r.db.WithContext(ctx).Create(rel).Error
}

func (r *RelationshipRepo) Delete(ctx context.Context, followerID, followedID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&domain.Relationship{}).Error
}

func (r *RelationshipRepo) Exists(ctx context.Context, followerID, followedID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Relationship{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	return n > 0, err
}

// FollowedUsers 我关注的人，按建边顺序（relationships.id 升序）
func (r *RelationshipRepo) FollowedUsers(ctx context.Context, userID string, offset, limit int) ([]domain.User, int64, error) {
	return r.joined(ctx, "followed_id", "follower_id", userID, offset, limit)
}

// Followers 关注我的人
func (r *RelationshipRepo) Followers(ctx context.Context, userID string, offset, limit int) ([]domain.User, int64, error) {
	return r.joined(ctx, "follower_id", "followed_id", userID, offset, limit)
}

func (r *RelationshipRepo) joined(ctx context.Context, selectCol, whereCol, userID string, offset, limit int) ([]domain.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Relationship{}).
		Where(whereCol+" = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []domain.User
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Joins("JOIN relationships ON relationships."+selectCol+" = users.id").
		Where("relationships."+whereCol+" = ?", userID).
		Order("relationships.id ASC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	return users, total, err
}
