package domain

import (
	"context"
	"time"
)

// Relationship 有向关注边 follower -> followed
// (follower_id, followed_id) 复合唯一索引在存储层兜底并发重复关注
type Relationship struct {
	ID         uint   `gorm:"primaryKey"`
	FollowerID string `gorm:"size:32;not null;index;uniqueIndex:idx_follower_followed"`
	FollowedID string `gorm:"size:32;not null;index;uniqueIndex:idx_follower_followed"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Relationship) TableName() string { return "relationships" }

type RelationshipRepository interface {
	Create(ctx context.Context, r *Relationship) error
	// Delete 边不存在时为 no-op
	Delete(ctx context.Context, followerID, followedID string) error
	Exists(ctx context.Context, followerID, followedID string) (bool, error)
	// 列表按边的插入顺序（边 id 升序），分页
	FollowedUsers(ctx context.Context, userID string, offset, limit int) ([]User, int64, error)
	Followers(ctx context.Context, userID string, offset, limit int) ([]User, int64, error)
}
