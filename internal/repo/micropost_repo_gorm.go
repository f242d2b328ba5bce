package repo

import (
	"context"

	"gorm.io/gorm"

	"go-gin-microblog/internal/domain"
)

type MicropostRepo struct{ db *gorm.DB }

func NewMicropostRepo(db *gorm.DB) *MicropostRepo { return &MicropostRepo{db: db} }

func (r *MicropostRepo) Create(ctx context.Context, m *domain.Micropost) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MicropostRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Micropost, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Micropost{}).Where("user_id = ?", userID)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []domain.Micropost
	err := tx.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&posts).Error
	return posts, total, err
}

// Feed 自己 + 关注对象的微博。必须是单条集合查询（author ∈ {user} ∪ followed），
// 不允许按关注对象逐个查询，否则往返次数随关注数线性增长
func (r *MicropostRepo) Feed(ctx context.Context, userID string, offset, limit int) ([]domain.Micropost, int64, error) {
	followedIDs := r.db.Model(&domain.Relationship{}).
		Select("followed_id").
		Where("follower_id = ?", userID)

	tx := r.db.WithContext(ctx).Model(&domain.Micropost{}).
		Where("user_id = ? OR user_id IN (?)", userID, followedIDs)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []domain.Micropost
	err := tx.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&posts).Error
	return posts, total, err
}
