package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

const MicropostMaxLen = 140

type Micropost struct {
	ID      string `gorm:"primaryKey;type:varchar(32)"`
	UserID  string `gorm:"size:32;not null;index"`
	Content string `gorm:"size:140;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (Micropost) TableName() string { return "microposts" }

func (m *Micropost) Validate() ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(m.Content) == "" {
		errs = errs.Add("content", "can't be blank")
	} else if utf8.RuneCountInString(m.Content) > MicropostMaxLen { // 按字符数，不是字节数
		errs = errs.Add("content", "is too long (maximum is 140 characters)")
	}
	return errs
}

type MicropostRepository interface {
	Create(ctx context.Context, m *Micropost) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Micropost, int64, error)
	// Feed 自己 + 关注对象的微博，单条集合查询，按创建时间倒序
	Feed(ctx context.Context, userID string, offset, limit int) ([]Micropost, int64, error)
}
