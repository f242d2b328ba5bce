package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// 与表单校验保持一致的邮箱格式（大小写不敏感）
var emailRe = regexp.MustCompile(`(?i)^[\w+\-.]+@[a-z\d\-.]+\.[a-z]+$`)

const (
	NameMaxLen     = 64
	EmailMaxLen    = 128
	PasswordMinLen = 6
)

type User struct {
	ID           string `gorm:"primaryKey;type:varchar(32)"`
	Name         string `gorm:"size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"` // 入库前必须已转小写
	PasswordHash string `gorm:"size:100;not null"`

	// 持久登录 cookie 只存令牌摘要
	RememberDigest string `gorm:"size:64;not null"`

	// nil 表示已完成邮箱确认
	ConfirmationHash *string `gorm:"size:64;uniqueIndex"`
	// 仅在重置流程进行中非 nil，用完即清
	PasswordResetHash *string `gorm:"size:64;index"`

	Admin bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) Confirmed() bool { return u.ConfirmationHash == nil }

func (u *User) Role() string {
	if u.Admin {
		return "admin"
	}
	return "user"
}

// NormalizeEmail 邮箱统一小写（代替框架 before_save 钩子，由 create/update 显式调用）
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate 校验 name/email 基本规则，返回逐字段错误
func (u *User) Validate() ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(u.Name) == "" {
		errs = errs.Add("name", "can't be blank")
	} else if utf8.RuneCountInString(u.Name) > NameMaxLen {
		errs = errs.Add("name", "is too long (maximum is 64 characters)")
	}
	if strings.TrimSpace(u.Email) == "" {
		errs = errs.Add("email", "can't be blank")
	} else {
		// 正则只放行 ASCII，字节数即字符数
		if len(u.Email) > EmailMaxLen {
			errs = errs.Add("email", "is too long (maximum is 128 characters)")
		}
		if !emailRe.MatchString(u.Email) {
			errs = errs.Add("email", "is invalid")
		}
	}
	return errs
}

// ValidatePassword 密码长度 + 两次输入一致
func ValidatePassword(password, confirmation string) ValidationErrors {
	var errs ValidationErrors
	if len(password) < PasswordMinLen {
		errs = errs.Add("password", "is too short (minimum is 6 characters)")
	}
	if password != confirmation {
		errs = errs.Add("password_confirmation", "doesn't match password")
	}
	return errs
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByConfirmation / FindByResetHash 按 (id, hash) 精确匹配，查不到返回 nil
	FindByConfirmation(ctx context.Context, id, hash string) (*User, error)
	FindByResetHash(ctx context.Context, id, hash string) (*User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, q string, offset, limit int) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	// DeleteCascade 事务内连带删除微博与两个方向的关注边
	DeleteCascade(ctx context.Context, id string) error
}
