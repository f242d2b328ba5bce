package domain

import (
	"errors"
	"strings"
)

// 通用失败统一用模糊文案，避免账号枚举
var (
	ErrInvalidEmailOrPassword = errors.New("invalid email or password")
	ErrWrongHash              = errors.New("wrong hash")
	ErrUserNotFound           = errors.New("user not found")
	ErrSelfFollow             = errors.New("can't follow yourself")
	ErrForbidden              = errors.New("forbidden")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors 逐字段校验错误，可直接作为 error 返回
type ValidationErrors []FieldError

func (v ValidationErrors) Add(field, msg string) ValidationErrors {
	return append(v, FieldError{Field: field, Message: msg})
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+" "+e.Message)
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) HasField(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}

// AsValidation 判断 err 是否为校验错误
func AsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
