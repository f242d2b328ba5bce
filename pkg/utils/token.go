package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewToken 生成 URL 安全的随机令牌（记住我 / 邮箱确认 / 重置密码）
// hex 编码天然全小写，便于按原样查库比对
func NewToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Digest 对高熵令牌做 sha256，库里只存摘要
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
