package utils

import "golang.org/x/crypto/bcrypt"

// 注册和改密都是低频操作，cost 用默认值即可
const bcryptCost = bcrypt.DefaultCost

func HashPassword(pw string) string {
	b, _ := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
	return string(b)
}

// CheckPassword 比较由 bcrypt 自带，恒定时间
func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
