package model

import "time"

// User 表示一个注册账号。
//
// 密码以 HMAC-SHA1(salt, password) 的十六进制摘要存储，明文永不落库。
// AccessToken 是不透明的 bearer 凭证，设置密码时与摘要一起重新生成，
// 因此修改密码会使旧令牌全部失效。
type User struct {
	ID             uint      `gorm:"primaryKey"`                             // 用户 ID
	Email          string    `gorm:"type:varchar(191);uniqueIndex;not null"` // 邮箱（唯一，存储前转小写）
	Salt           string    `gorm:"type:varchar(64);not null"`              // 随机盐
	HashedPassword string    `gorm:"type:varchar(64);not null"`              // HMAC-SHA1 摘要
	AccessToken    string    `gorm:"type:varchar(64);uniqueIndex;not null"`  // 不透明访问令牌（唯一索引）
	CreatedAt      time.Time // 注册时间
	UpdatedAt      time.Time // 更新时间
}
