package model

import "time"

// User 用户模型，以邮箱为主键.
// 用户由认证网关（oauth2-proxy 等）注入，首次出现时自动落库，
// 共享授权时用于校验被授权人存在.
type User struct {
	Email       string    `gorm:"primaryKey;size:255" json:"email"`
	DisplayName string    `gorm:"size:255"            json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
