package model

import "time"

// User 登录账号（外部实体，仅 username 被 Persona 引用）
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" gorm:"type:varchar(64);not null;uniqueIndex:ux_user_username"`
	PasswordHash string    `json:"-" gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
