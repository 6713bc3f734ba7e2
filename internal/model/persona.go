package model

import "time"

// Persona 账号下的一个公开身份
type Persona struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Owner     string    `json:"owner" gorm:"type:varchar(64);not null;index:idx_persona_owner"` // 所属账号 username，创建后不可变
	Handle    string    `json:"handle" gorm:"type:varchar(64);not null;uniqueIndex:ux_persona_handle"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Persona) TableName() string { return "personas" }
