package model

import "time"

// Freet 短帖，作者为某个 Persona
type Freet struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(36);not null;index:idx_freet_author"`
	Content   string    `json:"content" gorm:"type:varchar(140);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Freet) TableName() string { return "freets" }
