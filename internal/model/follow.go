package model

import (
	"time"
)

// Follow 关注关系（Follower 关注 Following），两端均为 Persona
type Follow struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FollowerID  string `json:"follower_id" gorm:"type:varchar(36);not null;index:idx_follow_follower;uniqueIndex:ux_follow_pair"`
	FollowingID string `json:"following_id" gorm:"type:varchar(36);not null;index:idx_follow_following;uniqueIndex:ux_follow_pair"`
	// 复合唯一键，避免重复关注
	// ux_follow_pair = (follower_id, following_id)
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Follow) TableName() string { return "follows" }
