package models

import "time"

// Like records that a user liked a post. One row per (post, user).
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
