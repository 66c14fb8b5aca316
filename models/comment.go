package models

import "time"

// Comment represents a reply to a post, optionally nested under another comment.
type Comment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	PostID    uint       `gorm:"index;not null" json:"post_id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	ParentID  *uint      `gorm:"index" json:"parent_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	User      User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Replies   []*Comment `gorm:"-" json:"replies"`
}
