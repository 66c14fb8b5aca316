package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a reader or author. Identities come from social login providers only.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email      string         `gorm:"size:255" json:"email"`
	Provider   string         `gorm:"size:32;uniqueIndex:idx_users_provider_identity" json:"provider"`
	ProviderID string         `gorm:"size:255;uniqueIndex:idx_users_provider_identity" json:"provider_id"`
	AvatarURL  string         `gorm:"size:512" json:"avatar_url"`
	Bio        string         `gorm:"size:255" json:"bio"`
	Role       string         `gorm:"size:16;not null;default:'user'" json:"role"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	Comments   []Comment      `json:"-"`
	Posts      []Post         `json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeCreate hook ensures timestamps and role are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
