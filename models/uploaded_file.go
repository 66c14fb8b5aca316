package models

import "time"

// UploadedFile tracks one blob in the object store. Path is authoritative;
// URL is always derived from Path and must be refreshed whenever Path changes.
type UploadedFile struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	SessionID   string    `gorm:"size:36;index" json:"session_id,omitempty"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	URL         string    `gorm:"size:1024;not null" json:"url"`
	Path        string    `gorm:"size:512;not null;uniqueIndex" json:"path"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `gorm:"index" json:"uploaded_at"`
	IsTemporary bool      `gorm:"index" json:"is_temporary"`
}
