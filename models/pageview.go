package models

import "time"

// PageView aggregates daily reads of one post. Path keeps the request path
// the read came through; PostID is what stats query by.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_pv_date_path,unique;type:date;not null" json:"date"`
	Path      string    `gorm:"index:idx_pv_date_path,unique;size:255;not null" json:"path"`
	PostID    uint      `gorm:"index;not null;default:0" json:"post_id"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
