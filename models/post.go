package models

import "time"

// Post is a published blog article. ContentMarkdown is the source of truth for rendering;
// ThumbnailURL caches the first permanent image found in it.
type Post struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	ContentMarkdown string    `gorm:"type:text;not null" json:"content_markdown"`
	ThumbnailURL    string    `gorm:"size:1024" json:"thumbnail_url"`
	ViewCount       int64     `gorm:"not null;default:0" json:"view_count"`
	LikesCount      int64     `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount   int64     `gorm:"not null;default:0" json:"comments_count"`
	Hashtags        []Hashtag `gorm:"many2many:post_hashtags;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"hashtags"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	User            User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Comments        []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// HashtagNames returns the names of the post's hashtags in stored order.
func (p *Post) HashtagNames() []string {
	names := make([]string, 0, len(p.Hashtags))
	for _, h := range p.Hashtags {
		names = append(names, h.Name)
	}
	return names
}
