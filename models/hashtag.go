package models

import (
	"strings"
	"time"
)

// Hashtag is a globally unique, lowercase tag. Rows are created lazily and never deleted by publishing.
type Hashtag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeHashtag trims, strips a leading '#' and lowercases a tag name.
func NormalizeHashtag(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, "#")
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeHashtags normalizes names, dropping empties and duplicates while keeping first-seen order.
func NormalizeHashtags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = NormalizeHashtag(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
