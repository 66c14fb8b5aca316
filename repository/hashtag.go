package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/inkblog/models"
)

// HashtagCount is a hashtag with the number of posts carrying it.
type HashtagCount struct {
	Name      string `json:"name"`
	PostCount int64  `json:"post_count"`
}

// HashtagRepository defines hashtag queries.
type HashtagRepository interface {
	ListWithCounts(ctx context.Context) ([]HashtagCount, error)
}

type hashtagRepository struct {
	db *gorm.DB
}

// NewHashtagRepository creates a new hashtag repository.
func NewHashtagRepository(db *gorm.DB) HashtagRepository {
	return &hashtagRepository{db: db}
}

func (r *hashtagRepository) ListWithCounts(ctx context.Context) ([]HashtagCount, error) {
	var out []HashtagCount
	err := r.db.WithContext(ctx).
		Table("hashtags").
		Select("hashtags.name AS name, COUNT(post_hashtags.post_id) AS post_count").
		Joins("LEFT JOIN post_hashtags ON post_hashtags.hashtag_id = hashtags.id").
		Group("hashtags.id, hashtags.name").
		Order("post_count DESC, hashtags.name ASC").
		Scan(&out).Error
	return out, err
}

// upsertHashtags normalizes names and returns their rows, inserting missing ones.
func upsertHashtags(tx *gorm.DB, names []string) ([]models.Hashtag, error) {
	names = models.NormalizeHashtags(names)
	if len(names) == 0 {
		return []models.Hashtag{}, nil
	}
	rows := make([]models.Hashtag, len(names))
	for i, n := range names {
		rows[i] = models.Hashtag{Name: n}
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error; err != nil {
		return nil, err
	}

	var found []models.Hashtag
	if err := tx.Where("name IN ?", names).Find(&found).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]models.Hashtag, len(found))
	for _, h := range found {
		byName[h.Name] = h
	}
	tags := make([]models.Hashtag, 0, len(names))
	for _, n := range names {
		if h, ok := byName[n]; ok {
			tags = append(tags, h)
		}
	}
	return tags, nil
}
