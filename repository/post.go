// Package repository provides gorm-backed data access for posts, hashtags,
// comments, likes, uploads and users.
package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ListPostsQuery filters and paginates the post list.
type ListPostsQuery struct {
	Page     int
	PageSize int
	Hashtag  string
	Search   string
}

// PostRepository defines post persistence.
type PostRepository interface {
	// Save inserts or updates post together with its hashtag set in one
	// transaction. Hashtag rows are created on demand.
	Save(ctx context.Context, post *models.Post, hashtags []string) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, q ListPostsQuery) ([]models.Post, int64, error)
	// Delete removes the post with its join rows, comments and likes.
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	// CountReferencing counts posts other than excludeID whose content mentions needle.
	CountReferencing(ctx context.Context, needle string, excludeID uint) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Save(ctx context.Context, post *models.Post, hashtags []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := upsertHashtags(tx, hashtags)
		if err != nil {
			return err
		}
		if post.ID == 0 {
			if err := tx.Omit("User", "Hashtags", "Comments").Create(post).Error; err != nil {
				return err
			}
		} else {
			res := tx.Model(&models.Post{ID: post.ID}).Select("title", "content_markdown", "thumbnail_url").Updates(post)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		if err := tx.Model(post).Association("Hashtags").Replace(tags); err != nil {
			return err
		}
		post.Hashtags = tags
		return nil
	})
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("User").Preload("Hashtags").First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, q ListPostsQuery) ([]models.Post, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 10
	}

	base := r.db.WithContext(ctx).Model(&models.Post{})
	if tag := models.NormalizeHashtag(q.Hashtag); tag != "" {
		base = base.Where("posts.id IN (?)",
			r.db.Table("post_hashtags").
				Select("post_hashtags.post_id").
				Joins("JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id").
				Where("hashtags.name = ?", tag))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		base = base.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content_markdown) LIKE ?", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := base.Session(&gorm.Session{}).
		Preload("User").
		Preload("Hashtags").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Exec("DELETE FROM post_hashtags WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", id).Delete(&models.Like{}).Error
	})
}

func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *postRepository) CountReferencing(ctx context.Context, needle string, excludeID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id <> ? AND content_markdown LIKE ?", excludeID, "%"+needle+"%").
		Count(&n).Error
	return n, err
}
