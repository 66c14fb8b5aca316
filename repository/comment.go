package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
)

// CommentRepository defines comment persistence.
type CommentRepository interface {
	// Create inserts the comment and bumps the post's comments_count.
	Create(ctx context.Context, c *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	// DeleteTree removes the comment and all of its descendants and returns how many rows went away.
	DeleteTree(ctx context.Context, id uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", c.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	err := r.db.WithContext(ctx).Preload("User").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) DeleteTree(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		if err := tx.First(&root, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		ids := []uint{root.ID}
		frontier := []uint{root.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		res := tx.Where("id IN ?", ids).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Model(&models.Post{}).Where("id = ?", root.PostID).
			UpdateColumn("comments_count", gorm.Expr("CASE WHEN comments_count >= ? THEN comments_count - ? ELSE 0 END", removed, removed)).Error
	})
	return removed, err
}
