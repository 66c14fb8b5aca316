package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
)

// LikeRepository defines like persistence.
type LikeRepository interface {
	// Toggle likes or unlikes postID for userID and returns the new state and count.
	Toggle(ctx context.Context, postID, userID uint) (liked bool, count int64, err error)
	IsLiked(ctx context.Context, postID, userID uint) (bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Toggle(ctx context.Context, postID, userID uint) (bool, int64, error) {
	var liked bool
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		delta := -1
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.Like{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			delta = 1
			liked = true
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta)).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).Pluck("likes_count", &count).Error
	})
	return liked, count, err
}

func (r *likeRepository) IsLiked(ctx context.Context, postID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	return n > 0, err
}
