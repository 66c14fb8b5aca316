package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
)

// UploadRepository tracks uploaded blobs.
type UploadRepository interface {
	Create(ctx context.Context, f *models.UploadedFile) error
	GetByID(ctx context.Context, id string) (*models.UploadedFile, error)
	// MarkPromoted moves the row at fromPath to toPath and re-derives its URL.
	MarkPromoted(ctx context.Context, fromPath, toPath, url string) error
	DeleteByPaths(ctx context.Context, paths []string) error
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository creates a new upload repository.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, f *models.UploadedFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *uploadRepository) GetByID(ctx context.Context, id string) (*models.UploadedFile, error) {
	var f models.UploadedFile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *uploadRepository) MarkPromoted(ctx context.Context, fromPath, toPath, url string) error {
	return r.db.WithContext(ctx).Model(&models.UploadedFile{}).
		Where("path = ?", fromPath).
		Updates(map[string]interface{}{
			"path":         toPath,
			"url":          url,
			"is_temporary": false,
		}).Error
}

func (r *uploadRepository) DeleteByPaths(ctx context.Context, paths []string) error {
	const chunk = 500
	db := r.db.WithContext(ctx)
	for start := 0; start < len(paths); start += chunk {
		end := min(start+chunk, len(paths))
		if err := db.Where("path IN ?", paths[start:end]).Delete(&models.UploadedFile{}).Error; err != nil {
			return err
		}
	}
	return nil
}
