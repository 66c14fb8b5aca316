package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
)

// OAuthIdentity is the profile returned by a social login provider.
type OAuthIdentity struct {
	Provider   string
	ProviderID string
	Username   string
	Email      string
	AvatarURL  string
}

// UserRepository defines user persistence.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// UpsertOAuth returns the user bound to the identity, creating it on first login.
	// The role is raised to admin when admin is true and never lowered.
	UpsertOAuth(ctx context.Context, id OAuthIdentity, admin bool) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UpsertOAuth(ctx context.Context, id OAuthIdentity, admin bool) (*models.User, error) {
	db := r.db.WithContext(ctx)
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", id.Provider, id.ProviderID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Username:   r.uniqueUsername(db, id.Username, id.Provider, id.ProviderID),
			Email:      strings.TrimSpace(id.Email),
			Provider:   id.Provider,
			ProviderID: id.ProviderID,
			AvatarURL:  id.AvatarURL,
			Role:       models.RoleUser,
		}
		if admin {
			user.Role = models.RoleAdmin
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	case err != nil:
		return nil, err
	}

	updates := map[string]interface{}{
		"email":      strings.TrimSpace(id.Email),
		"avatar_url": id.AvatarURL,
	}
	if admin && !user.IsAdmin() {
		updates["role"] = models.RoleAdmin
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var b strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.' || r == '@':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func (r *userRepository) uniqueUsername(db *gorm.DB, base, provider, providerID string) string {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(provider + "_" + providerID)
		if base == "" {
			base = "user_" + providerID
		}
	}
	candidate := base
	for suffix := 1; ; suffix++ {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil || count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}
