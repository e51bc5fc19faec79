package persistent

import (
	"context"
	"errors"
	"fmt"

	"xp-cashout/pkg/models"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

type ContactRepository interface {
	// Email returns the e-mail address on the user's profile, or nil.
	Email(ctx context.Context, userID string) (*string, error)
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Email(ctx context.Context, userID string) (*string, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).Select("id", "email").Where("id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contact for %s: %w", userID, err)
	}
	if profile.Email == nil || *profile.Email == "" {
		return nil, nil
	}
	return profile.Email, nil
}
