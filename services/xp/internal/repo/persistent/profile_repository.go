package persistent

import (
	"context"
	"errors"

	"xp-cashout/pkg/models"
	"xp-cashout/services/xp/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const referralCodeAttempts = 5

type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*entity.Profile, error)
	// Bootstrap inserts an active profile unless one exists.
	Bootstrap(ctx context.Context, userID string, email *string) error
	// Lock takes the per-user row lock that serializes balance mutations.
	Lock(ctx context.Context, userID string) (*entity.Profile, error)
	HasRiskyDevice(ctx context.Context, userID string) (bool, error)
	ReferralCode(ctx context.Context, userID string) (string, error)
	EnsureReferralCode(ctx context.Context, userID string) (string, error)
	FindByReferralCode(ctx context.Context, code string) (string, error)
}

type profileRepository struct {
	db *gorm.DB
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*entity.Profile, error) {
	var m models.UserProfile
	if err := r.db.WithContext(ctx).Where("id = ?", userID).Take(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return ToProfileEntity(&m), nil
}

func (r *profileRepository) Bootstrap(ctx context.Context, userID string, email *string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserProfile{
			ID:       userID,
			Email:    email,
			KYCLevel: models.KYCLevelNone,
			Status:   models.ProfileStatusActive,
		}).Error
}

func (r *profileRepository) Lock(ctx context.Context, userID string) (*entity.Profile, error) {
	var m models.UserProfile
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		Take(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return ToProfileEntity(&m), nil
}

func (r *profileRepository) HasRiskyDevice(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("user_id = ? AND (is_emulator OR is_rooted)", userID).
		Count(&count).Error
	return count > 0, err
}

func (r *profileRepository) ReferralCode(ctx context.Context, userID string) (string, error) {
	var m models.ReferralCode
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&m).Error; err != nil {
		return "", notFound(err)
	}
	return m.Code, nil
}

func (r *profileRepository) EnsureReferralCode(ctx context.Context, userID string) (string, error) {
	code, err := r.ReferralCode(ctx, userID)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return code, err
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		m := &models.ReferralCode{UserID: userID, Code: models.NewReferralCode()}
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 1 {
			return m.Code, nil
		}
		// Either the user got a code concurrently or the random code collided.
		if code, err := r.ReferralCode(ctx, userID); err == nil {
			return code, nil
		}
	}
	return "", errors.New("failed to allocate referral code")
}

func (r *profileRepository) FindByReferralCode(ctx context.Context, code string) (string, error) {
	var m models.ReferralCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&m).Error; err != nil {
		return "", notFound(err)
	}
	return m.UserID, nil
}
