package persistent

import (
	"context"
	"errors"
	"time"

	"xp-cashout/services/xp/internal/model"

	"gorm.io/gorm"
)

type IdempotencyRepository interface {
	// Lookup returns the stored response for a live key.
	Lookup(ctx context.Context, key, userID string, now time.Time) ([]byte, bool, error)
	// Store records the response. A concurrent insert of the same key yields
	// ErrIdempotencyRace and leaves the enclosing transaction unusable.
	Store(ctx context.Context, key, userID string, body []byte, expiresAt, now time.Time) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Lookup(ctx context.Context, key, userID string, now time.Time) ([]byte, bool, error) {
	var m model.IdempotencyKeyModel
	err := r.db.WithContext(ctx).
		Where("key = ? AND user_id = ? AND expires_at > ?", key, userID, now).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(m.ResponseBody), true, nil
}

func (r *idempotencyRepository) Store(ctx context.Context, key, userID string, body []byte, expiresAt, now time.Time) error {
	db := r.db.WithContext(ctx)

	// An expired record frees its key for reuse.
	if err := db.Where("key = ? AND user_id = ? AND expires_at <= ?", key, userID, now).
		Delete(&model.IdempotencyKeyModel{}).Error; err != nil {
		return err
	}

	err := db.Create(&model.IdempotencyKeyModel{
		Key:          key,
		UserID:       userID,
		ResponseBody: string(body),
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}).Error
	if isUniqueViolation(err) {
		return ErrIdempotencyRace
	}
	return err
}

func (r *idempotencyRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.IdempotencyKeyModel{})
	return res.RowsAffected, res.Error
}
