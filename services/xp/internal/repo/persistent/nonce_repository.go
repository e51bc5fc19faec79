package persistent

import (
	"context"
	"time"

	"xp-cashout/services/xp/internal/model"

	"gorm.io/gorm"
)

type NonceRepository interface {
	Seen(ctx context.Context, nonce, userID string, now time.Time) (bool, error)
	// Record claims the nonce for the user. It returns false when a live
	// record already holds it; expired records are taken over.
	Record(ctx context.Context, nonce, userID, source string, xpDelta int64, expiresAt, now time.Time) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type nonceRepository struct {
	db *gorm.DB
}

const recordNonceSQL = `
INSERT INTO xp_event_nonces (nonce, user_id, source, xp_delta, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (nonce, user_id) DO UPDATE
SET source = EXCLUDED.source,
    xp_delta = EXCLUDED.xp_delta,
    expires_at = EXCLUDED.expires_at,
    created_at = EXCLUDED.created_at
WHERE xp_event_nonces.expires_at <= ?`

func (r *nonceRepository) Seen(ctx context.Context, nonce, userID string, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.EventNonceModel{}).
		Where("nonce = ? AND user_id = ? AND expires_at > ?", nonce, userID, now).
		Count(&count).Error
	return count > 0, err
}

func (r *nonceRepository) Record(ctx context.Context, nonce, userID, source string, xpDelta int64, expiresAt, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(recordNonceSQL, nonce, userID, source, xpDelta, expiresAt, now, now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *nonceRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.EventNonceModel{})
	return res.RowsAffected, res.Error
}
