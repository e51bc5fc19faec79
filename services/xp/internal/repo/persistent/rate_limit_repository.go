package persistent

import (
	"context"
	"time"

	"xp-cashout/services/xp/internal/model"

	"gorm.io/gorm"
)

type RateLimitRepository interface {
	// Increment bumps the counter of one fixed window and returns the new count.
	Increment(ctx context.Context, identifier, endpoint string, windowStart time.Time) (int, error)
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

type rateLimitRepository struct {
	db *gorm.DB
}

const incrementWindowSQL = `
INSERT INTO rate_limits (identifier, endpoint, window_start, count)
VALUES (?, ?, ?, 1)
ON CONFLICT (identifier, endpoint, window_start) DO UPDATE
SET count = rate_limits.count + 1
RETURNING count`

func (r *rateLimitRepository) Increment(ctx context.Context, identifier, endpoint string, windowStart time.Time) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Raw(incrementWindowSQL, identifier, endpoint, windowStart).Scan(&count).Error
	return count, err
}

func (r *rateLimitRepository) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("window_start < ?", before).Delete(&model.RateLimitModel{})
	return res.RowsAffected, res.Error
}
