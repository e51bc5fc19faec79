package persistent

import (
	"context"
	"time"

	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/model"

	"gorm.io/gorm"
)

type ConversionRateRepository interface {
	// Current returns the latest rate already in effect at now, or ErrNotFound.
	Current(ctx context.Context, now time.Time) (*entity.ConversionRate, error)
}

type conversionRateRepository struct {
	db *gorm.DB
}

func (r *conversionRateRepository) Current(ctx context.Context, now time.Time) (*entity.ConversionRate, error) {
	var m model.ConversionRateModel
	err := r.db.WithContext(ctx).
		Where("effective_from <= ?", now).
		Order("effective_from DESC").
		Take(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return ToConversionRateEntity(&m), nil
}
