package usecase

import (
	"context"
	"encoding/json"
	"time"

	"xp-cashout/pkg/logger"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/repo/persistent"

	"github.com/redis/go-redis/v9"
)

const (
	conversionRateCacheKey = "conversion_rate:current"
	conversionRateCacheTTL = 60 * time.Second
)

type ConversionUseCase interface {
	CurrentRate(ctx context.Context) (*entity.ConversionRate, error)
}

type conversionUseCase struct {
	store       persistent.Store
	policy      Policy
	redisClient *redis.Client
	logger      *logger.Logger
	now         func() time.Time
}

// NewConversionUseCase serves the published rate for display. Withdrawals
// always read the rate from the database inside their own transaction.
func NewConversionUseCase(store persistent.Store, policy Policy, redisClient *redis.Client, logger *logger.Logger) ConversionUseCase {
	return &conversionUseCase{
		store:       store,
		policy:      policy,
		redisClient: redisClient,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *conversionUseCase) CurrentRate(ctx context.Context) (*entity.ConversionRate, error) {
	if uc.redisClient != nil {
		if cached, err := uc.redisClient.Get(ctx, conversionRateCacheKey).Bytes(); err == nil {
			var rate entity.ConversionRate
			if err := json.Unmarshal(cached, &rate); err == nil {
				return &rate, nil
			}
		} else if err != redis.Nil {
			uc.logger.Warn("Conversion rate cache read failed: %v", err)
		}
	}

	rate, err := currentRate(ctx, uc.store, uc.policy, uc.now())
	if err != nil {
		uc.logger.Error("Failed to load conversion rate: %v", err)
		return nil, err
	}

	if uc.redisClient != nil {
		if encoded, err := json.Marshal(rate); err == nil {
			if err := uc.redisClient.Set(ctx, conversionRateCacheKey, encoded, conversionRateCacheTTL).Err(); err != nil {
				uc.logger.Warn("Conversion rate cache write failed: %v", err)
			}
		}
	}
	return rate, nil
}
