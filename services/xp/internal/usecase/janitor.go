package usecase

import (
	"context"
	"time"

	"xp-cashout/pkg/logger"
	"xp-cashout/services/xp/internal/repo/persistent"
)

// Rate-limit windows are at most an hour long; anything older is dead.
const rateWindowRetention = 2 * time.Hour

// Janitor purges expired idempotency keys, nonces and rate-limit windows.
type Janitor struct {
	store    persistent.Store
	interval time.Duration
	logger   *logger.Logger
	now      func() time.Time
}

func NewJanitor(store persistent.Store, interval time.Duration, logger *logger.Logger) *Janitor {
	return &Janitor{
		store:    store,
		interval: interval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Sweep(ctx); err != nil {
				j.logger.Error("Janitor sweep failed: %v", err)
			}
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) error {
	now := j.now()

	keys, err := j.store.Idempotency().PurgeExpired(ctx, now)
	if err != nil {
		return err
	}
	nonces, err := j.store.Nonces().PurgeExpired(ctx, now)
	if err != nil {
		return err
	}
	windows, err := j.store.RateLimits().PurgeBefore(ctx, now.Add(-rateWindowRetention))
	if err != nil {
		return err
	}

	if keys+nonces+windows > 0 {
		j.logger.Info("Janitor purged %d idempotency keys, %d nonces, %d rate windows", keys, nonces, windows)
	}
	return nil
}
