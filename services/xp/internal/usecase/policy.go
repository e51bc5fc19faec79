package usecase

import (
	"fmt"
	"time"

	"xp-cashout/pkg/config"

	"github.com/shopspring/decimal"
)

const (
	MaxEventsPerBatch = 100

	EndpointCredit         = "/xp/credit"
	EndpointWithdrawals    = "/withdrawals"
	EndpointReferralSignup = "/referrals/signup"

	withdrawalLimitWindow = 7 * 24 * time.Hour
)

// Policy holds the economy rules of the engine.
type Policy struct {
	MinWithdrawalXP         int64
	WithdrawalCooldown      time.Duration
	MaxWithdrawalsPerWindow int
	WithdrawalWindow        time.Duration
	DefaultRate             decimal.Decimal
	Currency                string

	MaxXPPerDay        int64
	MaxEventsPerMinute int
	NonceTTL           time.Duration

	MaxWithdrawalsPerHour     int
	MaxReferralSignupsPerHour int
	IdempotencyTTL            time.Duration

	ReferralRewardXP int64
}

func NewPolicy(cfg *config.Config) (Policy, error) {
	rate, err := decimal.NewFromString(cfg.DefaultConversionRate)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid default conversion rate %q: %w", cfg.DefaultConversionRate, err)
	}
	if !rate.IsPositive() {
		return Policy{}, fmt.Errorf("default conversion rate must be positive, got %s", rate)
	}

	return Policy{
		MinWithdrawalXP:           cfg.MinWithdrawalXP,
		WithdrawalCooldown:        time.Duration(cfg.WithdrawalCooldownDays) * 24 * time.Hour,
		MaxWithdrawalsPerWindow:   cfg.MaxWithdrawalsPer7Days,
		WithdrawalWindow:          withdrawalLimitWindow,
		DefaultRate:               rate,
		Currency:                  cfg.PayoutCurrency,
		MaxXPPerDay:               cfg.MaxXPPerDay,
		MaxEventsPerMinute:        cfg.MaxEventsPerMinute,
		NonceTTL:                  time.Duration(cfg.XPNonceTTLHours) * time.Hour,
		MaxWithdrawalsPerHour:     cfg.MaxWithdrawalsPerHour,
		MaxReferralSignupsPerHour: cfg.MaxReferralSignupsPerHour,
		IdempotencyTTL:            time.Duration(cfg.IdempotencyTTLHours) * time.Hour,
		ReferralRewardXP:          cfg.ReferralRewardXP,
	}, nil
}

// DailyCap halves the earn cap for users with an emulator or rooted device.
func (p Policy) DailyCap(risky bool) int64 {
	if risky {
		return p.MaxXPPerDay / 2
	}
	return p.MaxXPPerDay
}

func startOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
