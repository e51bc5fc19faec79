package persistent

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories of the xp service. A Store obtained inside
// Transaction is bound to that transaction; calling Transaction on it again
// opens a savepoint.
type Store interface {
	Ledger() LedgerRepository
	Idempotency() IdempotencyRepository
	Nonces() NonceRepository
	RateLimits() RateLimitRepository
	Withdrawals() WithdrawalRepository
	Referrals() ReferralRepository
	ConversionRates() ConversionRateRepository
	Profiles() ProfileRepository

	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Ledger() LedgerRepository { return &ledgerRepository{db: s.db} }
func (s *store) Idempotency() IdempotencyRepository { return &idempotencyRepository{db: s.db} }
func (s *store) Nonces() NonceRepository { return &nonceRepository{db: s.db} }
func (s *store) RateLimits() RateLimitRepository { return &rateLimitRepository{db: s.db} }
func (s *store) Withdrawals() WithdrawalRepository { return &withdrawalRepository{db: s.db} }
func (s *store) Referrals() ReferralRepository { return &referralRepository{db: s.db} }
func (s *store) ConversionRates() ConversionRateRepository { return &conversionRateRepository{db: s.db} }
func (s *store) Profiles() ProfileRepository { return &profileRepository{db: s.db} }

func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

func (s *store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
