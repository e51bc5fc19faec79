package usecase

import (
	"context"
	"errors"
	"fmt"

	"xp-cashout/pkg/logger"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/repo/persistent"
)

type AccountUseCase interface {
	// Me returns the caller's profile, creating it on first sight.
	Me(ctx context.Context, userID string) (*entity.Account, error)
	Health(ctx context.Context) error
}

type accountUseCase struct {
	store  persistent.Store
	logger *logger.Logger
}

func NewAccountUseCase(store persistent.Store, logger *logger.Logger) AccountUseCase {
	return &accountUseCase{store: store, logger: logger}
}

func (uc *accountUseCase) Me(ctx context.Context, userID string) (*entity.Account, error) {
	profile, err := uc.store.Profiles().Get(ctx, userID)
	if errors.Is(err, persistent.ErrNotFound) {
		uc.logger.Warn("Profile for user %s not found, creating it", userID)
		if err := uc.store.Profiles().Bootstrap(ctx, userID, nil); err != nil {
			return nil, fmt.Errorf("bootstrap profile: %w", err)
		}
		profile, err = uc.store.Profiles().Get(ctx, userID)
	}
	if err != nil {
		uc.logger.Error("Failed to load profile %s: %v", userID, err)
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	balance, err := uc.store.Ledger().Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	account := &entity.Account{Profile: profile, XPBalance: balance}
	code, err := uc.store.Profiles().EnsureReferralCode(ctx, userID)
	if err != nil {
		uc.logger.Warn("Failed to ensure referral code for %s: %v", userID, err)
	} else {
		account.ReferralCode = &code
	}
	return account, nil
}

func (uc *accountUseCase) Health(ctx context.Context) error {
	return uc.store.Ping(ctx)
}
