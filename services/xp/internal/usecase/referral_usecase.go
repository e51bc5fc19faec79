package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xp-cashout/pkg/logger"
	"xp-cashout/pkg/models"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/repo/persistent"

	"github.com/google/uuid"
)

type ReferralUseCase interface {
	Signup(ctx context.Context, userID, clientIP, code string) (*entity.ReferralSignupResult, error)
	Validate(ctx context.Context, code string) (bool, error)
	Overview(ctx context.Context, userID string) (*entity.ReferralOverview, error)
	Qualify(ctx context.Context, referralID string) (*entity.Referral, error)
	Reward(ctx context.Context, referralID string) (*entity.Referral, error)
}

type referralUseCase struct {
	store  persistent.Store
	policy Policy
	guard  *guard
	logger *logger.Logger
	now    func() time.Time
}

func NewReferralUseCase(store persistent.Store, policy Policy, logger *logger.Logger) ReferralUseCase {
	return &referralUseCase{
		store:  store,
		policy: policy,
		guard:  &guard{store: store, ttl: policy.IdempotencyTTL, logger: logger},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Signup links the caller to the owner of code. The unique referred_id makes
// a repeated call fail with ErrAlreadyReferred instead of creating a second row.
func (uc *referralUseCase) Signup(ctx context.Context, userID, clientIP, code string) (*entity.ReferralSignupResult, error) {
	now := uc.now()

	if err := uc.guard.allow(ctx, clientIP, EndpointReferralSignup, uc.policy.MaxReferralSignupsPerHour, time.Hour, now); err != nil {
		return nil, err
	}

	code = models.NormalizeReferralCode(code)
	if code == "" {
		return nil, invalid("referral_code is required")
	}

	referrerID, err := uc.store.Profiles().FindByReferralCode(ctx, code)
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrInvalidReferralCode
	}
	if err != nil {
		return nil, fmt.Errorf("lookup referral code: %w", err)
	}
	if referrerID == userID {
		return nil, ErrSelfReferral
	}

	if _, err := uc.store.Referrals().GetByReferred(ctx, userID); err == nil {
		return nil, ErrAlreadyReferred
	} else if !errors.Is(err, persistent.ErrNotFound) {
		return nil, fmt.Errorf("lookup referral: %w", err)
	}

	referral := &entity.Referral{
		ID:         uuid.New().String(),
		ReferrerID: referrerID,
		ReferredID: userID,
		Code:       code,
		Status:     entity.ReferralPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = uc.store.Transaction(ctx, func(tx persistent.Store) error {
		if err := tx.Profiles().Bootstrap(ctx, userID, nil); err != nil {
			return fmt.Errorf("bootstrap profile: %w", err)
		}
		return tx.Referrals().Create(ctx, referral)
	})
	if errors.Is(err, persistent.ErrDuplicate) {
		return nil, ErrAlreadyReferred
	}
	if err != nil {
		uc.logger.Error("Failed to record referral for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to record referral: %w", err)
	}

	uc.logger.Info("Referral recorded referrer=%s referred=%s", referrerID, userID)
	return &entity.ReferralSignupResult{
		Success:  true,
		Message:  "Referral recorded successfully",
		Referral: referral,
	}, nil
}

func (uc *referralUseCase) Validate(ctx context.Context, code string) (bool, error) {
	code = models.NormalizeReferralCode(code)
	if code == "" {
		return false, nil
	}
	_, err := uc.store.Profiles().FindByReferralCode(ctx, code)
	if errors.Is(err, persistent.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup referral code: %w", err)
	}
	return true, nil
}

func (uc *referralUseCase) Overview(ctx context.Context, userID string) (*entity.ReferralOverview, error) {
	if err := uc.store.Profiles().Bootstrap(ctx, userID, nil); err != nil {
		return nil, fmt.Errorf("bootstrap profile: %w", err)
	}
	code, err := uc.store.Profiles().EnsureReferralCode(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("referral code: %w", err)
	}

	counts, err := uc.store.Referrals().CountByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("referral stats: %w", err)
	}
	earned, err := uc.store.Ledger().SumBySource(ctx, userID, entity.SourceReferralReward)
	if err != nil {
		return nil, fmt.Errorf("referral earnings: %w", err)
	}
	referrals, err := uc.store.Referrals().ListByReferrer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}

	stats := entity.ReferralStats{
		Pending:           counts[entity.ReferralPending],
		Qualified:         counts[entity.ReferralQualified],
		Rewarded:          counts[entity.ReferralRewarded],
		TotalXPEarned:     earned,
		RewardPerReferral: uc.policy.ReferralRewardXP,
	}
	stats.Total = stats.Pending + stats.Qualified + stats.Rewarded

	return &entity.ReferralOverview{
		ReferralCode: code,
		Stats:        stats,
		Referrals:    referrals,
	}, nil
}

// Qualify moves a pending referral to qualified. Later states are returned as is.
func (uc *referralUseCase) Qualify(ctx context.Context, referralID string) (*entity.Referral, error) {
	now := uc.now()
	var referral *entity.Referral
	err := uc.store.Transaction(ctx, func(tx persistent.Store) error {
		r, err := tx.Referrals().GetForUpdate(ctx, referralID)
		if err != nil {
			return err
		}
		referral = r
		if r.Status != entity.ReferralPending {
			return nil
		}
		r.Status = entity.ReferralQualified
		r.QualifiedAt = &now
		r.UpdatedAt = now
		return tx.Referrals().Update(ctx, r)
	})
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		uc.logger.Error("Failed to qualify referral %s: %v", referralID, err)
		return nil, fmt.Errorf("failed to qualify referral: %w", err)
	}
	return referral, nil
}

// Reward credits the referrer once for a qualified referral. The referral
// row lock and the ledger's unique referral index both guard against a
// second credit.
func (uc *referralUseCase) Reward(ctx context.Context, referralID string) (*entity.Referral, error) {
	now := uc.now()
	var referral *entity.Referral
	err := uc.store.Transaction(ctx, func(tx persistent.Store) error {
		r, err := tx.Referrals().GetForUpdate(ctx, referralID)
		if err != nil {
			return err
		}
		referral = r
		switch r.Status {
		case entity.ReferralRewarded:
			return nil
		case entity.ReferralPending:
			return ErrInvalidStatus
		}

		if _, err := tx.Profiles().Lock(ctx, r.ReferrerID); errors.Is(err, persistent.ErrNotFound) {
			return ErrProfileNotFound
		} else if err != nil {
			return fmt.Errorf("lock referrer: %w", err)
		}

		metadata, err := json.Marshal(map[string]string{
			"referral_id": r.ID,
			"referred_id": r.ReferredID,
		})
		if err != nil {
			return err
		}
		if err := tx.Ledger().Append(ctx, &entity.LedgerEntry{
			UserID:    r.ReferrerID,
			Source:    entity.SourceReferralReward,
			XPDelta:   uc.policy.ReferralRewardXP,
			Metadata:  metadata,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("credit referral reward: %w", err)
		}

		r.Status = entity.ReferralRewarded
		r.RewardedAt = &now
		r.UpdatedAt = now
		return tx.Referrals().Update(ctx, r)
	})
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		if !isBusinessError(err) {
			uc.logger.Error("Failed to reward referral %s: %v", referralID, err)
		}
		return nil, err
	}
	return referral, nil
}
