package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xp-cashout/pkg/logger"
	"xp-cashout/pkg/queue"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/repo/persistent"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	withdrawalNotificationPriority = 5
)

type WithdrawalRequest struct {
	UserID         string
	IdempotencyKey string
	XPToConvert    int64
}

type WithdrawalUseCase interface {
	Create(ctx context.Context, req WithdrawalRequest) (*Response, error)
	List(ctx context.Context, userID string, page, pageSize int) (*entity.WithdrawalPage, error)
}

type withdrawalUseCase struct {
	store    persistent.Store
	policy   Policy
	guard    *guard
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
	dispatch func(func())
}

func NewWithdrawalUseCase(store persistent.Store, policy Policy, notifier Notifier, logger *logger.Logger) WithdrawalUseCase {
	return &withdrawalUseCase{
		store:    store,
		policy:   policy,
		guard:    &guard{store: store, ttl: policy.IdempotencyTTL, logger: logger},
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		dispatch: func(fn func()) { go fn() },
	}
}

func (uc *withdrawalUseCase) Create(ctx context.Context, req WithdrawalRequest) (*Response, error) {
	now := uc.now()

	if cached, err := uc.guard.replay(ctx, req.IdempotencyKey, req.UserID, now); err != nil || cached != nil {
		return cached, err
	}

	if err := uc.guard.allow(ctx, req.UserID, EndpointWithdrawals, uc.policy.MaxWithdrawalsPerHour, time.Hour, now); err != nil {
		return nil, err
	}

	if req.XPToConvert < uc.policy.MinWithdrawalXP {
		return nil, &MinimumError{Minimum: uc.policy.MinWithdrawalXP}
	}

	var created *entity.Withdrawal
	resp, err := uc.guard.commit(ctx, req.IdempotencyKey, req.UserID, now,
		func(tx persistent.Store) error {
			_, err := tx.Profiles().Lock(ctx, req.UserID)
			if errors.Is(err, persistent.ErrNotFound) {
				return ErrProfileNotFound
			}
			return err
		},
		func(tx persistent.Store) (interface{}, error) {
			result, w, err := uc.settle(ctx, tx, req, now)
			created = w
			return result, err
		},
	)
	if err != nil {
		if isBusinessError(err) {
			uc.logger.Info("Withdrawal rejected for user %s: %v", req.UserID, err)
		} else {
			uc.logger.Error("Failed to create withdrawal for user %s: %v", req.UserID, err)
		}
		return nil, err
	}

	if !resp.Replayed && created != nil {
		uc.notify(created)
	}
	return resp, nil
}

func (uc *withdrawalUseCase) settle(ctx context.Context, tx persistent.Store, req WithdrawalRequest, now time.Time) (*entity.WithdrawalResult, *entity.Withdrawal, error) {
	profile, err := tx.Profiles().Get(ctx, req.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}

	balance, err := tx.Ledger().Balance(ctx, req.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("balance: %w", err)
	}
	if balance < req.XPToConvert {
		return nil, nil, ErrInsufficientXP
	}

	if err := uc.checkCadence(ctx, tx, req.UserID, now); err != nil {
		return nil, nil, err
	}

	rate, err := currentRate(ctx, tx, uc.policy, now)
	if err != nil {
		return nil, nil, err
	}

	withdrawal := &entity.Withdrawal{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		PhoneSnapshot: profile.PayoutContact,
		XPDebited:     req.XPToConvert,
		Amount:        rate.Convert(req.XPToConvert),
		Currency:      uc.policy.Currency,
		RateSnapshot:  rate.Rate,
		Status:        entity.WithdrawalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.Withdrawals().Create(ctx, withdrawal); err != nil {
		return nil, nil, fmt.Errorf("create withdrawal: %w", err)
	}

	metadata, err := json.Marshal(map[string]string{"withdrawal_id": withdrawal.ID})
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Ledger().Append(ctx, &entity.LedgerEntry{
		UserID:    req.UserID,
		Source:    entity.SourceWithdrawal,
		XPDelta:   -req.XPToConvert,
		Metadata:  metadata,
		CreatedAt: now,
	}); err != nil {
		return nil, nil, fmt.Errorf("debit ledger: %w", err)
	}

	return &entity.WithdrawalResult{
		WithdrawalID: withdrawal.ID,
		XPBalance:    balance - req.XPToConvert,
		Amount:       withdrawal.Amount,
		Currency:     withdrawal.Currency,
	}, withdrawal, nil
}

// checkCadence enforces the cooldown since the latest withdrawal and the cap
// on withdrawals in the trailing window. Every status counts.
func (uc *withdrawalUseCase) checkCadence(ctx context.Context, tx persistent.Store, userID string, now time.Time) error {
	recent, err := tx.Withdrawals().Recent(ctx, userID, 1)
	if err != nil {
		return fmt.Errorf("recent withdrawals: %w", err)
	}
	if len(recent) > 0 && uc.policy.WithdrawalCooldown > 0 {
		next := recent[0].CreatedAt.Add(uc.policy.WithdrawalCooldown)
		if now.Before(next) {
			return &CooldownError{NextAvailable: next}
		}
	}

	count, err := tx.Withdrawals().CountSince(ctx, userID, now.Add(-uc.policy.WithdrawalWindow))
	if err != nil {
		return fmt.Errorf("count withdrawals: %w", err)
	}
	if count >= int64(uc.policy.MaxWithdrawalsPerWindow) {
		return ErrWithdrawLimitExceeded
	}
	return nil
}

func (uc *withdrawalUseCase) notify(w *entity.Withdrawal) {
	if uc.notifier == nil {
		uc.logger.Warn("No notification queue configured, skipping confirmation for withdrawal %s", w.ID)
		return
	}

	task := queue.NotificationTask{
		Type:          queue.TaskTypeWithdrawalCreated,
		UserID:        w.UserID,
		WithdrawalID:  w.ID,
		XPDebited:     w.XPDebited,
		Amount:        w.Amount,
		Currency:      w.Currency,
		PhoneSnapshot: w.PhoneSnapshot,
		Priority:      withdrawalNotificationPriority,
		CreatedAt:     w.CreatedAt,
	}
	uc.dispatch(func() {
		if err := uc.notifier.PublishWithdrawalCreated(task); err != nil {
			uc.logger.Warn("Failed to publish withdrawal notification %s: %v", w.ID, err)
		}
	})
}

func (uc *withdrawalUseCase) List(ctx context.Context, userID string, page, pageSize int) (*entity.WithdrawalPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	withdrawals, total, err := uc.store.Withdrawals().ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		uc.logger.Error("Failed to list withdrawals for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	return &entity.WithdrawalPage{
		Withdrawals: withdrawals,
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
	}, nil
}

// currentRate reads the latest published rate, falling back to the
// configured default when none has been published yet.
func currentRate(ctx context.Context, store persistent.Store, policy Policy, now time.Time) (*entity.ConversionRate, error) {
	rate, err := store.ConversionRates().Current(ctx, now)
	if errors.Is(err, persistent.ErrNotFound) {
		return &entity.ConversionRate{Rate: policy.DefaultRate, EffectiveFrom: now, Currency: policy.Currency}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversion rate: %w", err)
	}
	rate.Currency = policy.Currency
	return rate, nil
}
