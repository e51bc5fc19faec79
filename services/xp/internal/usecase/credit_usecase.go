package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"xp-cashout/pkg/logger"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/repo/persistent"
)

const (
	maxSourceLength = 64
	maxNonceLength  = 255

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

type CreditRequest struct {
	UserID         string
	IdempotencyKey string
	ClientIP       string
	Events         []entity.CreditEvent
}

type CreditUseCase interface {
	Credit(ctx context.Context, req CreditRequest) (*Response, error)
	History(ctx context.Context, userID, cursor string, limit int) (*entity.HistoryPage, error)
}

type creditUseCase struct {
	store  persistent.Store
	policy Policy
	guard  *guard
	logger *logger.Logger
	now    func() time.Time
}

func NewCreditUseCase(store persistent.Store, policy Policy, logger *logger.Logger) CreditUseCase {
	return &creditUseCase{
		store:  store,
		policy: policy,
		guard:  &guard{store: store, ttl: policy.IdempotencyTTL, logger: logger},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *creditUseCase) Credit(ctx context.Context, req CreditRequest) (*Response, error) {
	now := uc.now()

	if cached, err := uc.guard.replay(ctx, req.IdempotencyKey, req.UserID, now); err != nil || cached != nil {
		return cached, err
	}

	if len(req.Events) == 0 {
		return nil, invalid("events must not be empty")
	}
	if len(req.Events) > MaxEventsPerBatch {
		return nil, invalid("at most %d events per request", MaxEventsPerBatch)
	}

	identifier := req.UserID + ":" + req.ClientIP
	if err := uc.guard.allow(ctx, identifier, EndpointCredit, uc.policy.MaxEventsPerMinute, time.Minute, now); err != nil {
		return nil, err
	}

	resp, err := uc.guard.commit(ctx, req.IdempotencyKey, req.UserID, now,
		func(tx persistent.Store) error {
			if err := tx.Profiles().Bootstrap(ctx, req.UserID, nil); err != nil {
				return fmt.Errorf("bootstrap profile: %w", err)
			}
			_, err := tx.Profiles().Lock(ctx, req.UserID)
			return err
		},
		func(tx persistent.Store) (interface{}, error) {
			return uc.apply(ctx, tx, req, now)
		},
	)
	if err != nil {
		if !isBusinessError(err) {
			uc.logger.Error("Failed to credit xp for user %s: %v", req.UserID, err)
		}
		return nil, err
	}
	return resp, nil
}

func (uc *creditUseCase) apply(ctx context.Context, tx persistent.Store, req CreditRequest, now time.Time) (*entity.CreditResult, error) {
	risky, err := tx.Profiles().HasRiskyDevice(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("device risk lookup: %w", err)
	}
	dailyCap := uc.policy.DailyCap(risky)

	midnight := startOfUTCDay(now)
	todayTotal, err := tx.Ledger().CreditedSince(ctx, req.UserID, midnight)
	if err != nil {
		return nil, fmt.Errorf("daily total: %w", err)
	}

	remaining := dailyCap - todayTotal
	if remaining < 0 {
		remaining = 0
	}
	if err := uc.checkRequestedXP(ctx, tx, req, remaining, now); err != nil {
		if errors.Is(err, ErrDailyCapExceeded) {
			return nil, &LimitError{
				Err:        ErrDailyCapExceeded,
				Limit:      dailyCap,
				RetryAfter: midnight.Add(24 * time.Hour).Sub(now),
			}
		}
		return nil, err
	}

	result := &entity.CreditResult{Events: make([]entity.EventResult, 0, len(req.Events))}
	for _, ev := range req.Events {
		if msg := validateEvent(ev, uc.policy.MaxXPPerDay); msg != "" {
			result.Events = append(result.Events, entity.EventResult{Nonce: ev.Nonce, Status: entity.EventError, Error: msg})
			continue
		}

		credited, err := uc.creditEvent(ctx, tx, req.UserID, ev, now)
		switch {
		case err != nil:
			uc.logger.Error("Failed to record xp event nonce=%s user=%s: %v", ev.Nonce, req.UserID, err)
			result.Events = append(result.Events, entity.EventResult{Nonce: ev.Nonce, Status: entity.EventError, Error: "failed to record event"})
		case credited:
			delta := ev.XPDelta
			result.Credited++
			result.Events = append(result.Events, entity.EventResult{Nonce: ev.Nonce, Status: entity.EventCredited, XPDelta: &delta})
		default:
			result.Duplicates++
			result.Events = append(result.Events, entity.EventResult{Nonce: ev.Nonce, Status: entity.EventDuplicate})
		}
	}

	balance, err := tx.Ledger().Balance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	result.TotalXP = balance
	return result, nil
}

// checkRequestedXP sums the deltas that would actually be credited: valid
// events whose nonce is neither live in storage nor repeated earlier in the
// batch. It stops with ErrDailyCapExceeded as soon as the sum passes
// remaining. Each delta is bounded by the daily maximum, so the sum cannot
// overflow.
func (uc *creditUseCase) checkRequestedXP(ctx context.Context, tx persistent.Store, req CreditRequest, remaining int64, now time.Time) error {
	var requested int64
	inBatch := make(map[string]struct{}, len(req.Events))
	for _, ev := range req.Events {
		if validateEvent(ev, uc.policy.MaxXPPerDay) != "" {
			continue
		}
		if _, dup := inBatch[ev.Nonce]; dup {
			continue
		}
		inBatch[ev.Nonce] = struct{}{}

		seen, err := tx.Nonces().Seen(ctx, ev.Nonce, req.UserID, now)
		if err != nil {
			return fmt.Errorf("nonce lookup: %w", err)
		}
		if seen {
			continue
		}
		requested += ev.XPDelta
		if requested > remaining {
			return ErrDailyCapExceeded
		}
	}
	return nil
}

// creditEvent claims the nonce and appends the ledger entry inside a
// savepoint, so a failure only discards this event.
func (uc *creditUseCase) creditEvent(ctx context.Context, tx persistent.Store, userID string, ev entity.CreditEvent, now time.Time) (bool, error) {
	source := normalizeSource(ev.Source)
	credited := false
	err := tx.Transaction(ctx, func(sp persistent.Store) error {
		recorded, err := sp.Nonces().Record(ctx, ev.Nonce, userID, source, ev.XPDelta, now.Add(uc.policy.NonceTTL), now)
		if err != nil || !recorded {
			return err
		}
		if err := sp.Ledger().Append(ctx, &entity.LedgerEntry{
			UserID:    userID,
			Source:    source,
			XPDelta:   ev.XPDelta,
			Metadata:  ev.Metadata,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}

func validateEvent(ev entity.CreditEvent, maxDelta int64) string {
	source := normalizeSource(ev.Source)
	switch {
	case strings.TrimSpace(ev.Nonce) == "":
		return "nonce is required"
	case len(ev.Nonce) > maxNonceLength:
		return "nonce is too long"
	case ev.XPDelta <= 0:
		return "xp_delta must be a positive number"
	case ev.XPDelta > maxDelta:
		return fmt.Sprintf("xp_delta must not exceed %d", maxDelta)
	case len(source) > maxSourceLength:
		return "source is too long"
	case entity.ReservedSource(source):
		return fmt.Sprintf("source %q is reserved", source)
	}
	return ""
}

func normalizeSource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return entity.SourceUnknown
	}
	return source
}

func (uc *creditUseCase) History(ctx context.Context, userID, cursor string, limit int) (*entity.HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var before *entity.LedgerCursor
	if cursor != "" {
		parsed, err := entity.ParseLedgerCursor(cursor)
		if err != nil {
			return nil, invalid("invalid cursor")
		}
		before = parsed
	}

	entries, err := uc.store.Ledger().History(ctx, userID, before, limit+1)
	if err != nil {
		uc.logger.Error("Failed to load xp history for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	page := &entity.HistoryPage{Events: entries}
	if len(entries) > limit {
		page.Events = entries[:limit]
		page.HasMore = true
		last := page.Events[limit-1]
		next := entity.LedgerCursor{CreatedAt: last.CreatedAt, ID: last.ID}.String()
		page.NextCursor = &next
	}
	return page, nil
}
