package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xp-cashout/pkg/logger"
	"xp-cashout/services/xp/internal/repo/persistent"
)

// Response is a serialized mutation result. Replayed responses are the exact
// bytes stored for the first successful request with the same key.
type Response struct {
	Body     []byte
	Replayed bool
}

type guard struct {
	store  persistent.Store
	ttl    time.Duration
	logger *logger.Logger
}

func (g *guard) replay(ctx context.Context, key, userID string, now time.Time) (*Response, error) {
	body, found, err := g.store.Idempotency().Lookup(ctx, key, userID, now)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &Response{Body: body, Replayed: true}, nil
}

// allow counts one hit against a fixed window. Storage errors deny the
// request as an internal error, never as a capacity error.
func (g *guard) allow(ctx context.Context, identifier, endpoint string, max int, window time.Duration, now time.Time) error {
	start := now.UTC().Truncate(window)
	count, err := g.store.RateLimits().Increment(ctx, identifier, endpoint, start)
	if err != nil {
		g.logger.Error("Rate limit check failed for %s on %s: %v", identifier, endpoint, err)
		return fmt.Errorf("rate limit check: %w", err)
	}
	if count > max {
		return &LimitError{Err: ErrRateLimited, Limit: int64(max), RetryAfter: start.Add(window).Sub(now)}
	}
	return nil
}

// commit runs mutate in one transaction after lock, then stores the encoded
// result under key in the same transaction. The lookup is repeated under the
// lock so a request serialized behind its own duplicate replays instead of
// mutating twice. A lost insert race rolls back and replays the winner.
func (g *guard) commit(ctx context.Context, key, userID string, now time.Time,
	lock func(tx persistent.Store) error,
	mutate func(tx persistent.Store) (interface{}, error),
) (*Response, error) {
	var resp *Response
	err := g.store.Transaction(ctx, func(tx persistent.Store) error {
		if err := lock(tx); err != nil {
			return err
		}

		cached, found, err := tx.Idempotency().Lookup(ctx, key, userID, now)
		if err != nil {
			return fmt.Errorf("idempotency lookup: %w", err)
		}
		if found {
			resp = &Response{Body: cached, Replayed: true}
			return nil
		}

		result, err := mutate(tx)
		if err != nil {
			return err
		}

		body, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := tx.Idempotency().Store(ctx, key, userID, body, now.Add(g.ttl), now); err != nil {
			return err
		}
		resp = &Response{Body: body}
		return nil
	})

	if errors.Is(err, persistent.ErrIdempotencyRace) {
		g.logger.Warn("Idempotency race on key=%s user=%s, replaying stored response", key, userID)
		if cached, lookupErr := g.replay(ctx, key, userID, now); lookupErr == nil && cached != nil {
			return cached, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
