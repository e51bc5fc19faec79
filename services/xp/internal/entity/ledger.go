package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	SourceWithdrawal     = "withdrawal"
	SourceReferralReward = "referral_reward"
	SourceUnknown        = "unknown"
)

// ReservedSource reports whether a source may only be written by the engine
// itself and never by a client credit batch.
// Matching ignores surrounding whitespace and case.
func ReservedSource(source string) bool {
	source = strings.TrimSpace(source)
	return strings.EqualFold(source, SourceWithdrawal) || strings.EqualFold(source, SourceReferralReward)
}

type LedgerEntry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Source    string          `json:"source"`
	XPDelta   int64           `json:"xp_delta"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

type HistoryPage struct {
	Events     []*LedgerEntry `json:"events"`
	NextCursor *string        `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
}

// LedgerCursor points at the last entry of a history page. Entries of one
// credit batch share a timestamp, so the id breaks ties.
type LedgerCursor struct {
	CreatedAt time.Time
	ID        string
}

const cursorSeparator = "|"

func (c LedgerCursor) String() string {
	return c.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + c.ID
}

func ParseLedgerCursor(raw string) (*LedgerCursor, error) {
	ts, id, found := strings.Cut(raw, cursorSeparator)
	if !found || id == "" {
		return nil, fmt.Errorf("malformed cursor %q", raw)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	return &LedgerCursor{CreatedAt: createdAt, ID: id}, nil
}
