package entity

import "encoding/json"

type EventStatus string

const (
	EventCredited  EventStatus = "credited"
	EventDuplicate EventStatus = "duplicate"
	EventError     EventStatus = "error"
)

type CreditEvent struct {
	Nonce    string          `json:"nonce"`
	Source   string          `json:"source"`
	XPDelta  int64           `json:"xp_delta"`
	Metadata json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`
}

type EventResult struct {
	Nonce   string      `json:"nonce"`
	Status  EventStatus `json:"status"`
	XPDelta *int64      `json:"xp_delta,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type CreditResult struct {
	Credited   int           `json:"credited"`
	Duplicates int           `json:"duplicates"`
	TotalXP    int64         `json:"total_xp"`
	Events     []EventResult `json:"events"`
}
