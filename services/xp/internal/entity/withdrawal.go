package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalPaid     WithdrawalStatus = "paid"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

type Withdrawal struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	PhoneSnapshot string           `json:"phone_snapshot"`
	XPDebited     int64            `json:"xp_debited"`
	Amount        int64            `json:"amount"`
	Currency      string           `json:"currency"`
	RateSnapshot  decimal.Decimal  `json:"rate_snapshot" swaggertype:"string"`
	Status        WithdrawalStatus `json:"status"`
	PayoutRef     *string          `json:"payout_ref,omitempty"`
	RejectReason  *string          `json:"reject_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type WithdrawalResult struct {
	WithdrawalID string `json:"withdrawal_id"`
	XPBalance    int64  `json:"xp_balance"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type WithdrawalPage struct {
	Withdrawals []*Withdrawal `json:"withdrawals"`
	Total       int64         `json:"total"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
}

type PayoutExport struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}
