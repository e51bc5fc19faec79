package model

import (
	"time"

	"gorm.io/datatypes"
)

type LedgerEntryModel struct {
	ID        string         `gorm:"type:uuid;primary_key"`
	UserID    string         `gorm:"type:uuid;not null;index"`
	Source    string         `gorm:"type:varchar(64);not null"`
	XPDelta   int64          `gorm:"column:xp_delta;not null"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
}

func (LedgerEntryModel) TableName() string {
	return "xp_ledger"
}

type IdempotencyKeyModel struct {
	Key          string `gorm:"primaryKey;type:varchar(255)"`
	UserID       string `gorm:"primaryKey;type:uuid"`
	ResponseBody string `gorm:"type:text;not null"`
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func (IdempotencyKeyModel) TableName() string {
	return "idempotency_keys"
}

type EventNonceModel struct {
	Nonce     string `gorm:"primaryKey;type:varchar(255)"`
	UserID    string `gorm:"primaryKey;type:uuid"`
	Source    string `gorm:"type:varchar(64);not null"`
	XPDelta   int64  `gorm:"column:xp_delta;not null"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (EventNonceModel) TableName() string {
	return "xp_event_nonces"
}

type RateLimitModel struct {
	Identifier  string    `gorm:"primaryKey;type:varchar(255)"`
	Endpoint    string    `gorm:"primaryKey;type:varchar(128)"`
	WindowStart time.Time `gorm:"primaryKey"`
	Count       int       `gorm:"not null;default:0"`
}

func (RateLimitModel) TableName() string {
	return "rate_limits"
}
