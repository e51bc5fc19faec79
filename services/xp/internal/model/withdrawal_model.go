package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalModel struct {
	ID            string          `gorm:"type:uuid;primary_key"`
	UserID        string          `gorm:"type:uuid;not null;index"`
	PhoneSnapshot string          `gorm:"type:varchar(255);not null"`
	XPDebited     int64           `gorm:"column:xp_debited;not null"`
	Amount        int64           `gorm:"not null"`
	Currency      string          `gorm:"type:varchar(8);not null"`
	RateSnapshot  decimal.Decimal `gorm:"type:numeric(18,8);not null"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending'"`
	PayoutRef     *string         `gorm:"type:varchar(255)"`
	RejectReason  *string         `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (WithdrawalModel) TableName() string {
	return "withdrawals"
}

type ConversionRateModel struct {
	ID            string          `gorm:"type:uuid;primary_key"`
	Rate          decimal.Decimal `gorm:"type:numeric(18,8);not null"`
	EffectiveFrom time.Time       `gorm:"not null"`
	CreatedAt     time.Time
}

func (ConversionRateModel) TableName() string {
	return "conversion_rates"
}
