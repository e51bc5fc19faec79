package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type ConversionRate struct {
	ID            string          `json:"id,omitempty"`
	Rate          decimal.Decimal `json:"rate" swaggertype:"string"`
	EffectiveFrom time.Time       `json:"effective_from"`
	Currency      string          `json:"currency"`
}

// Convert returns floor(xp * rate) in whole currency units.
func (r ConversionRate) Convert(xp int64) int64 {
	return decimal.NewFromInt(xp).Mul(r.Rate).Floor().IntPart()
}
