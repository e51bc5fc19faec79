package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionRate_Convert(t *testing.T) {
	rate := ConversionRate{Rate: decimal.RequireFromString("0.05")}
	assert.Equal(t, int64(250), rate.Convert(5000))
	assert.Equal(t, int64(250), rate.Convert(5019))
	assert.Equal(t, int64(251), rate.Convert(5020))

	odd := ConversionRate{Rate: decimal.RequireFromString("0.3")}
	assert.Equal(t, int64(3), odd.Convert(10))
}

func TestReservedSource(t *testing.T) {
	assert.True(t, ReservedSource(SourceWithdrawal))
	assert.True(t, ReservedSource(SourceReferralReward))
	assert.False(t, ReservedSource("lesson_complete"))
	assert.False(t, ReservedSource(""))
	assert.True(t, ReservedSource(" referral_reward"))
	assert.True(t, ReservedSource("Referral_Reward"))
	assert.True(t, ReservedSource("WITHDRAWAL\n"))
}

func TestLedgerCursor_RoundTrip(t *testing.T) {
	cursor := LedgerCursor{
		CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 123456000, time.UTC),
		ID:        "4f0c1b7e-1111-2222-3333-444455556666",
	}

	parsed, err := ParseLedgerCursor(cursor.String())
	require.NoError(t, err)
	assert.True(t, cursor.CreatedAt.Equal(parsed.CreatedAt))
	assert.Equal(t, cursor.ID, parsed.ID)
}

func TestParseLedgerCursor_Malformed(t *testing.T) {
	for _, raw := range []string{"", "2026-03-01T10:30:00Z", "not-a-time|id", "2026-03-01T10:30:00Z|"} {
		_, err := ParseLedgerCursor(raw)
		assert.Error(t, err, raw)
	}
}
