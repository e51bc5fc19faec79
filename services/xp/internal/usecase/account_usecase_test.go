package usecase

import (
	"context"
	"testing"
	"time"

	"xp-cashout/services/xp/internal/entity"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_MeBootstrapsProfile(t *testing.T) {
	store := newMemStore()
	uc := NewAccountUseCase(store, newTestLogger())

	account, err := uc.Me(context.Background(), payoutUser)
	require.NoError(t, err)
	assert.Equal(t, payoutUser, account.Profile.ID)
	assert.Equal(t, "none", account.Profile.KYCLevel)
	assert.Equal(t, int64(0), account.XPBalance)
	require.NotNil(t, account.ReferralCode)
	assert.Len(t, *account.ReferralCode, 8)

	again, err := uc.Me(context.Background(), payoutUser)
	require.NoError(t, err)
	assert.Equal(t, *account.ReferralCode, *again.ReferralCode)
}

func TestAccount_MeReportsBalance(t *testing.T) {
	store := fundedStore(1234)
	store.addLedger(payoutUser, entity.SourceWithdrawal, -200, testNow)
	uc := NewAccountUseCase(store, newTestLogger())

	account, err := uc.Me(context.Background(), payoutUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1034), account.XPBalance)
	require.NotNil(t, account.Profile.Phone)
	assert.Equal(t, "+255700000001", *account.Profile.Phone)
}

func TestAccount_Health(t *testing.T) {
	store := newMemStore()
	uc := NewAccountUseCase(store, newTestLogger())
	assert.NoError(t, uc.Health(context.Background()))

	store.db.failOps["ping"] = assert.AnError
	assert.ErrorIs(t, uc.Health(context.Background()), assert.AnError)
}

func TestConversion_DefaultAndPublished(t *testing.T) {
	store := newMemStore()
	uc := NewConversionUseCase(store, testPolicy(), nil, newTestLogger()).(*conversionUseCase)
	uc.now = fixedClock(testNow)

	rate, err := uc.CurrentRate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Rate.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, "TZS", rate.Currency)

	store.db.state.rates = append(store.db.state.rates, entity.ConversionRate{
		ID: "r1", Rate: decimal.RequireFromString("0.06"), EffectiveFrom: testNow.Add(-time.Hour),
	})
	rate, err = uc.CurrentRate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Rate.Equal(decimal.RequireFromString("0.06")))
}

func TestConversion_CacheUnavailableFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	uc := NewConversionUseCase(newMemStore(), testPolicy(), client, newTestLogger()).(*conversionUseCase)
	uc.now = fixedClock(testNow)

	rate, err := uc.CurrentRate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Rate.Equal(decimal.RequireFromString("0.05")))
}

func TestConversion_StorageError(t *testing.T) {
	store := newMemStore()
	store.db.failOps["rate.current"] = assert.AnError
	uc := NewConversionUseCase(store, testPolicy(), nil, newTestLogger())

	_, err := uc.CurrentRate(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
