package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"xp-cashout/pkg/queue"
	"xp-cashout/services/xp/internal/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const payoutUser = "22222222-2222-2222-2222-222222222222"

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishWithdrawalCreated(task queue.NotificationTask) error {
	args := m.Called(task)
	return args.Error(0)
}

func newWithdrawalUseCase(store *memStore, notifier Notifier) *withdrawalUseCase {
	uc := NewWithdrawalUseCase(store, testPolicy(), notifier, newTestLogger()).(*withdrawalUseCase)
	uc.now = fixedClock(testNow)
	uc.dispatch = func(fn func()) { fn() }
	return uc
}

func withdrawReq(key string, xp int64) WithdrawalRequest {
	return WithdrawalRequest{UserID: payoutUser, IdempotencyKey: key, XPToConvert: xp}
}

func fundedStore(xp int64) *memStore {
	store := newMemStore()
	store.addProfile(payoutUser, strPtr("+255700000001"), strPtr("payout@example.com"))
	store.addLedger(payoutUser, "lesson_complete", xp, testNow.Add(-48*time.Hour))
	return store
}

func TestWithdrawal_ConvertsAndDebits(t *testing.T) {
	store := fundedStore(5000)
	notifier := new(MockNotifier)
	notifier.On("PublishWithdrawalCreated", mock.MatchedBy(func(task queue.NotificationTask) bool {
		return task.UserID == payoutUser && task.Amount == 250 && task.Type == queue.TaskTypeWithdrawalCreated
	})).Return(nil).Once()
	uc := newWithdrawalUseCase(store, notifier)

	resp, err := uc.Create(context.Background(), withdrawReq("w1", 5000))
	require.NoError(t, err)

	var result entity.WithdrawalResult
	decode(t, resp.Body, &result)
	assert.NotEmpty(t, result.WithdrawalID)
	assert.Equal(t, int64(0), result.XPBalance)
	assert.Equal(t, int64(250), result.Amount)
	assert.Equal(t, "TZS", result.Currency)
	assert.Equal(t, int64(0), store.balance(payoutUser))

	require.Len(t, store.db.state.withdrawals, 1)
	w := store.db.state.withdrawals[0]
	assert.Equal(t, result.WithdrawalID, w.ID)
	assert.Equal(t, entity.WithdrawalPending, w.Status)
	assert.Equal(t, "+255700000001", w.PhoneSnapshot)
	assert.True(t, w.RateSnapshot.Equal(decimal.RequireFromString("0.05")))

	debit := store.db.state.ledger[len(store.db.state.ledger)-1]
	assert.Equal(t, entity.SourceWithdrawal, debit.Source)
	assert.Equal(t, int64(-5000), debit.XPDelta)
	assert.Equal(t, result.WithdrawalID, metadataField(debit.Metadata, "withdrawal_id"))

	notifier.AssertExpectations(t)

	_, err = uc.Create(context.Background(), withdrawReq("w2", 5000))
	assert.True(t, errors.Is(err, ErrInsufficientXP))
}

func TestWithdrawal_CooldownAfterSuccess(t *testing.T) {
	store := fundedStore(20000)
	uc := newWithdrawalUseCase(store, nil)
	ctx := context.Background()

	_, err := uc.Create(ctx, withdrawReq("w1", 5000))
	require.NoError(t, err)

	uc.now = fixedClock(testNow.Add(6 * 24 * time.Hour))
	_, err = uc.Create(ctx, withdrawReq("w2", 5000))
	require.True(t, errors.Is(err, ErrCooldownActive))
	var cooldown *CooldownError
	require.True(t, errors.As(err, &cooldown))
	assert.Equal(t, testNow.Add(7*24*time.Hour), cooldown.NextAvailable)

	uc.now = fixedClock(testNow.Add(7 * 24 * time.Hour))
	_, err = uc.Create(ctx, withdrawReq("w3", 5000))
	assert.NoError(t, err)
	assert.Equal(t, int64(10000), store.balance(payoutUser))
}

func TestWithdrawal_LimitPerWindow(t *testing.T) {
	store := fundedStore(20000)
	uc := newWithdrawalUseCase(store, nil)
	uc.policy.WithdrawalCooldown = 0
	ctx := context.Background()

	_, err := uc.Create(ctx, withdrawReq("w1", 5000))
	require.NoError(t, err)

	uc.now = fixedClock(testNow.Add(time.Hour))
	_, err = uc.Create(ctx, withdrawReq("w2", 5000))
	assert.True(t, errors.Is(err, ErrWithdrawLimitExceeded))
}

func TestWithdrawal_RejectedWithdrawalStillCounts(t *testing.T) {
	store := fundedStore(20000)
	store.db.state.withdrawals = append(store.db.state.withdrawals, entity.Withdrawal{
		ID:        "old",
		UserID:    payoutUser,
		Status:    entity.WithdrawalRejected,
		CreatedAt: testNow.Add(-24 * time.Hour),
	})
	uc := newWithdrawalUseCase(store, nil)

	_, err := uc.Create(context.Background(), withdrawReq("w1", 5000))
	assert.True(t, errors.Is(err, ErrCooldownActive))
}

func TestWithdrawal_BelowMinimum(t *testing.T) {
	store := fundedStore(20000)
	uc := newWithdrawalUseCase(store, nil)

	_, err := uc.Create(context.Background(), withdrawReq("w1", 4999))
	require.True(t, errors.Is(err, ErrWithdrawTooSmall))
	var minErr *MinimumError
	require.True(t, errors.As(err, &minErr))
	assert.Equal(t, int64(5000), minErr.Minimum)
	assert.Equal(t, int64(20000), store.balance(payoutUser))
}

func TestWithdrawal_InsufficientXP(t *testing.T) {
	store := fundedStore(4000)
	uc := newWithdrawalUseCase(store, nil)

	_, err := uc.Create(context.Background(), withdrawReq("w1", 5000))
	assert.True(t, errors.Is(err, ErrInsufficientXP))
	assert.Empty(t, store.db.state.withdrawals)
	assert.Equal(t, int64(4000), store.balance(payoutUser))
}

func TestWithdrawal_ProfileNotFound(t *testing.T) {
	store := newMemStore()
	uc := newWithdrawalUseCase(store, nil)

	_, err := uc.Create(context.Background(), withdrawReq("w1", 5000))
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestWithdrawal_ContactFallback(t *testing.T) {
	store := newMemStore()
	store.addProfile(payoutUser, nil, strPtr("only-email@example.com"))
	store.addLedger(payoutUser, "lesson_complete", 5000, testNow.Add(-time.Hour))
	uc := newWithdrawalUseCase(store, nil)

	_, err := uc.Create(context.Background(), withdrawReq("w1", 5000))
	require.NoError(t, err)
	assert.Equal(t, "only-email@example.com", store.db.state.withdrawals[0].PhoneSnapshot)

	other := "33333333-3333-3333-3333-333333333333"
	store.addProfile(other, nil, nil)
	store.addLedger(other, "lesson_complete", 5000, testNow.Add(-time.Hour))
	_, err = uc.Create(context.Background(), WithdrawalRequest{UserID: other, IdempotencyKey: "w1", XPToConvert: 5000})
	require.NoError(t, err)
	assert.Equal(t, "N/A", store.db.state.withdrawals[1].PhoneSnapshot)
}

func TestWithdrawal_UsesPublishedRate(t *testing.T) {
	store := fundedStore(7777)
	store.db.state.rates = []entity.ConversionRate{
		{ID: "old", Rate: decimal.RequireFromString("0.04"), EffectiveFrom: testNow.Add(-48 * time.Hour)},
		{ID: "current", Rate: decimal.RequireFromString("0.07"), EffectiveFrom: testNow.Add(-time.Hour)},
		{ID: "future", Rate: decimal.RequireFromString("1.00"), EffectiveFrom: testNow.Add(time.Hour)},
	}
	uc := newWithdrawalUseCase(store, nil)

	resp, err := uc.Create(context.Background(), withdrawReq("w1", 7777))
	require.NoError(t, err)

	var result entity.WithdrawalResult
	decode(t, resp.Body, &result)
	// floor(7777 * 0.07) = floor(544.39)
	assert.Equal(t, int64(544), result.Amount)
	assert.True(t, store.db.state.withdrawals[0].RateSnapshot.Equal(decimal.RequireFromString("0.07")))
}

func TestWithdrawal_ReplayDoesNotDebitTwice(t *testing.T) {
	store := fundedStore(10000)
	notifier := new(MockNotifier)
	notifier.On("PublishWithdrawalCreated", mock.Anything).Return(nil).Once()
	uc := newWithdrawalUseCase(store, notifier)
	ctx := context.Background()

	first, err := uc.Create(ctx, withdrawReq("same", 5000))
	require.NoError(t, err)
	second, err := uc.Create(ctx, withdrawReq("same", 5000))
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, int64(5000), store.balance(payoutUser))
	assert.Len(t, store.db.state.withdrawals, 1)
	notifier.AssertNumberOfCalls(t, "PublishWithdrawalCreated", 1)
}

func TestWithdrawal_NotificationFailureIsSwallowed(t *testing.T) {
	store := fundedStore(5000)
	notifier := new(MockNotifier)
	notifier.On("PublishWithdrawalCreated", mock.Anything).Return(errors.New("broker down"))
	uc := newWithdrawalUseCase(store, notifier)

	resp, err := uc.Create(context.Background(), withdrawReq("w1", 5000))
	require.NoError(t, err)
	assert.False(t, resp.Replayed)
	assert.Len(t, store.db.state.withdrawals, 1)
}

func TestWithdrawal_ConcurrentExactBalance(t *testing.T) {
	store := fundedStore(5000)
	uc := newWithdrawalUseCase(store, nil)
	uc.policy.WithdrawalCooldown = 0
	uc.policy.MaxWithdrawalsPerWindow = 10

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Create(context.Background(), withdrawReq(fmt.Sprintf("key-%d", i), 5000))
		}(i)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientXP):
			insufficient++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(0), store.balance(payoutUser))
}

func TestWithdrawal_RateLimited(t *testing.T) {
	store := fundedStore(100)
	uc := newWithdrawalUseCase(store, nil)

	for i := 0; i < 10; i++ {
		_, err := uc.Create(context.Background(), withdrawReq(fmt.Sprintf("k%d", i), 5000))
		require.True(t, errors.Is(err, ErrInsufficientXP))
	}
	_, err := uc.Create(context.Background(), withdrawReq("k-over", 5000))
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestWithdrawal_List(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 25; i++ {
		store.db.state.withdrawals = append(store.db.state.withdrawals, entity.Withdrawal{
			ID:        fmt.Sprintf("w%02d", i),
			UserID:    payoutUser,
			Status:    entity.WithdrawalPending,
			CreatedAt: testNow.Add(time.Duration(i) * time.Hour),
		})
	}
	uc := newWithdrawalUseCase(store, nil)

	page, err := uc.List(context.Background(), payoutUser, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Equal(t, int64(25), page.Total)
	require.Len(t, page.Withdrawals, 20)
	assert.Equal(t, "w24", page.Withdrawals[0].ID)

	page, err = uc.List(context.Background(), payoutUser, 2, 20)
	require.NoError(t, err)
	assert.Len(t, page.Withdrawals, 5)
}
