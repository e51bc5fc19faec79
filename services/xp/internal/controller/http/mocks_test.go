package http

import (
	"context"

	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

// MockCreditUseCase is a mock implementation of CreditUseCase
type MockCreditUseCase struct {
	mock.Mock
}

func (m *MockCreditUseCase) Credit(ctx context.Context, req usecase.CreditRequest) (*usecase.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Response), args.Error(1)
}

func (m *MockCreditUseCase) History(ctx context.Context, userID, cursor string, limit int) (*entity.HistoryPage, error) {
	args := m.Called(userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.HistoryPage), args.Error(1)
}

// MockWithdrawalUseCase is a mock implementation of WithdrawalUseCase
type MockWithdrawalUseCase struct {
	mock.Mock
}

func (m *MockWithdrawalUseCase) Create(ctx context.Context, req usecase.WithdrawalRequest) (*usecase.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Response), args.Error(1)
}

func (m *MockWithdrawalUseCase) List(ctx context.Context, userID string, page, pageSize int) (*entity.WithdrawalPage, error) {
	args := m.Called(userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.WithdrawalPage), args.Error(1)
}

// MockReferralUseCase is a mock implementation of ReferralUseCase
type MockReferralUseCase struct {
	mock.Mock
}

func (m *MockReferralUseCase) Signup(ctx context.Context, userID, clientIP, code string) (*entity.ReferralSignupResult, error) {
	args := m.Called(userID, clientIP, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ReferralSignupResult), args.Error(1)
}

func (m *MockReferralUseCase) Validate(ctx context.Context, code string) (bool, error) {
	args := m.Called(code)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralUseCase) Overview(ctx context.Context, userID string) (*entity.ReferralOverview, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ReferralOverview), args.Error(1)
}

func (m *MockReferralUseCase) Qualify(ctx context.Context, referralID string) (*entity.Referral, error) {
	args := m.Called(referralID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Referral), args.Error(1)
}

func (m *MockReferralUseCase) Reward(ctx context.Context, referralID string) (*entity.Referral, error) {
	args := m.Called(referralID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Referral), args.Error(1)
}

// MockAdminUseCase is a mock implementation of AdminUseCase
type MockAdminUseCase struct {
	mock.Mock
}

func (m *MockAdminUseCase) MarkPaid(ctx context.Context, withdrawalID, payoutRef string) (*entity.Withdrawal, error) {
	args := m.Called(withdrawalID, payoutRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Withdrawal), args.Error(1)
}

func (m *MockAdminUseCase) Reject(ctx context.Context, withdrawalID, reason string) (*entity.Withdrawal, error) {
	args := m.Called(withdrawalID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Withdrawal), args.Error(1)
}

func (m *MockAdminUseCase) ExportPending(ctx context.Context) (*entity.PayoutExport, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PayoutExport), args.Error(1)
}

// MockAccountUseCase is a mock implementation of AccountUseCase
type MockAccountUseCase struct {
	mock.Mock
}

func (m *MockAccountUseCase) Me(ctx context.Context, userID string) (*entity.Account, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountUseCase) Health(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// MockConversionUseCase is a mock implementation of ConversionUseCase
type MockConversionUseCase struct {
	mock.Mock
}

func (m *MockConversionUseCase) CurrentRate(ctx context.Context) (*entity.ConversionRate, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ConversionRate), args.Error(1)
}

var (
	_ usecase.CreditUseCase     = (*MockCreditUseCase)(nil)
	_ usecase.WithdrawalUseCase = (*MockWithdrawalUseCase)(nil)
	_ usecase.ReferralUseCase   = (*MockReferralUseCase)(nil)
	_ usecase.AdminUseCase      = (*MockAdminUseCase)(nil)
	_ usecase.AccountUseCase    = (*MockAccountUseCase)(nil)
	_ usecase.ConversionUseCase = (*MockConversionUseCase)(nil)
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// asUser runs handler as an authenticated caller with an idempotency key.
func asUser(userID, idempotencyKey string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		if idempotencyKey != "" {
			c.Set("idempotency_key", idempotencyKey)
		}
		handler(c)
	}
}
