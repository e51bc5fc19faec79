package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrRateLimited           = errors.New("rate limit exceeded")
	ErrDailyCapExceeded      = errors.New("daily xp cap exceeded")
	ErrWithdrawTooSmall      = errors.New("withdrawal below minimum")
	ErrInsufficientXP        = errors.New("insufficient xp balance")
	ErrCooldownActive        = errors.New("withdrawal cooldown active")
	ErrWithdrawLimitExceeded = errors.New("withdrawal limit exceeded")
	ErrProfileNotFound       = errors.New("profile not found")
	ErrWithdrawalNotFound    = errors.New("withdrawal not found")
	ErrReferralNotFound      = errors.New("referral not found")
	ErrInvalidStatus         = errors.New("invalid status transition")
	ErrInvalidReferralCode   = errors.New("invalid referral code")
	ErrSelfReferral          = errors.New("cannot use own referral code")
	ErrAlreadyReferred       = errors.New("user already referred")
	ErrExportUnavailable     = errors.New("payout export storage not configured")
)

// ValidationError describes a malformed request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// LimitError wraps ErrRateLimited or ErrDailyCapExceeded with the time the
// caller should wait before retrying.
type LimitError struct {
	Err        error
	Limit      int64
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v (limit %d, retry after %s)", e.Err, e.Limit, e.RetryAfter)
}

func (e *LimitError) Unwrap() error { return e.Err }

type CooldownError struct {
	NextAvailable time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v until %s", ErrCooldownActive, e.NextAvailable.UTC().Format(time.RFC3339))
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

type MinimumError struct {
	Minimum int64
}

func (e *MinimumError) Error() string {
	return fmt.Sprintf("%v: minimum is %d xp", ErrWithdrawTooSmall, e.Minimum)
}

func (e *MinimumError) Unwrap() error { return ErrWithdrawTooSmall }

// isBusinessError reports rule violations that are expected outcomes rather
// than failures.
func isBusinessError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest, ErrRateLimited, ErrDailyCapExceeded, ErrWithdrawTooSmall,
		ErrInsufficientXP, ErrCooldownActive, ErrWithdrawLimitExceeded, ErrProfileNotFound,
		ErrWithdrawalNotFound, ErrReferralNotFound, ErrInvalidStatus, ErrInvalidReferralCode,
		ErrSelfReferral, ErrAlreadyReferred,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
