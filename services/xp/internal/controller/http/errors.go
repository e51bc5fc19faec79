package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"xp-cashout/services/xp/internal/usecase"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{usecase.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{usecase.ErrWithdrawTooSmall, http.StatusBadRequest, "withdraw_too_small"},
	{usecase.ErrInsufficientXP, http.StatusBadRequest, "insufficient_xp"},
	{usecase.ErrCooldownActive, http.StatusBadRequest, "withdraw_cooldown"},
	{usecase.ErrWithdrawLimitExceeded, http.StatusBadRequest, "withdraw_limit_exceeded"},
	{usecase.ErrInvalidReferralCode, http.StatusBadRequest, "invalid_referral_code"},
	{usecase.ErrSelfReferral, http.StatusBadRequest, "invalid_referral"},
	{usecase.ErrAlreadyReferred, http.StatusBadRequest, "already_referred"},
	{usecase.ErrProfileNotFound, http.StatusNotFound, "profile_not_found"},
	{usecase.ErrWithdrawalNotFound, http.StatusNotFound, "not_found"},
	{usecase.ErrReferralNotFound, http.StatusNotFound, "not_found"},
	{usecase.ErrInvalidStatus, http.StatusConflict, "invalid_status"},
	{usecase.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{usecase.ErrDailyCapExceeded, http.StatusTooManyRequests, "daily_cap_exceeded"},
	{usecase.ErrExportUnavailable, http.StatusServiceUnavailable, "export_unavailable"},
}

// respondError writes the error body for err. Unknown errors become a 500
// without leaking their text.
func respondError(c *gin.Context, err error) {
	var limitErr *usecase.LimitError
	if errors.As(err, &limitErr) {
		c.Header("Retry-After", retryAfterSeconds(limitErr.RetryAfter))
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := gin.H{"error": m.code, "message": err.Error()}

		var cooldown *usecase.CooldownError
		if errors.As(err, &cooldown) {
			body["next_available_at"] = cooldown.NextAvailable.UTC().Format(time.RFC3339)
		}
		var minimum *usecase.MinimumError
		if errors.As(err, &minimum) {
			body["min_xp"] = minimum.Minimum
		}
		if limitErr != nil {
			body["limit"] = limitErr.Limit
		}

		c.JSON(m.status, body)
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Internal server error"})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: message})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

// writeStored sends a serialized mutation result exactly as it was stored.
func writeStored(c *gin.Context, resp *usecase.Response) {
	if resp.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Body)
}
