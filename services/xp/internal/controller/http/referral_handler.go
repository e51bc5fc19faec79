package http

import (
	"net/http"

	"xp-cashout/pkg/middleware"
	"xp-cashout/services/xp/internal/usecase"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	referralUseCase usecase.ReferralUseCase
}

func NewReferralHandler(referralUseCase usecase.ReferralUseCase) *ReferralHandler {
	return &ReferralHandler{
		referralUseCase: referralUseCase,
	}
}

type ReferralSignupRequest struct {
	ReferralCode string `json:"referral_code" binding:"required"`
}

// Overview godoc
// @Summary      Referral overview
// @Description  Get the caller's referral code, statistics and referrals
// @Tags         referrals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.ReferralOverview
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /referrals [get]
func (h *ReferralHandler) Overview(c *gin.Context) {
	overview, err := h.referralUseCase.Overview(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// Signup godoc
// @Summary      Record a referral
// @Description  Link the caller to the owner of a referral code
// @Tags         referrals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ReferralSignupRequest true "Referral code"
// @Success      200  {object}  entity.ReferralSignupResult
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      429  {object}  ErrorResponse
// @Router       /referrals/signup [post]
func (h *ReferralHandler) Signup(c *gin.Context) {
	var req ReferralSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "referral_code is required")
		return
	}

	result, err := h.referralUseCase.Signup(c.Request.Context(), c.GetString(middleware.ContextUserID), c.ClientIP(), req.ReferralCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Validate godoc
// @Summary      Validate a referral code
// @Tags         referrals
// @Produce      json
// @Param        code  query  string  true  "Referral code"
// @Success      200  {object}  map[string]bool
// @Failure      500  {object}  ErrorResponse
// @Router       /referrals/validate [get]
func (h *ReferralHandler) Validate(c *gin.Context) {
	valid, err := h.referralUseCase.Validate(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
