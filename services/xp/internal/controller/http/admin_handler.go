package http

import (
	"net/http"

	"xp-cashout/services/xp/internal/usecase"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminUseCase    usecase.AdminUseCase
	referralUseCase usecase.ReferralUseCase
}

func NewAdminHandler(adminUseCase usecase.AdminUseCase, referralUseCase usecase.ReferralUseCase) *AdminHandler {
	return &AdminHandler{
		adminUseCase:    adminUseCase,
		referralUseCase: referralUseCase,
	}
}

type MarkPaidRequest struct {
	PayoutRef string `json:"payout_ref" binding:"required"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// MarkPaid godoc
// @Summary      Mark a withdrawal as paid
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string           true  "Withdrawal ID"
// @Param        request  body  MarkPaidRequest  true  "Payout reference"
// @Success      200  {object}  entity.Withdrawal
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /admin/withdrawals/{id}/mark-paid [post]
func (h *AdminHandler) MarkPaid(c *gin.Context) {
	var req MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "payout_ref is required")
		return
	}

	withdrawal, err := h.adminUseCase.MarkPaid(c.Request.Context(), c.Param("id"), req.PayoutRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawal)
}

// Reject godoc
// @Summary      Reject a withdrawal
// @Description  Close a pending withdrawal. The debited XP is not refunded.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string         true  "Withdrawal ID"
// @Param        request  body  RejectRequest  true  "Reason"
// @Success      200  {object}  entity.Withdrawal
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /admin/withdrawals/{id}/reject [post]
func (h *AdminHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "reason is required")
		return
	}

	withdrawal, err := h.adminUseCase.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawal)
}

// Export godoc
// @Summary      Export pending payouts
// @Description  Upload a CSV of pending withdrawals to object storage
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.PayoutExport
// @Failure      403  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /admin/withdrawals/export [post]
func (h *AdminHandler) Export(c *gin.Context) {
	export, err := h.adminUseCase.ExportPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, export)
}

// Qualify godoc
// @Summary      Qualify a referral
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Referral ID"
// @Success      200  {object}  entity.Referral
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/referrals/{id}/qualify [post]
func (h *AdminHandler) Qualify(c *gin.Context) {
	referral, err := h.referralUseCase.Qualify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, referral)
}

// Reward godoc
// @Summary      Reward a referral
// @Description  Credit the referrer once for a qualified referral
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Referral ID"
// @Success      200  {object}  entity.Referral
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /admin/referrals/{id}/reward [post]
func (h *AdminHandler) Reward(c *gin.Context) {
	referral, err := h.referralUseCase.Reward(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, referral)
}
