package http

import (
	"net/http"
	"strconv"

	"xp-cashout/pkg/middleware"
	"xp-cashout/services/xp/internal/usecase"

	"github.com/gin-gonic/gin"
)

type WithdrawalHandler struct {
	withdrawalUseCase usecase.WithdrawalUseCase
}

func NewWithdrawalHandler(withdrawalUseCase usecase.WithdrawalUseCase) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalUseCase: withdrawalUseCase,
	}
}

type CreateWithdrawalRequest struct {
	XPToConvert int64 `json:"xp_to_convert" binding:"required"`
}

// Create godoc
// @Summary      Request a withdrawal
// @Description  Convert XP into a pending cash payout at the current rate
// @Tags         withdrawals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string true "Idempotency key"
// @Param        request body CreateWithdrawalRequest true "Amount of XP to convert"
// @Success      200  {object}  entity.WithdrawalResult
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      429  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /withdrawals [post]
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "xp_to_convert is required")
		return
	}

	resp, err := h.withdrawalUseCase.Create(c.Request.Context(), usecase.WithdrawalRequest{
		UserID:         c.GetString(middleware.ContextUserID),
		IdempotencyKey: c.GetString(middleware.ContextIdempotencyKey),
		XPToConvert:    req.XPToConvert,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	writeStored(c, resp)
}

// List godoc
// @Summary      List withdrawals
// @Tags         withdrawals
// @Produce      json
// @Security     BearerAuth
// @Param        page       query  int  false  "Page number"
// @Param        page_size  query  int  false  "Page size (default 20, max 100)"
// @Success      200  {object}  entity.WithdrawalPage
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /withdrawals [get]
func (h *WithdrawalHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(usecase.DefaultPageSize)))

	result, err := h.withdrawalUseCase.List(c.Request.Context(), c.GetString(middleware.ContextUserID), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
