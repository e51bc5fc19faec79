package http

import (
	"net/http"
	"strconv"

	"xp-cashout/pkg/middleware"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/usecase"

	"github.com/gin-gonic/gin"
)

type XPHandler struct {
	creditUseCase usecase.CreditUseCase
}

func NewXPHandler(creditUseCase usecase.CreditUseCase) *XPHandler {
	return &XPHandler{
		creditUseCase: creditUseCase,
	}
}

type CreditRequest struct {
	Events []entity.CreditEvent `json:"events"`
}

// Credit godoc
// @Summary      Credit XP events
// @Description  Apply a batch of XP earning events. Repeated nonces are reported as duplicates.
// @Tags         xp
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string true "Idempotency key"
// @Param        request body CreditRequest true "XP events (1..100)"
// @Success      200  {object}  entity.CreditResult
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      429  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /xp/credit [post]
func (h *XPHandler) Credit(c *gin.Context) {
	var req CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.creditUseCase.Credit(c.Request.Context(), usecase.CreditRequest{
		UserID:         c.GetString(middleware.ContextUserID),
		IdempotencyKey: c.GetString(middleware.ContextIdempotencyKey),
		ClientIP:       c.ClientIP(),
		Events:         req.Events,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	writeStored(c, resp)
}

// History godoc
// @Summary      XP history
// @Description  List ledger entries of the current user, newest first
// @Tags         xp
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int     false  "Page size (default 50, max 100)"
// @Param        cursor  query  string  false  "Cursor from the previous page"
// @Success      200  {object}  entity.HistoryPage
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /xp/history [get]
func (h *XPHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be a number")
			return
		}
		limit = parsed
	}

	page, err := h.creditUseCase.History(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Query("cursor"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
