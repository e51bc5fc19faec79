package http

import (
	"net/http"
	"runtime"

	"xp-cashout/pkg/middleware"
	"xp-cashout/services/xp/internal/usecase"

	"github.com/gin-gonic/gin"
)

// Version and Commit are set at build time with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "unknown"
)

type AccountHandler struct {
	accountUseCase    usecase.AccountUseCase
	conversionUseCase usecase.ConversionUseCase
}

func NewAccountHandler(accountUseCase usecase.AccountUseCase, conversionUseCase usecase.ConversionUseCase) *AccountHandler {
	return &AccountHandler{
		accountUseCase:    accountUseCase,
		conversionUseCase: conversionUseCase,
	}
}

// Me godoc
// @Summary      Get current account
// @Description  Profile, XP balance and referral code of the caller. Creates the profile on first call.
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Account
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /me [get]
func (h *AccountHandler) Me(c *gin.Context) {
	account, err := h.accountUseCase.Me(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// ConversionRate godoc
// @Summary      Current conversion rate
// @Tags         account
// @Produce      json
// @Success      200  {object}  entity.ConversionRate
// @Failure      500  {object}  ErrorResponse
// @Router       /conversion/rate [get]
func (h *AccountHandler) ConversionRate(c *gin.Context) {
	rate, err := h.conversionUseCase.CurrentRate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rate)
}

// Health godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *AccountHandler) Health(c *gin.Context) {
	if err := h.accountUseCase.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}

// VersionInfo godoc
// @Summary      Build information
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (h *AccountHandler) VersionInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "xp-service",
		"version": Version,
		"commit":  Commit,
		"go":      runtime.Version(),
	})
}
