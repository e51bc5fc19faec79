package http

import (
	"net/http"
	"strconv"

	"xp-cashout/pkg/logger"
	"xp-cashout/pkg/middleware"
	"xp-cashout/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationUseCase usecase.NotificationUseCase
	logger              *logger.Logger
}

func NewNotificationHandler(notificationUseCase usecase.NotificationUseCase, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		logger:              logger,
	}
}

// GetNotifications godoc
// @Summary      Get notifications
// @Description  Latest notifications of the current user, newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int  false  "Limit"   default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth_required", "message": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(usecase.DefaultLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notifications, total, err := h.notificationUseCase.GetNotifications(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to get notifications for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}
