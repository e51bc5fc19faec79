package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xp-cashout/pkg/logger"
	"xp-cashout/pkg/queue"
	"xp-cashout/services/notification/internal/entity"
	"xp-cashout/services/notification/internal/mailer"
	"xp-cashout/services/notification/internal/repo/inbox"
	"xp-cashout/services/notification/internal/repo/persistent"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	taskTimeout = 15 * time.Second
)

var ErrUnknownTaskType = errors.New("unknown notification type")

type NotificationUseCase interface {
	HandleTask(task queue.NotificationTask) error
	GetNotifications(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error)
}

type notificationUseCase struct {
	contacts persistent.ContactRepository
	inbox    inbox.Inbox
	mailer   mailer.Mailer
	logger   *logger.Logger
	now      func() time.Time
}

// NewNotificationUseCase accepts a nil mailer, in which case notifications
// are only stored in the inbox.
func NewNotificationUseCase(contacts persistent.ContactRepository, inbox inbox.Inbox, mailer mailer.Mailer, logger *logger.Logger) NotificationUseCase {
	return &notificationUseCase{
		contacts: contacts,
		inbox:    inbox,
		mailer:   mailer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *notificationUseCase) HandleTask(task queue.NotificationTask) error {
	switch task.Type {
	case queue.TaskTypeWithdrawalCreated, "":
		return uc.handleWithdrawalCreated(task)
	default:
		uc.logger.Error("[NOTIFICATION HANDLER] Unknown notification type: %s, withdrawal_id=%s", task.Type, task.WithdrawalID)
		return fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
	}
}

func (uc *notificationUseCase) handleWithdrawalCreated(task queue.NotificationTask) error {
	if task.UserID == "" || task.WithdrawalID == "" {
		uc.logger.Warn("[NOTIFICATION HANDLER] Dropping withdrawal task without user or withdrawal id: %+v", task)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	title := "Withdrawal received"
	message := fmt.Sprintf(
		"We received your request to convert %d XP into %d %s. The payout will be sent to %s once it is processed. Reference: %s",
		task.XPDebited, task.Amount, task.Currency, task.PhoneSnapshot, task.WithdrawalID,
	)

	notification := &entity.Notification{
		UserID:       task.UserID,
		Type:         queue.TaskTypeWithdrawalCreated,
		Title:        title,
		Message:      message,
		WithdrawalID: task.WithdrawalID,
		Channel:      entity.ChannelInApp,
		CreatedAt:    uc.now().Format(time.RFC3339),
	}

	if uc.mailer != nil {
		email, err := uc.contacts.Email(ctx, task.UserID)
		switch {
		case errors.Is(err, persistent.ErrNotFound):
			uc.logger.Warn("[NOTIFICATION HANDLER] No profile for user %s, skipping email", task.UserID)
		case err != nil:
			return err
		case email == nil:
			uc.logger.Info("[NOTIFICATION HANDLER] User %s has no email, in-app only", task.UserID)
		default:
			if err := uc.mailer.Send(*email, title, message); err != nil {
				return err
			}
			notification.Channel = entity.ChannelEmail
			uc.logger.Info("[NOTIFICATION HANDLER] Sent withdrawal confirmation %s to user %s", task.WithdrawalID, task.UserID)
		}
	}

	if err := uc.inbox.Push(ctx, notification); err != nil {
		// The e-mail already went out; a retry would send it twice.
		if notification.Channel == entity.ChannelEmail {
			uc.logger.Warn("[NOTIFICATION HANDLER] Failed to store notification %s: %v", task.WithdrawalID, err)
			return nil
		}
		return err
	}
	return nil
}

func (uc *notificationUseCase) GetNotifications(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return uc.inbox.List(ctx, userID, limit, offset)
}
