package usecase

import (
	"context"

	"xp-cashout/pkg/queue"
)

// Notifier publishes best-effort messages after a mutation has committed.
type Notifier interface {
	PublishWithdrawalCreated(task queue.NotificationTask) error
}

// ObjectUploader stores generated files such as payout exports.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}
