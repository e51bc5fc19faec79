package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"xp-cashout/services/notification/internal/entity"

	"github.com/redis/go-redis/v9"
)

const (
	maxPerUser = 100
	retention  = 30 * 24 * time.Hour
)

// Inbox keeps the latest notifications of each user.
type Inbox interface {
	Push(ctx context.Context, n *entity.Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error)
}

type redisInbox struct {
	client *redis.Client
}

func NewRedisInbox(client *redis.Client) Inbox {
	return &redisInbox{client: client}
}

func key(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

func (i *redisInbox) Push(ctx context.Context, n *entity.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	k := key(n.UserID)
	pipe := i.client.TxPipeline()
	pipe.LPush(ctx, k, payload)
	pipe.LTrim(ctx, k, 0, maxPerUser-1)
	pipe.Expire(ctx, k, retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	// Live listeners, if any.
	i.client.Publish(ctx, k, payload)
	return nil
}

func (i *redisInbox) List(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error) {
	k := key(userID)
	raw, err := i.client.LRange(ctx, k, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get notifications: %w", err)
	}

	notifications := make([]entity.Notification, 0, len(raw))
	for _, item := range raw {
		var n entity.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		notifications = append(notifications, n)
	}

	total, err := i.client.LLen(ctx, k).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return notifications, total, nil
}
