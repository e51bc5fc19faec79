package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"xp-cashout/pkg/config"
	"xp-cashout/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	NotificationQueueName = "notification_queue"
	NotificationExchange  = "notifications"

	RoutingKeyWithdrawalCreated = "withdrawal_created"

	TaskTypeWithdrawalCreated = "withdrawal_created"

	maxPriority    = 10
	publishTimeout = 5 * time.Second
)

// NotificationTask is the message body exchanged between the xp service and
// the notification worker.
type NotificationTask struct {
	Type          string    `json:"type"`
	UserID        string    `json:"user_id"`
	WithdrawalID  string    `json:"withdrawal_id"`
	XPDebited     int64     `json:"xp_debited"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PhoneSnapshot string    `json:"phone_snapshot"`
	Priority      int       `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		NotificationExchange, // name
		"direct",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		NotificationQueueName, // name
		true,                  // durable
		false,                 // delete when unused
		false,                 // exclusive
		false,                 // no-wait
		amqp.Table{
			"x-max-priority": maxPriority,
		},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		NotificationQueueName,       // queue name
		RoutingKeyWithdrawalCreated, // routing key
		NotificationExchange,        // exchange
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ClampPriority keeps a task priority inside the range the queue was declared with.
func ClampPriority(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > maxPriority {
		return maxPriority
	}
	return uint8(p)
}

// PublishWithdrawalCreated publishes a confirmation task for a freshly created withdrawal.
func (c *Client) PublishWithdrawalCreated(task NotificationTask) error {
	if task.Type == "" {
		task.Type = TaskTypeWithdrawalCreated
	}

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		NotificationExchange,        // exchange
		RoutingKeyWithdrawalCreated, // routing key
		false,                       // mandatory
		false,                       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         taskJSON,
			Priority:     ClampPriority(task.Priority),
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish message to exchange=%s, routing_key=%s: %v", NotificationExchange, RoutingKeyWithdrawalCreated, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Info("[RABBITMQ] Published withdrawal task withdrawal_id=%s user_id=%s", task.WithdrawalID, task.UserID)
	return nil
}

// ConsumeNotificationTasks delivers decoded tasks to handler. Malformed
// messages are dropped, handler failures are requeued.
func (c *Client) ConsumeNotificationTasks(handler func(task NotificationTask) error) error {
	msgs, err := c.channel.Consume(
		NotificationQueueName, // queue
		"",                    // consumer
		false,                 // auto-ack
		false,                 // exclusive
		false,                 // no-local
		false,                 // no-wait
		nil,                   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Started consuming from notification queue: %s", NotificationQueueName)

	go func() {
		for msg := range msgs {
			var task NotificationTask
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				c.logger.Error("[RABBITMQ] Failed to unmarshal notification task: %v, body=%s", err, string(msg.Body))
				msg.Nack(false, false)
				continue
			}

			if err := handler(task); err != nil {
				c.logger.Error("[RABBITMQ] Handler failed to process task type=%s withdrawal_id=%s: %v", task.Type, task.WithdrawalID, err)
				msg.Nack(false, !msg.Redelivered)
				continue
			}

			msg.Ack(false)
		}
	}()

	return nil
}

// GetQueueLength returns the number of messages in the queue
func (c *Client) GetQueueLength() (int, error) {
	queue, err := c.channel.QueueInspect(NotificationQueueName)
	if err != nil {
		return 0, err
	}
	return queue.Messages, nil
}
