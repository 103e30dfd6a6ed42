// Package notify publishes fire-and-forget wallet events after successful
// ledger operations. Delivery failures are swallowed and logged; the
// notifier is not part of the ledger's correctness contract.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Channel is the pub/sub channel wallet events are published on.
const Channel = "wallet:events"

// Event describes a completed ledger operation.
type Event struct {
	Type          string `json:"type"` // send, confirm, receive
	AccountID     uint   `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Timestamp     int64  `json:"timestamp"`
}

// Notifier is informed after send/confirm/receive succeed.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// RedisNotifier publishes events to a Redis pub/sub channel.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier wraps a Redis client.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Notify publishes the event as JSON. Failures are logged, never surfaced.
func (n *RedisNotifier) Notify(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to encode wallet event")
		return
	}
	if err := n.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"type":           event.Type,
			"transaction_id": event.TransactionID,
			"error":          err.Error(),
		}).Warn("Failed to publish wallet event")
	}
}

// NoopNotifier discards all events. Used in tests.
type NoopNotifier struct{}

// Notify does nothing.
func (NoopNotifier) Notify(context.Context, Event) {}
