package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
)

// RedisNotifier pushes each completed slice to a live pub/sub channel and a
// capped recent-events list. Best effort: Redis being down never blocks the
// distribution loop.
type RedisNotifier struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisNotifier(addr string, logger *logrus.Logger) (*RedisNotifier, error) {
	if logger == nil {
		logger = logrus.New()
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.WithField("addr", addr).Info("connected to Redis")

	return &RedisNotifier{client: client, logger: logger}, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, event models.DistributionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.WithError(err).Warn("failed to marshal distribution event")
		return
	}

	pipe := n.client.Pipeline()
	pipe.Publish(ctx, constants.PubSubChannelDistributions, data)
	pipe.LPush(ctx, constants.RedisKeyRecentDistributions, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentDistributions, 0, constants.MaxRecentDistributions-1)
	if _, err := pipe.Exec(ctx); err != nil {
		n.logger.WithFields(logrus.Fields{
			"signature": event.Signature,
			"error":     err,
		}).Warn("failed to publish distribution event")
	}
}

// Recent returns the most recent distribution events, newest first.
func (n *RedisNotifier) Recent(ctx context.Context, limit int64) ([]*models.DistributionEvent, error) {
	raw, err := n.client.LRange(ctx, constants.RedisKeyRecentDistributions, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent distributions: %w", err)
	}

	events := make([]*models.DistributionEvent, 0, len(raw))
	for _, item := range raw {
		var event models.DistributionEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			n.logger.WithError(err).Warn("skipping undecodable distribution event")
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}

// Subscribe streams live distribution events until ctx is cancelled.
func (n *RedisNotifier) Subscribe(ctx context.Context, handler func(*models.DistributionEvent)) error {
	pubsub := n.client.Subscribe(ctx, constants.PubSubChannelDistributions)
	defer pubsub.Close()

	n.logger.WithField("channel", constants.PubSubChannelDistributions).Info("subscribed to distribution events")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.DistributionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				n.logger.WithError(err).Warn("skipping undecodable distribution event")
				continue
			}
			handler(&event)
		}
	}
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
