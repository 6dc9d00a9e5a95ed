package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RelayChannel is the Redis pub/sub channel shared by all API instances
const RelayChannel = "cmrp:complaints"

const (
	minResubscribe = 500 * time.Millisecond
	maxResubscribe = 30 * time.Second
)

// RedisRelay publishes events through Redis so every instance's hub sees them
type RedisRelay struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
	logger  logrus.FieldLogger

	subscribed atomic.Bool
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewRedisRelay creates a relay feeding hub
func NewRedisRelay(rdb *redis.Client, hub *Hub, logger logrus.FieldLogger) *RedisRelay {
	return &RedisRelay{
		rdb:        rdb,
		hub:        hub,
		channel:    RelayChannel,
		logger:     logger.WithField("component", "redis_relay"),
		minBackoff: minResubscribe,
		maxBackoff: maxResubscribe,
	}
}

// Subscribed reports whether Run currently holds a live subscription
func (r *RedisRelay) Subscribed() bool {
	return r.subscribed.Load()
}

// Publish sends ev to Redis. While Run has no live subscription, or if the publish
// fails, the event is delivered to the local hub directly so this instance's observers
// still see it.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if !r.subscribed.Load() {
		r.hub.Broadcast(ctx, ev)
		if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
			r.logger.WithError(err).WithField("event", ev.Type).Debug("redis publish failed while unsubscribed")
		}
		return nil
	}

	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.WithError(err).WithField("event", ev.Type).Warn("redis publish failed, broadcasting locally")
		r.hub.Broadcast(ctx, ev)
	}
	return nil
}

// Run subscribes to the relay channel and re-broadcasts into the local hub until ctx
// ends. A failed or dropped subscription is retried with exponential backoff.
func (r *RedisRelay) Run(ctx context.Context) error {
	backoff := r.minBackoff
	for {
		connected, err := r.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = r.minBackoff
		}

		entry := r.logger.WithField("channel", r.channel).WithField("retry_in", backoff.String())
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("relay subscription failed")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

// consume holds one subscription. It reports whether the subscription was established.
func (r *RedisRelay) consume(ctx context.Context) (bool, error) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.subscribed.Store(true)
	defer r.subscribed.Store(false)
	r.logger.WithField("channel", r.channel).Info("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.WithError(err).Warn("discarding malformed relay message")
				continue
			}
			r.hub.Broadcast(ctx, ev)
		}
	}
}
