package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisChannelPrefix prefixes the per-auction Pub/Sub channel:
// "auction_events:{auctionID}".
const RedisChannelPrefix = "auction_events:"

// RedisBroker publishes events on Redis Pub/Sub so that every service
// instance can fan them out to its own websocket clients.
type RedisBroker struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisBroker wraps an existing client.
func NewRedisBroker(client *redis.Client, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{client: client, log: log.With().Str("component", "redis-broker").Logger()}
}

// RedisChannel returns the Pub/Sub channel for an auction.
func RedisChannel(auctionID uint64) string {
	return RedisChannelPrefix + strconv.FormatUint(auctionID, 10)
}

// Publish sends ev on the auction's channel.
func (b *RedisBroker) Publish(ctx context.Context, auctionID uint64, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, RedisChannel(auctionID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Relay subscribes to every auction channel and hands each event to local.
// It blocks until ctx is cancelled or the subscription fails.
func (b *RedisBroker) Relay(ctx context.Context, local Publisher) error {
	pubsub := b.client.PSubscribe(ctx, RedisChannelPrefix+"*")
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting readiness.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis: %w", err)
	}
	b.log.Info().Str("pattern", RedisChannelPrefix+"*").Msg("relay subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			auctionID, ok := auctionIDFromChannel(msg.Channel)
			if !ok {
				b.log.Warn().Str("channel", msg.Channel).Msg("unexpected channel name")
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("failed to parse event")
				continue
			}
			_ = local.Publish(ctx, auctionID, ev)
		}
	}
}

// auctionIDFromChannel turns "auction_events:42" into 42.
func auctionIDFromChannel(channel string) (uint64, bool) {
	raw, ok := strings.CutPrefix(channel, RedisChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
