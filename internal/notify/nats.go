package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSSubjectPrefix prefixes the per-auction subject:
// "auction.events.{auctionID}".
const NATSSubjectPrefix = "auction.events."

// NATSBroker is the NATS alternative to RedisBroker.  Core NATS (not
// JetStream) is used because events are not meant to be replayed.
type NATSBroker struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// NewNATSBroker wraps an existing connection.
func NewNATSBroker(conn *nats.Conn, log zerolog.Logger) *NATSBroker {
	return &NATSBroker{conn: conn, log: log.With().Str("component", "nats-broker").Logger()}
}

// NATSSubject returns the subject for an auction.
func NATSSubject(auctionID uint64) string {
	return NATSSubjectPrefix + strconv.FormatUint(auctionID, 10)
}

// Publish sends ev on the auction's subject.
func (b *NATSBroker) Publish(_ context.Context, auctionID uint64, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.conn.Publish(NATSSubject(auctionID), payload); err != nil {
		return fmt.Errorf("failed to publish to nats: %w", err)
	}
	return nil
}

// Relay subscribes to "auction.events.*" and hands each event to local
// until ctx is cancelled.
func (b *NATSBroker) Relay(ctx context.Context, local Publisher) error {
	sub, err := b.conn.Subscribe(NATSSubjectPrefix+"*", func(msg *nats.Msg) {
		raw, _ := strings.CutPrefix(msg.Subject, NATSSubjectPrefix)
		auctionID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			b.log.Warn().Str("subject", msg.Subject).Msg("unexpected subject")
			return
		}
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.log.Warn().Err(err).Str("subject", msg.Subject).Msg("failed to parse event")
			return
		}
		_ = local.Publish(ctx, auctionID, ev)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()
	b.log.Info().Str("subject", NATSSubjectPrefix+"*").Msg("relay subscribed")

	<-ctx.Done()
	return ctx.Err()
}
