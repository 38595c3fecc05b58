package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AuctionEndedQueue is the durable queue that receives final auction
// results for the payment flow and the audit log consumer.
const AuctionEndedQueue = "auction.ended"

// QueuePublisher pushes events onto a durable RabbitMQ queue.  Each publish
// dials its own connection; auction ends are rare enough that pooling does
// not pay off.  Errors are logged and returned so the caller can choose to
// ignore them.
type QueuePublisher struct {
	URL   string
	Queue string
	log   zerolog.Logger
}

// NewQueuePublisher returns a publisher for the auction.ended queue.
func NewQueuePublisher(url string, log zerolog.Logger) *QueuePublisher {
	return &QueuePublisher{URL: url, Queue: AuctionEndedQueue, log: log.With().Str("component", "rabbitmq").Logger()}
}

// Publish marshals ev and stores it on the queue as a persistent message.
func (p *QueuePublisher) Publish(ctx context.Context, _ uint64, ev Event) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.log.Error().Err(err).Msg("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error().Err(err).Msg("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		p.log.Error().Err(err).Str("queue", p.Queue).Msg("queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		p.log.Error().Err(err).Str("queue", p.Queue).Msg("publish failed")
		return err
	}
	return nil
}
