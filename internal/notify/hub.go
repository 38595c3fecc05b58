package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Publisher delivers an event to everyone listening on auctionID's channel.
type Publisher interface {
	Publish(ctx context.Context, auctionID uint64, ev Event) error
}

// Subscription is one listener on one auction channel.  Events arrive on C
// until Unsubscribe closes it.
type Subscription struct {
	AuctionID uint64
	C         <-chan Event
	ch        chan Event
}

// Hub is the in-process registry of auction id -> subscribers.  Sends never
// block: when a subscriber's buffer is full that subscriber misses the
// event and everyone else still gets it.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]map[*Subscription]struct{}
	buffer int
	log    zerolog.Logger
}

// NewHub creates a Hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[uint64]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log.With().Str("component", "hub").Logger(),
	}
}

// Subscribe registers a new listener for auctionID.
func (h *Hub) Subscribe(auctionID uint64) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{AuctionID: auctionID, C: ch, ch: ch}
	h.mu.Lock()
	set, ok := h.subs[auctionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[auctionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the listener and closes its channel.  Calling it more
// than once is harmless.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.AuctionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.AuctionID)
	}
}

// Publish hands ev to every current subscriber of auctionID.
func (h *Hub) Publish(_ context.Context, auctionID uint64, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered, dropped := 0, 0
	for sub := range h.subs[auctionID] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn().Uint64("auction_id", auctionID).Int("dropped", dropped).Msg("subscriber buffer full, event dropped")
	}
	h.log.Debug().Uint64("auction_id", auctionID).Str("type", string(ev.Type)).Int("delivered", delivered).Msg("event fanned out")
	return nil
}

// SubscriberCount returns the number of listeners on auctionID.
func (h *Hub) SubscriberCount(auctionID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[auctionID])
}
