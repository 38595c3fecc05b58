package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bidEvent(auctionID uint64, amount int64) Event {
	return NewBidAccepted(auctionID, BidAcceptedPayload{NewHighestBid: amount, HighestBidderID: 7})
}

func TestHubDeliversToEverySubscriberOfTheAuction(t *testing.T) {
	h := NewHub(4, zerolog.Nop())
	a := h.Subscribe(1)
	b := h.Subscribe(1)
	other := h.Subscribe(2)

	require.NoError(t, h.Publish(context.Background(), 1, bidEvent(1, 500)))

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, BidAccepted, ev.Type)
			assert.Equal(t, int64(500), ev.BidAccepted.NewHighestBid)
		default:
			t.Fatal("expected an event")
		}
	}
	assert.Len(t, other.C, 0)
}

func TestHubLateSubscriberMissesEarlierEvents(t *testing.T) {
	h := NewHub(4, zerolog.Nop())
	require.NoError(t, h.Publish(context.Background(), 1, bidEvent(1, 100)))

	late := h.Subscribe(1)
	assert.Len(t, late.C, 0)

	require.NoError(t, h.Publish(context.Background(), 1, bidEvent(1, 200)))
	ev := <-late.C
	assert.Equal(t, int64(200), ev.BidAccepted.NewHighestBid)
}

func TestHubFullBufferDropsOnlyForThatSubscriber(t *testing.T) {
	h := NewHub(1, zerolog.Nop())
	slow := h.Subscribe(1)
	fast := h.Subscribe(1)
	ctx := context.Background()

	require.NoError(t, h.Publish(ctx, 1, bidEvent(1, 100)))
	<-fast.C
	require.NoError(t, h.Publish(ctx, 1, bidEvent(1, 200)))

	assert.Equal(t, int64(200), (<-fast.C).BidAccepted.NewHighestBid)
	assert.Equal(t, int64(100), (<-slow.C).BidAccepted.NewHighestBid)
	assert.Len(t, slow.C, 0)
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub(1, zerolog.Nop())
	sub := h.Subscribe(3)
	assert.Equal(t, 1, h.SubscriberCount(3))

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	assert.Equal(t, 0, h.SubscriberCount(3))

	_, open := <-sub.C
	assert.False(t, open)
	assert.NoError(t, h.Publish(context.Background(), 3, bidEvent(3, 1)))
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, _ uint64, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestFanoutAttemptsEveryPublisher(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	ok := &recordingPublisher{}

	err := Fanout{failing, nil, ok}.Publish(context.Background(), 1, bidEvent(1, 10))
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)
}

func TestEndedOnlyFiltersBidEvents(t *testing.T) {
	next := &recordingPublisher{}
	p := EndedOnly{Next: next}
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, 1, bidEvent(1, 10)))
	require.NoError(t, p.Publish(ctx, 1, NewAuctionEnded(1, AuctionEndedPayload{WinnerName: NoBidsWinner})))

	require.Len(t, next.events, 1)
	assert.Equal(t, AuctionEnded, next.events[0].Type)
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "auction_events:42", RedisChannel(42))
	assert.Equal(t, "auction.events.42", NATSSubject(42))

	id, ok := auctionIDFromChannel("auction_events:42")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)

	_, ok = auctionIDFromChannel("auction_events:abc")
	assert.False(t, ok)
	_, ok = auctionIDFromChannel("other:1")
	assert.False(t, ok)
}
