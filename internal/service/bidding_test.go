package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auction-engine/internal/model"
	"github.com/iliyamo/auction-engine/internal/notify"
)

func (f *fixture) engine() *BidEngine {
	return NewBidEngine(f.store, f.pub, zerolog.Nop(), f.opts)
}

func TestPlaceBidAccepted(t *testing.T) {
	f := newFixture()
	hub := notify.NewHub(4, zerolog.Nop())
	sub := hub.Subscribe(1)
	e := NewBidEngine(f.store, notify.Fanout{f.pub, hub}, zerolog.Nop(), f.opts)

	out, err := e.PlaceBid(context.Background(), 1, 2, 170)
	require.NoError(t, err)
	assert.Equal(t, int64(170), out.NewHighestBid)
	assert.Equal(t, uint64(2), out.HighestBidderID)
	assert.Equal(t, "Alan Turing", out.HighestBidderName)
	assert.Equal(t, t0, out.UpdatedAt)

	a := f.mem.auction(1)
	assert.Equal(t, int64(170), a.CurrentPrice)
	require.NotNil(t, a.HighestBidderID)
	assert.Equal(t, uint64(2), *a.HighestBidderID)
	assert.Len(t, f.mem.bidsFor(1), 1)

	assert.Equal(t, 1, f.pub.count(notify.BidAccepted))
	ev := <-sub.C
	assert.Equal(t, int64(170), ev.BidAccepted.NewHighestBid)
	assert.Equal(t, "Alan Turing", ev.BidAccepted.HighestBidderName)
}

func TestPlaceBidTooLow(t *testing.T) {
	for _, amount := range []int64{120, 150} {
		f := newFixture()
		_, err := f.engine().PlaceBid(context.Background(), 1, 2, amount)
		assert.ErrorIs(t, err, ErrInvalidBid, "amount %d", amount)
		assert.Empty(t, f.mem.bidsFor(1))
		assert.Empty(t, f.pub.events)
		assert.Equal(t, int64(150), f.mem.auction(1).CurrentPrice)
	}
}

func TestPlaceBidAfterDeadline(t *testing.T) {
	f := newFixture()
	a := f.mem.auction(1)
	a.EndsAt = t0.Add(-time.Hour)
	f.mem.putAuction(a)

	_, err := f.engine().PlaceBid(context.Background(), 1, 2, 500)
	assert.ErrorIs(t, err, ErrInvalidState)

	rep := NewScheduler(f.lifecycle(), time.Minute, zerolog.Nop()).Sweep(context.Background())
	assert.Equal(t, 1, rep.Ended)
	assert.Equal(t, model.AuctionEnded, f.mem.auction(1).Status)

	_, err = f.engine().PlaceBid(context.Background(), 1, 2, 500)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPlaceBidAtExactDeadlineIsRejected(t *testing.T) {
	f := newFixture()
	f.now = f.mem.auction(1).EndsAt
	_, err := f.engine().PlaceBid(context.Background(), 1, 2, 500)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPlaceBidValidationOrder(t *testing.T) {
	cases := []struct {
		name    string
		auction uint64
		bidder  uint64
		amount  int64
		ended   bool
		want    error
	}{
		{"missing auction beats everything", 99, 99, 1, false, ErrNotFound},
		{"state beats amount and bidder", 1, 99, 1, true, ErrInvalidState},
		{"amount beats bidder", 1, 99, 100, false, ErrInvalidBid},
		{"missing bidder", 1, 99, 200, false, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			if tc.ended {
				a := f.mem.auction(1)
				a.Status = model.AuctionEnded
				f.mem.putAuction(a)
			}
			_, err := f.engine().PlaceBid(context.Background(), tc.auction, tc.bidder, tc.amount)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.mem.bidsFor(1))
		})
	}
}

func TestPlaceBidRevalidatesAfterLosingRace(t *testing.T) {
	f := newFixture()
	once := sync.Once{}
	f.mem.beforeApply = func(model.BidWrite) {
		once.Do(func() { f.mem.seedBid(1, 3, 180, t0) })
	}

	_, err := f.engine().PlaceBid(context.Background(), 1, 2, 170)
	assert.ErrorIs(t, err, ErrInvalidBid)
	a := f.mem.auction(1)
	assert.Equal(t, int64(180), a.CurrentPrice)
	assert.Equal(t, uint64(3), *a.HighestBidderID)
}

func TestPlaceBidRetriesThenSucceeds(t *testing.T) {
	f := newFixture()
	once := sync.Once{}
	f.mem.beforeApply = func(model.BidWrite) {
		once.Do(func() { f.mem.seedBid(1, 3, 160, t0) })
	}

	out, err := f.engine().PlaceBid(context.Background(), 1, 2, 170)
	require.NoError(t, err)
	assert.Equal(t, int64(170), out.NewHighestBid)
	assert.Len(t, f.mem.bidsFor(1), 2)
}

func TestPlaceBidConflictAfterRetries(t *testing.T) {
	f := newFixture()
	f.opts.BidRetries = 2
	attempts := 0
	f.mem.beforeApply = func(model.BidWrite) {
		attempts++
		a := f.mem.auction(1)
		a.Version++
		f.mem.putAuction(a)
	}

	_, err := f.engine().PlaceBid(context.Background(), 1, 2, 170)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 3, attempts)
	assert.Empty(t, f.mem.bidsFor(1))
	assert.Empty(t, f.pub.events)
}

func TestPlaceBidStorageFailure(t *testing.T) {
	f := newFixture()
	f.mem.getErr = errBoom
	_, err := f.engine().PlaceBid(context.Background(), 1, 2, 170)
	assert.ErrorIs(t, err, ErrDatabase)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, "database_error", Kind(err))
}

func TestPlaceBidPublishFailureKeepsBid(t *testing.T) {
	f := newFixture()
	f.pub.err = errBoom
	out, err := f.engine().PlaceBid(context.Background(), 1, 2, 170)
	require.NoError(t, err)
	assert.Equal(t, int64(170), out.NewHighestBid)
	assert.Equal(t, int64(170), f.mem.auction(1).CurrentPrice)
}

func TestPlaceBidTimestampNeverGoesBackwards(t *testing.T) {
	f := newFixture()
	f.mem.seedBid(1, 3, 160, t0.Add(time.Minute))

	out, err := f.engine().PlaceBid(context.Background(), 1, 2, 170)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Minute), out.UpdatedAt)
}

func TestPlaceBidConcurrentBidsStayMonotonic(t *testing.T) {
	f := newFixture()
	f.opts.BidRetries = 1000
	e := f.engine()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			<-start
			_, _ = e.PlaceBid(context.Background(), 1, uint64(amount%3)+1, 150+amount)
		}(i)
	}
	close(start)
	wg.Wait()

	bids := f.mem.bidsFor(1)
	require.NotEmpty(t, bids)
	for i := 1; i < len(bids); i++ {
		assert.Greater(t, bids[i].Amount, bids[i-1].Amount, "bid %d", bids[i].ID)
		assert.False(t, bids[i].PlacedAt.Before(bids[i-1].PlacedAt))
	}
	a := f.mem.auction(1)
	assert.Equal(t, bids[len(bids)-1].Amount, a.CurrentPrice)
	assert.Equal(t, int64(200), a.CurrentPrice)
	assert.Equal(t, len(bids), f.pub.count(notify.BidAccepted))
}
