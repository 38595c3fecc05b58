package service

import (
	"context"
	"time"

	"github.com/iliyamo/auction-engine/internal/model"
)

// AuctionStore is the auction persistence the engine and scheduler need.
// ApplyBid and MarkEnded are compare-and-swap writes on the version column
// and return repository.ErrVersionConflict when the row moved.
type AuctionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Auction, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.Auction, error)
	ApplyBid(ctx context.Context, w model.BidWrite) (*model.Bid, error)
	MarkEnded(ctx context.Context, id, version uint64, at time.Time) error
}

type BidStore interface {
	ListByAuction(ctx context.Context, auctionID uint64) ([]model.Bid, error)
	SummariesByBidder(ctx context.Context, bidderID uint64) ([]model.BidSummary, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

type ItemStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Item, error)
}

// PaymentStore.Create returns repository.ErrDuplicate when the auction is
// already paid.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id string) (*model.Payment, error)
}

// Store bundles the stores.  A field may be nil when a component does not
// use it.
type Store struct {
	Auctions AuctionStore
	Bids     BidStore
	Users    UserStore
	Items    ItemStore
	Payments PaymentStore
}

// Clock returns the authoritative current time.  Each operation reads it
// once and validates against that single value.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

const (
	defaultTxTimeout     = 5 * time.Second
	defaultBidRetries    = 5
	defaultEndRetries    = 3
	publishTimeout       = 2 * time.Second
	defaultSweepInterval = time.Minute
)

// Options tunes the engine.  Zero values select the defaults.
type Options struct {
	// TxTimeout bounds each operation's storage work.
	TxTimeout time.Duration
	// BidRetries is how many times PlaceBid re-validates after losing a
	// version race before giving up with ErrConflict.
	BidRetries int
	// EndRetries is the same for EndAuction.
	EndRetries int
	Clock      Clock
}

func (o Options) withDefaults() Options {
	if o.TxTimeout <= 0 {
		o.TxTimeout = defaultTxTimeout
	}
	if o.BidRetries <= 0 {
		o.BidRetries = defaultBidRetries
	}
	if o.EndRetries <= 0 {
		o.EndRetries = defaultEndRetries
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	return o
}
