package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/auction-engine/internal/model"
	"github.com/iliyamo/auction-engine/internal/notify"
	"github.com/iliyamo/auction-engine/internal/repository"
)

// AuctionResult summarizes an ended auction.  WinnerID is nil and
// WinnerName is notify.NoBidsWinner when nobody bid.
type AuctionResult struct {
	AuctionID   uint64              `json:"auction_id"`
	ItemID      uint64              `json:"item_id"`
	ItemName    string              `json:"item_name"`
	WinnerID    *uint64             `json:"winner_id"`
	WinnerName  string              `json:"winner_name"`
	WinningBid  int64               `json:"winning_bid"`
	FinalizedAt time.Time           `json:"finalized_at"`
	Status      model.AuctionStatus `json:"status"`
}

// Lifecycle moves auctions to ENDED.
type Lifecycle struct {
	store Store
	pub   notify.Publisher
	log   zerolog.Logger
	opts  Options
}

// NewLifecycle needs store.Auctions, store.Items and store.Users.  pub may
// be nil.
func NewLifecycle(store Store, pub notify.Publisher, log zerolog.Logger, opts Options) *Lifecycle {
	if store.Auctions == nil || store.Items == nil || store.Users == nil {
		panic("nil store passed to NewLifecycle")
	}
	return &Lifecycle{
		store: store,
		pub:   pub,
		log:   log.With().Str("component", "lifecycle").Logger(),
		opts:  opts.withDefaults(),
	}
}

// EndAuction transitions a to ENDED and announces the result.  It returns
// (nil, nil) without side effects when the auction is no longer ONGOING,
// so calling it again for the same auction is harmless.  When a bid lands
// between the read and the write, the auction is reloaded and the summary
// rebuilt before trying again.
func (l *Lifecycle) EndAuction(ctx context.Context, a model.Auction) (*AuctionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.TxTimeout)
	defer cancel()

	cur := &a
	for attempt := 0; attempt <= l.opts.EndRetries; attempt++ {
		if cur.Status != model.AuctionOngoing {
			return nil, nil
		}
		at := l.opts.Clock()
		res, err := l.summarize(ctx, cur, at)
		if err != nil {
			return nil, err
		}
		err = l.store.Auctions.MarkEnded(ctx, cur.ID, cur.Version, at)
		if errors.Is(err, repository.ErrVersionConflict) {
			l.log.Debug().Uint64("auction_id", cur.ID).Int("attempt", attempt+1).Msg("auction moved, reloading")
			if cur, err = loadAuction(ctx, l.store.Auctions, a.ID); err != nil {
				return nil, err
			}
			if cur.Status != model.AuctionOngoing {
				return nil, nil
			}
			continue
		}
		if err != nil {
			return nil, dbError("mark ended", err)
		}

		l.log.Info().
			Uint64("auction_id", res.AuctionID).
			Str("winner", res.WinnerName).
			Int64("winning_bid", res.WinningBid).
			Msg("auction ended")
		publish(ctx, l.pub, l.log, res.AuctionID, notify.NewAuctionEnded(res.AuctionID, notify.AuctionEndedPayload{
			ItemName:    res.ItemName,
			WinnerID:    res.WinnerID,
			WinnerName:  res.WinnerName,
			WinningBid:  res.WinningBid,
			FinalizedAt: res.FinalizedAt,
			Status:      string(res.Status),
		}))
		return res, nil
	}
	return nil, fmt.Errorf("auction %d: gave up after %d attempts: %w", a.ID, l.opts.EndRetries+1, ErrConflict)
}

// AuctionResult returns the summary of an ENDED auction.
func (l *Lifecycle) AuctionResult(ctx context.Context, auctionID uint64) (*AuctionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.TxTimeout)
	defer cancel()

	a, err := loadAuction(ctx, l.store.Auctions, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AuctionEnded {
		return nil, fmt.Errorf("auction %d is %s: %w", a.ID, a.Status, ErrInvalidState)
	}
	// Nothing writes an auction after it ends, so updated_at is the
	// finalization time.
	return l.summarize(ctx, a, a.UpdatedAt)
}

func (l *Lifecycle) summarize(ctx context.Context, a *model.Auction, at time.Time) (*AuctionResult, error) {
	item, err := loadItem(ctx, l.store.Items, a.ItemID)
	if err != nil {
		return nil, err
	}
	res := &AuctionResult{
		AuctionID:   a.ID,
		ItemID:      item.ID,
		ItemName:    item.Name,
		WinnerName:  notify.NoBidsWinner,
		FinalizedAt: at,
		Status:      model.AuctionEnded,
	}
	if a.HasBids() {
		u, err := loadUser(ctx, l.store.Users, *a.HighestBidderID)
		if err != nil {
			return nil, err
		}
		id := u.ID
		res.WinnerID = &id
		res.WinnerName = u.DisplayName()
		res.WinningBid = a.CurrentPrice
	}
	return res, nil
}
