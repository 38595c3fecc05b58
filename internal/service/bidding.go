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

// BidOutcome describes an accepted bid.
type BidOutcome struct {
	AuctionID         uint64    `json:"auction_id"`
	BidID             uint64    `json:"bid_id"`
	NewHighestBid     int64     `json:"new_highest_bid"`
	HighestBidderID   uint64    `json:"highest_bidder_id"`
	HighestBidderName string    `json:"highest_bidder_name"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BidEngine validates and applies bids.  Concurrent bids on the same
// auction serialize on the auction's version column: the loser of a race
// re-reads the row and runs validation again against the fresh price.
type BidEngine struct {
	store Store
	pub   notify.Publisher
	log   zerolog.Logger
	opts  Options
}

// NewBidEngine needs store.Auctions and store.Users.  pub may be nil.
func NewBidEngine(store Store, pub notify.Publisher, log zerolog.Logger, opts Options) *BidEngine {
	if store.Auctions == nil || store.Users == nil {
		panic("nil store passed to NewBidEngine")
	}
	return &BidEngine{
		store: store,
		pub:   pub,
		log:   log.With().Str("component", "bid-engine").Logger(),
		opts:  opts.withDefaults(),
	}
}

// PlaceBid offers amount on auctionID on behalf of bidderID.  Checks run in
// order and the first failure wins:
//
//  1. the auction exists (ErrNotFound)
//  2. it is ONGOING and its deadline has not passed (ErrInvalidState)
//  3. amount is strictly above the current price (ErrInvalidBid)
//  4. the bidder exists (ErrNotFound)
//
// The bid row and the auction update commit together or not at all.  When
// the auction keeps moving underneath, PlaceBid gives up with ErrConflict.
// The bid-accepted event is published after commit; a publish failure is
// logged and does not affect the result.
func (e *BidEngine) PlaceBid(ctx context.Context, auctionID, bidderID uint64, amount int64) (*BidOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.TxTimeout)
	defer cancel()

	var bidder *model.User
	for attempt := 0; attempt <= e.opts.BidRetries; attempt++ {
		a, err := e.store.Auctions.GetByID(ctx, auctionID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("auction %d: %w", auctionID, ErrNotFound)
		}
		if err != nil {
			return nil, dbError("load auction", err)
		}

		now := e.opts.Clock()
		if !a.Accepting(now) {
			return nil, fmt.Errorf("auction ended: %w", ErrInvalidState)
		}
		if amount <= a.CurrentPrice {
			return nil, fmt.Errorf("must exceed current price %d: %w", a.CurrentPrice, ErrInvalidBid)
		}
		if bidder == nil {
			bidder, err = e.store.Users.GetByID(ctx, bidderID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("bidder %d: %w", bidderID, ErrNotFound)
			}
			if err != nil {
				return nil, dbError("load bidder", err)
			}
		}

		// placed_at never goes backwards within one auction, even if the
		// clock does.
		placedAt := now
		if a.HasBids() && placedAt.Before(a.UpdatedAt) {
			placedAt = a.UpdatedAt
		}

		bid, err := e.store.Auctions.ApplyBid(ctx, model.BidWrite{
			AuctionID:       auctionID,
			BidderID:        bidderID,
			Amount:          amount,
			PlacedAt:        placedAt,
			ExpectedVersion: a.Version,
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			e.log.Debug().Uint64("auction_id", auctionID).Int("attempt", attempt+1).Msg("bid lost version race, retrying")
			continue
		}
		if err != nil {
			return nil, dbError("apply bid", err)
		}

		out := &BidOutcome{
			AuctionID:         auctionID,
			BidID:             bid.ID,
			NewHighestBid:     bid.Amount,
			HighestBidderID:   bidderID,
			HighestBidderName: bidder.DisplayName(),
			UpdatedAt:         bid.PlacedAt,
		}
		e.log.Info().Uint64("auction_id", auctionID).Uint64("bidder_id", bidderID).Int64("amount", amount).Msg("bid accepted")
		publish(ctx, e.pub, e.log, auctionID, notify.NewBidAccepted(auctionID, notify.BidAcceptedPayload{
			NewHighestBid:     out.NewHighestBid,
			HighestBidderID:   out.HighestBidderID,
			HighestBidderName: out.HighestBidderName,
			UpdatedAt:         out.UpdatedAt,
		}))
		return out, nil
	}
	return nil, fmt.Errorf("auction %d: gave up after %d attempts: %w", auctionID, e.opts.BidRetries+1, ErrConflict)
}

// publish delivers ev on a context detached from the caller's deadline so
// that a committed write is always announced when possible.
func publish(ctx context.Context, pub notify.Publisher, log zerolog.Logger, auctionID uint64, ev notify.Event) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, auctionID, ev); err != nil {
		log.Warn().Err(err).Uint64("auction_id", auctionID).Str("type", string(ev.Type)).Msg("publish failed")
	}
}
