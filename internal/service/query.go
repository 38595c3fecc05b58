package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/auction-engine/internal/model"
	"github.com/iliyamo/auction-engine/internal/repository"
)

// AuctionDetails is the public view of one auction.
type AuctionDetails struct {
	AuctionID         uint64              `json:"auction_id"`
	ItemID            uint64              `json:"item_id"`
	ItemName          string              `json:"item_name"`
	ItemDescription   string              `json:"item_description"`
	AuctionType       string              `json:"auction_type"`
	StartPrice        int64               `json:"start_price"`
	CurrentPrice      int64               `json:"current_price"`
	Status            model.AuctionStatus `json:"status"`
	EndsAt            time.Time           `json:"ends_at"`
	RemainingTime     string              `json:"remaining_time"`
	HighestBidderID   *uint64             `json:"highest_bidder_id"`
	HighestBidderName *string             `json:"highest_bidder_name"`
}

// UserBid is one row of a bidder's activity page.
type UserBid struct {
	AuctionID    uint64              `json:"auction_id"`
	ItemID       uint64              `json:"item_id"`
	ItemName     string              `json:"item_name"`
	MyMaxBid     int64               `json:"my_max_bid"`
	LastBidAt    time.Time           `json:"last_bid_at"`
	CurrentPrice int64               `json:"current_price"`
	Status       model.AuctionStatus `json:"status"`
	EndsAt       time.Time           `json:"ends_at"`
	Winning      bool                `json:"winning"`
}

// Queries serves read-only views.
type Queries struct {
	store Store
	opts  Options
}

func NewQueries(store Store, opts Options) *Queries {
	return &Queries{store: store, opts: opts.withDefaults()}
}

// GetAuctionDetails returns the auction joined with its item and current
// highest bidder.  Bidder fields are nil when no bid has been accepted.
func (q *Queries) GetAuctionDetails(ctx context.Context, auctionID uint64) (*AuctionDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opts.TxTimeout)
	defer cancel()

	a, err := loadAuction(ctx, q.store.Auctions, auctionID)
	if err != nil {
		return nil, err
	}
	item, err := loadItem(ctx, q.store.Items, a.ItemID)
	if err != nil {
		return nil, err
	}
	d := &AuctionDetails{
		AuctionID:       a.ID,
		ItemID:          item.ID,
		ItemName:        item.Name,
		ItemDescription: item.Description,
		AuctionType:     item.Type,
		StartPrice:      a.StartPrice,
		CurrentPrice:    a.CurrentPrice,
		Status:          a.Status,
		EndsAt:          a.EndsAt,
		RemainingTime:   RemainingTime(a, q.opts.Clock()),
	}
	if a.HasBids() {
		u, err := loadUser(ctx, q.store.Users, *a.HighestBidderID)
		if err != nil {
			return nil, err
		}
		id, name := u.ID, u.DisplayName()
		d.HighestBidderID, d.HighestBidderName = &id, &name
	}
	return d, nil
}

// RemainingTime renders the time left as "3h 07m", or "Ended" once the
// auction no longer accepts bids.
func RemainingTime(a *model.Auction, now time.Time) string {
	if !a.Accepting(now) {
		return "Ended"
	}
	left := a.EndsAt.Sub(now)
	hours := int64(left / time.Hour)
	minutes := int64(left%time.Hour) / int64(time.Minute)
	return fmt.Sprintf("%dh %02dm", hours, minutes)
}

// BidHistory lists accepted bids in acceptance order.
func (q *Queries) BidHistory(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opts.TxTimeout)
	defer cancel()

	if _, err := loadAuction(ctx, q.store.Auctions, auctionID); err != nil {
		return nil, err
	}
	bids, err := q.store.Bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, dbError("list bids", err)
	}
	return bids, nil
}

// UserBids lists, per auction, the bidder's highest own bid and whether
// they are currently the highest bidder.
func (q *Queries) UserBids(ctx context.Context, bidderID uint64) ([]UserBid, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opts.TxTimeout)
	defer cancel()

	rows, err := q.store.Bids.SummariesByBidder(ctx, bidderID)
	if err != nil {
		return nil, dbError("list user bids", err)
	}
	out := make([]UserBid, 0, len(rows))
	for _, r := range rows {
		out = append(out, UserBid{
			AuctionID:    r.AuctionID,
			ItemID:       r.ItemID,
			ItemName:     r.ItemName,
			MyMaxBid:     r.MaxAmount,
			LastBidAt:    r.LastBidAt,
			CurrentPrice: r.CurrentPrice,
			Status:       r.Status,
			EndsAt:       r.EndsAt,
			Winning:      r.HighestBidderID != nil && *r.HighestBidderID == bidderID,
		})
	}
	return out, nil
}

func loadAuction(ctx context.Context, s AuctionStore, id uint64) (*model.Auction, error) {
	a, err := s.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("auction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbError("load auction", err)
	}
	return a, nil
}

func loadItem(ctx context.Context, s ItemStore, id uint64) (*model.Item, error) {
	item, err := s.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbError("load item", err)
	}
	return item, nil
}

func loadUser(ctx context.Context, s UserStore, id uint64) (*model.User, error) {
	u, err := s.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, dbError("load user", err)
	}
	return u, nil
}
