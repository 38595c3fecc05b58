package model

import "time"

// AuctionStatus is the lifecycle state of an auction.  ONGOING is the
// initial state; ENDED and CANCELLED are terminal and nothing leaves them.
type AuctionStatus string

const (
	AuctionOngoing   AuctionStatus = "ONGOING"
	AuctionEnded     AuctionStatus = "ENDED"
	AuctionCancelled AuctionStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed from s.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionEnded || s == AuctionCancelled
}

// Auction is a time-boxed sale of one item.  Prices are integer amounts in
// the auction's currency unit.  Version is bumped by every write and is the
// compare-and-swap token shared by the bid engine and the lifecycle
// scheduler.
//
// Fields:
//  ID              – primary key identifier.
//  ItemID          – the item on sale; fixed at creation.
//  StartPrice      – opening price.
//  CurrentPrice    – highest accepted bid, or StartPrice when none.
//  HighestBidderID – bidder of the most recent accepted bid (nil if none).
//  StartsAt/EndsAt – auction window; EndsAt is fixed at creation.
//  Status          – ONGOING, ENDED or CANCELLED.
//  Version         – optimistic concurrency counter.
//  UpdatedAt       – time of the last write.
type Auction struct {
	ID              uint64        // auctions.id
	ItemID          uint64        // auctions.item_id
	StartPrice      int64         // auctions.start_price
	CurrentPrice    int64         // auctions.current_price
	HighestBidderID *uint64       // auctions.highest_bidder_id (nullable)
	StartsAt        time.Time     // auctions.starts_at
	EndsAt          time.Time     // auctions.ends_at
	Status          AuctionStatus // auctions.status
	Version         uint64        // auctions.version
	CreatedAt       time.Time     // auctions.created_at
	UpdatedAt       time.Time     // auctions.updated_at
}

// Accepting reports whether a bid validated at now may still be applied.
func (a *Auction) Accepting(now time.Time) bool {
	return a.Status == AuctionOngoing && now.Before(a.EndsAt)
}

// Expired reports whether the sweep should end the auction at now.
func (a *Auction) Expired(now time.Time) bool {
	return a.Status == AuctionOngoing && !a.EndsAt.After(now)
}

// HasBids reports whether at least one bid has been accepted.
func (a *Auction) HasBids() bool { return a.HighestBidderID != nil }

// IsHighestBidder compares by value, never by pointer identity.
func (a *Auction) IsHighestBidder(userID uint64) bool {
	return a.HighestBidderID != nil && *a.HighestBidderID == userID
}
