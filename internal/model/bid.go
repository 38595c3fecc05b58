package model

import "time"

// Bid is one accepted offer on an auction.  Bids are append-only: they are
// never updated or deleted and together form the auction's history.
type Bid struct {
	ID        uint64    `json:"id"`         // bids.id
	AuctionID uint64    `json:"auction_id"` // bids.auction_id
	BidderID  uint64    `json:"bidder_id"`  // bids.bidder_id
	Amount    int64     `json:"amount"`     // bids.amount
	PlacedAt  time.Time `json:"placed_at"`  // bids.placed_at (server assigned)
}

// BidWrite carries everything needed to apply an accepted bid atomically.
// ExpectedVersion is the auction version the bid was validated against.
type BidWrite struct {
	AuctionID       uint64
	BidderID        uint64
	Amount          int64
	PlacedAt        time.Time
	ExpectedVersion uint64
}

// BidSummary aggregates one bidder's activity on one auction.
type BidSummary struct {
	AuctionID       uint64
	ItemID          uint64
	ItemName        string
	CurrentPrice    int64
	HighestBidderID *uint64
	Status          AuctionStatus
	EndsAt          time.Time
	MaxAmount       int64
	LastBidAt       time.Time
}
