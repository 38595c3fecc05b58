// Package notify fans auction events out to subscribers.  Delivery is
// best-effort and at most once per attempt: nothing is persisted and a
// subscriber that joins late never sees earlier events.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the payload carried by an Event.
type EventType string

const (
	BidAccepted  EventType = "bid_accepted"
	AuctionEnded EventType = "auction_ended"
)

// NoBidsWinner is the winner name reported for auctions that closed
// without a single bid.
const NoBidsWinner = "No Bids Were Placed"

// BidAcceptedPayload is published after a bid commits.
type BidAcceptedPayload struct {
	NewHighestBid     int64     `json:"new_highest_bid"`
	HighestBidderID   uint64    `json:"highest_bidder_id"`
	HighestBidderName string    `json:"highest_bidder_name"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AuctionEndedPayload is published once when an auction reaches ENDED.
type AuctionEndedPayload struct {
	ItemName    string    `json:"item_name"`
	WinnerID    *uint64   `json:"winner_id,omitempty"`
	WinnerName  string    `json:"winner_name"`
	WinningBid  int64     `json:"winning_bid"`
	FinalizedAt time.Time `json:"finalized_at"`
	Status      string    `json:"status"`
}

// Event is the envelope sent on an auction's channel.  Exactly one of the
// payload pointers is set, matching Type.
type Event struct {
	ID           string               `json:"event_id"`
	Type         EventType            `json:"type"`
	AuctionID    uint64               `json:"auction_id"`
	BidAccepted  *BidAcceptedPayload  `json:"bid_accepted,omitempty"`
	AuctionEnded *AuctionEndedPayload `json:"auction_ended,omitempty"`
}

// NewBidAccepted builds a bid-accepted event with a fresh id.
func NewBidAccepted(auctionID uint64, p BidAcceptedPayload) Event {
	return Event{ID: uuid.NewString(), Type: BidAccepted, AuctionID: auctionID, BidAccepted: &p}
}

// NewAuctionEnded builds an auction-ended event with a fresh id.
func NewAuctionEnded(auctionID uint64, p AuctionEndedPayload) Event {
	return Event{ID: uuid.NewString(), Type: AuctionEnded, AuctionID: auctionID, AuctionEnded: &p}
}
