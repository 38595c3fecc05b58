package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/auction-engine/internal/model"
)

// BidRepo reads the append-only bids table.  Bids are written by
// AuctionRepo.ApplyBid together with the auction row.
type BidRepo struct {
	db *sql.DB
}

// NewBidRepo returns a new BidRepo bound to the provided database.
func NewBidRepo(db *sql.DB) *BidRepo { return &BidRepo{db: db} }

// ListByAuction returns all bids on an auction in insertion order.
func (r *BidRepo) ListByAuction(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, auction_id, bidder_id, amount, placed_at FROM bids WHERE auction_id = ? ORDER BY id`,
		auctionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bids := make([]model.Bid, 0)
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.PlacedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

// SummariesByBidder returns one row per auction the bidder has bid on,
// carrying the bidder's highest amount and latest bid time alongside the
// auction's live state.  Most recently active auctions come first.
func (r *BidRepo) SummariesByBidder(ctx context.Context, bidderID uint64) ([]model.BidSummary, error) {
	const q = `SELECT a.id, a.item_id, i.name, a.current_price, a.highest_bidder_id, a.status, a.ends_at,
                      MAX(b.amount), MAX(b.placed_at)
               FROM bids b
               JOIN auctions a ON a.id = b.auction_id
               JOIN items i ON i.id = a.item_id
               WHERE b.bidder_id = ?
               GROUP BY a.id, a.item_id, i.name, a.current_price, a.highest_bidder_id, a.status, a.ends_at
               ORDER BY MAX(b.placed_at) DESC`
	rows, err := r.db.QueryContext(ctx, q, bidderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BidSummary, 0)
	for rows.Next() {
		var (
			s      model.BidSummary
			leader sql.NullInt64
			status string
		)
		if err := rows.Scan(&s.AuctionID, &s.ItemID, &s.ItemName, &s.CurrentPrice, &leader,
			&status, &s.EndsAt, &s.MaxAmount, &s.LastBidAt); err != nil {
			return nil, err
		}
		if leader.Valid {
			id := uint64(leader.Int64)
			s.HighestBidderID = &id
		}
		s.Status = model.AuctionStatus(status)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
