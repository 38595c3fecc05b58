package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/auction-engine/internal/model"
)

// AuctionRepo provides data access to the auctions table.  Every mutation
// is a compare-and-swap on the version column so that the bid engine and
// the lifecycle scheduler serialize on the same primitive.  All timestamps
// are UTC.
type AuctionRepo struct {
	db *sql.DB
}

// NewAuctionRepo returns a new AuctionRepo bound to the provided database.
func NewAuctionRepo(db *sql.DB) *AuctionRepo { return &AuctionRepo{db: db} }

const auctionColumns = `id, item_id, start_price, current_price, highest_bidder_id,
       starts_at, ends_at, status, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(s rowScanner) (*model.Auction, error) {
	var (
		a      model.Auction
		bidder sql.NullInt64
		status string
	)
	err := s.Scan(&a.ID, &a.ItemID, &a.StartPrice, &a.CurrentPrice, &bidder,
		&a.StartsAt, &a.EndsAt, &status, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if bidder.Valid {
		id := uint64(bidder.Int64)
		a.HighestBidderID = &id
	}
	a.Status = model.AuctionStatus(status)
	return &a, nil
}

// GetByID loads one auction.  It returns ErrNotFound when no row matches.
func (r *AuctionRepo) GetByID(ctx context.Context, id uint64) (*model.Auction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, id)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListExpired returns every ONGOING auction whose deadline is at or before
// now, oldest deadline first.
func (r *AuctionRepo) ListExpired(ctx context.Context, now time.Time) ([]model.Auction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions
		 WHERE status = 'ONGOING' AND ends_at <= ?
		 ORDER BY ends_at, id`,
		now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyBid raises the auction's price and appends the bid row in one
// transaction.  The UPDATE only matches when the auction is still ONGOING
// at the expected version and the amount still exceeds the stored price;
// otherwise nothing is written and ErrVersionConflict is returned.
func (r *AuctionRepo) ApplyBid(ctx context.Context, w model.BidWrite) (*model.Bid, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	placedAt := w.PlacedAt.UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE auctions
		 SET current_price = ?, highest_bidder_id = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND status = 'ONGOING' AND current_price < ?`,
		w.Amount, w.BidderID, placedAt, w.AuctionID, w.ExpectedVersion, w.Amount,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrVersionConflict
	}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO bids (auction_id, bidder_id, amount, placed_at) VALUES (?, ?, ?, ?)`,
		w.AuctionID, w.BidderID, w.Amount, placedAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &model.Bid{
		ID:        uint64(id),
		AuctionID: w.AuctionID,
		BidderID:  w.BidderID,
		Amount:    w.Amount,
		PlacedAt:  placedAt,
	}, nil
}

// MarkEnded moves an ONGOING auction at the expected version to ENDED.
// It returns ErrVersionConflict when the row was changed or already ended.
func (r *AuctionRepo) MarkEnded(ctx context.Context, id, version uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET status = 'ENDED', version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND status = 'ONGOING'`,
		at.UTC(), id, version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}
