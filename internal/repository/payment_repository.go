package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/auction-engine/internal/model"
)

// PaymentRepo persists payments.  payments.auction_id is unique, so an
// auction can be paid for at most once.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// Create inserts a payment.  A second payment for the same auction returns
// ErrDuplicate.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO payments (id, auction_id, payee_id, payment_date, expected_delivery_date, is_expedited)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.AuctionID, p.PayeeID, p.PaymentDate.UTC(), p.ExpectedDeliveryDate.UTC(), p.IsExpedited)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID fetches a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, auction_id, payee_id, payment_date, expected_delivery_date, is_expedited
		 FROM payments WHERE id = ? LIMIT 1`,
		id).Scan(&p.ID, &p.AuctionID, &p.PayeeID, &p.PaymentDate, &p.ExpectedDeliveryDate, &p.IsExpedited)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
