package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/auction-engine/internal/model"
	"github.com/iliyamo/auction-engine/internal/repository"
)

// Receipt is what the winner owes for an ended auction.  All money is
// exact decimal.
type Receipt struct {
	PaymentID            string          `json:"payment_id"`
	AuctionID            uint64          `json:"auction_id"`
	ItemID               uint64          `json:"item_id"`
	PayeeID              uint64          `json:"payee_id"`
	PayeeName            string          `json:"payee_name"`
	ShippingAddress      model.Address   `json:"shipping_address"`
	WinningBid           decimal.Decimal `json:"winning_bid"`
	BaseShipCost         decimal.Decimal `json:"base_ship_cost"`
	ExpeditedCost        decimal.Decimal `json:"expedited_cost"`
	IsExpedited          bool            `json:"is_expedited"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	PaymentDate          time.Time       `json:"payment_date"`
	ExpectedDeliveryDate time.Time       `json:"expected_delivery_date"`
}

// Total is winningBid + baseShip, plus expedited when requested.
func Total(winningBid int64, item *model.Item, expedited bool) decimal.Decimal {
	total := decimal.NewFromInt(winningBid).Add(item.BaseShipCost)
	if expedited {
		total = total.Add(item.ExpeditedCost)
	}
	return total
}

// Settlement computes receipts and records payments.  Only the winner of
// an ENDED auction may do either; anyone else gets ErrForbidden.
type Settlement struct {
	store Store
	opts  Options
}

func NewSettlement(store Store, opts Options) *Settlement {
	if store.Auctions == nil || store.Bids == nil || store.Users == nil || store.Items == nil || store.Payments == nil {
		panic("nil store passed to NewSettlement")
	}
	return &Settlement{store: store, opts: opts.withDefaults()}
}

// ComputeReceipt rebuilds the receipt of an existing payment for userID.
func (s *Settlement) ComputeReceipt(ctx context.Context, paymentID string, userID uint64) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	p, err := s.store.Payments.GetByID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
	}
	if err != nil {
		return nil, dbError("load payment", err)
	}
	a, err := s.authorize(ctx, p.AuctionID, userID)
	if err != nil {
		return nil, err
	}
	return s.receipt(ctx, a, p)
}

// PlacePayment records the winner's payment for auctionID and returns its
// receipt.  An auction can be paid once; a second attempt is
// ErrInvalidState.
func (s *Settlement) PlacePayment(ctx context.Context, auctionID, payerID uint64, expedited bool) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	a, err := s.authorize(ctx, auctionID, payerID)
	if err != nil {
		return nil, err
	}
	now := s.opts.Clock()
	p := &model.Payment{
		ID:                   uuid.NewString(),
		AuctionID:            a.ID,
		PayeeID:              payerID,
		PaymentDate:          now,
		ExpectedDeliveryDate: model.ExpectedDelivery(now, expedited),
		IsExpedited:          expedited,
	}
	// Build the receipt first so a lookup failure leaves nothing behind.
	r, err := s.receipt(ctx, a, p)
	if err != nil {
		return nil, err
	}
	err = s.store.Payments.Create(ctx, p)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("auction %d already paid: %w", a.ID, ErrInvalidState)
	}
	if err != nil {
		return nil, dbError("create payment", err)
	}
	return r, nil
}

// authorize loads the auction and checks it is ENDED and won by userID.
func (s *Settlement) authorize(ctx context.Context, auctionID, userID uint64) (*model.Auction, error) {
	a, err := loadAuction(ctx, s.store.Auctions, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AuctionEnded {
		return nil, fmt.Errorf("auction %d is %s: %w", a.ID, a.Status, ErrInvalidState)
	}
	if !a.IsHighestBidder(userID) {
		return nil, fmt.Errorf("user %d did not win auction %d: %w", userID, a.ID, ErrForbidden)
	}
	return a, nil
}

// receipt prices p from the bid history rather than the cached current
// price.
func (s *Settlement) receipt(ctx context.Context, a *model.Auction, p *model.Payment) (*Receipt, error) {
	bids, err := s.store.Bids.ListByAuction(ctx, a.ID)
	if err != nil {
		return nil, dbError("list bids", err)
	}
	winner := *a.HighestBidderID
	winning, found := int64(0), false
	for _, b := range bids {
		if b.BidderID == winner && (!found || b.Amount > winning) {
			winning, found = b.Amount, true
		}
	}
	if !found {
		return nil, fmt.Errorf("auction %d has no bids by its winner: %w", a.ID, ErrInvalidState)
	}

	item, err := loadItem(ctx, s.store.Items, a.ItemID)
	if err != nil {
		return nil, err
	}
	payee, err := loadUser(ctx, s.store.Users, p.PayeeID)
	if err != nil {
		return nil, err
	}

	expeditedCost := decimal.Zero
	if p.IsExpedited {
		expeditedCost = item.ExpeditedCost
	}
	return &Receipt{
		PaymentID:            p.ID,
		AuctionID:            a.ID,
		ItemID:               item.ID,
		PayeeID:              payee.ID,
		PayeeName:            payee.DisplayName(),
		ShippingAddress:      payee.Address,
		WinningBid:           decimal.NewFromInt(winning),
		BaseShipCost:         item.BaseShipCost,
		ExpeditedCost:        expeditedCost,
		IsExpedited:          p.IsExpedited,
		TotalPaid:            Total(winning, item, p.IsExpedited),
		PaymentDate:          p.PaymentDate,
		ExpectedDeliveryDate: p.ExpectedDeliveryDate,
	}, nil
}
