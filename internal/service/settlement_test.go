package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auction-engine/internal/model"
)

// endedFixture is an ENDED auction won by user 2 at 800 after a bidding
// war with user 3.
func endedFixture() *fixture {
	f := newFixture()
	f.mem.seedBid(1, 2, 700, t0.Add(-30*time.Minute))
	f.mem.seedBid(1, 3, 750, t0.Add(-20*time.Minute))
	f.mem.seedBid(1, 2, 800, t0.Add(-10*time.Minute))
	a := f.mem.auction(1)
	a.Status = model.AuctionEnded
	a.EndsAt = t0.Add(-5 * time.Minute)
	f.mem.putAuction(a)
	return f
}

func (f *fixture) settlement() *Settlement { return NewSettlement(f.store, f.opts) }

func TestTotal(t *testing.T) {
	item := &model.Item{BaseShipCost: decimal.RequireFromString("18.50"), ExpeditedCost: decimal.RequireFromString("32.00")}
	assert.Equal(t, "850.50", Total(800, item, true).StringFixed(2))
	assert.Equal(t, "818.50", Total(800, item, false).StringFixed(2))

	cents := &model.Item{BaseShipCost: decimal.RequireFromString("0.10"), ExpeditedCost: decimal.RequireFromString("0.20")}
	assert.True(t, Total(0, cents, true).Equal(decimal.RequireFromString("0.30")))
}

func TestPlacePaymentExpedited(t *testing.T) {
	f := endedFixture()
	r, err := f.settlement().PlacePayment(context.Background(), 1, 2, true)
	require.NoError(t, err)

	assert.NotEmpty(t, r.PaymentID)
	assert.Equal(t, uint64(10), r.ItemID)
	assert.Equal(t, "Alan Turing", r.PayeeName)
	assert.Equal(t, "Toronto", r.ShippingAddress.City)
	assert.True(t, r.WinningBid.Equal(decimal.NewFromInt(800)))
	assert.True(t, r.TotalPaid.Equal(decimal.RequireFromString("850.50")), r.TotalPaid.String())
	assert.Equal(t, t0, r.PaymentDate)
	assert.Equal(t, t0.AddDate(0, 0, 2), r.ExpectedDeliveryDate)

	again, err := f.settlement().ComputeReceipt(context.Background(), r.PaymentID, 2)
	require.NoError(t, err)
	assert.True(t, again.TotalPaid.Equal(r.TotalPaid))
	assert.Equal(t, r.ExpectedDeliveryDate, again.ExpectedDeliveryDate)
}

func TestPlacePaymentStandard(t *testing.T) {
	f := endedFixture()
	r, err := f.settlement().PlacePayment(context.Background(), 1, 2, false)
	require.NoError(t, err)
	assert.True(t, r.ExpeditedCost.IsZero())
	assert.Equal(t, "818.50", r.TotalPaid.StringFixed(2))
	assert.Equal(t, t0.AddDate(0, 0, 7), r.ExpectedDeliveryDate)
}

func TestPlacePaymentRejections(t *testing.T) {
	t.Run("loser is forbidden", func(t *testing.T) {
		f := endedFixture()
		_, err := f.settlement().PlacePayment(context.Background(), 1, 3, false)
		assert.ErrorIs(t, err, ErrForbidden)
	})
	t.Run("ongoing auction", func(t *testing.T) {
		f := newFixture()
		f.mem.seedBid(1, 2, 800, t0)
		_, err := f.settlement().PlacePayment(context.Background(), 1, 2, false)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
	t.Run("unknown auction", func(t *testing.T) {
		f := endedFixture()
		_, err := f.settlement().PlacePayment(context.Background(), 42, 2, false)
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("already paid", func(t *testing.T) {
		f := endedFixture()
		_, err := f.settlement().PlacePayment(context.Background(), 1, 2, false)
		require.NoError(t, err)
		_, err = f.settlement().PlacePayment(context.Background(), 1, 2, true)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Len(t, f.mem.payments, 1)
	})
	t.Run("ended without bids", func(t *testing.T) {
		f := newFixture()
		a := f.mem.auction(1)
		a.Status = model.AuctionEnded
		f.mem.putAuction(a)
		_, err := f.settlement().PlacePayment(context.Background(), 1, 2, false)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestComputeReceiptAuthorization(t *testing.T) {
	f := endedFixture()
	r, err := f.settlement().PlacePayment(context.Background(), 1, 2, true)
	require.NoError(t, err)

	_, err = f.settlement().ComputeReceipt(context.Background(), r.PaymentID, 3)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.settlement().ComputeReceipt(context.Background(), "missing", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComputeReceiptUsesBidHistory(t *testing.T) {
	f := endedFixture()
	r, err := f.settlement().PlacePayment(context.Background(), 1, 2, true)
	require.NoError(t, err)

	// A stale cached price must not change what the winner owes.
	a := f.mem.auction(1)
	a.CurrentPrice = 1
	f.mem.putAuction(a)

	got, err := f.settlement().ComputeReceipt(context.Background(), r.PaymentID, 2)
	require.NoError(t, err)
	assert.Equal(t, "850.50", got.TotalPaid.StringFixed(2))
}
