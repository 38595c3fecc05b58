package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auction-engine/internal/middleware"
	"github.com/iliyamo/auction-engine/internal/model"
	"github.com/iliyamo/auction-engine/internal/service"
)

// Settler is implemented by *service.Settlement.
type Settler interface {
	PlacePayment(ctx context.Context, auctionID, payerID uint64, expedited bool) (*service.Receipt, error)
	ComputeReceipt(ctx context.Context, paymentID string, userID uint64) (*service.Receipt, error)
}

type PaymentHandler struct {
	Settlement Settler
}

func NewPaymentHandler(s Settler) *PaymentHandler {
	if s == nil {
		panic("nil settlement passed to NewPaymentHandler")
	}
	return &PaymentHandler{Settlement: s}
}

// receiptResponse renders money with exactly two decimals.
type receiptResponse struct {
	PaymentID            string        `json:"payment_id"`
	AuctionID            uint64        `json:"auction_id"`
	ItemID               uint64        `json:"item_id"`
	PayeeID              uint64        `json:"payee_id"`
	PayeeName            string        `json:"payee_name"`
	ShippingAddress      model.Address `json:"shipping_address"`
	WinningBid           string        `json:"winning_bid"`
	BaseShipCost         string        `json:"base_ship_cost"`
	ExpeditedCost        string        `json:"expedited_cost"`
	IsExpedited          bool          `json:"is_expedited"`
	TotalPaid            string        `json:"total_paid"`
	PaymentDate          time.Time     `json:"payment_date"`
	ExpectedDeliveryDate time.Time     `json:"expected_delivery_date"`
}

func toReceiptResponse(r *service.Receipt) receiptResponse {
	return receiptResponse{
		PaymentID:            r.PaymentID,
		AuctionID:            r.AuctionID,
		ItemID:               r.ItemID,
		PayeeID:              r.PayeeID,
		PayeeName:            r.PayeeName,
		ShippingAddress:      r.ShippingAddress,
		WinningBid:           r.WinningBid.StringFixed(2),
		BaseShipCost:         r.BaseShipCost.StringFixed(2),
		ExpeditedCost:        r.ExpeditedCost.StringFixed(2),
		IsExpedited:          r.IsExpedited,
		TotalPaid:            r.TotalPaid.StringFixed(2),
		PaymentDate:          r.PaymentDate,
		ExpectedDeliveryDate: r.ExpectedDeliveryDate,
	}
}

type placePaymentRequest struct {
	Expedited bool `json:"expedited"`
}

// PlacePayment handles POST /v1/auctions/:id/payments with body
// {"expedited": true}.  Card handling belongs to the payment provider; only
// the winner may pay.
func (h *PaymentHandler) PlacePayment(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_request", "invalid auction id")
	}
	var body placePaymentRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid_request", "invalid request body")
	}
	r, err := h.Settlement.PlacePayment(c.Request().Context(), id, userID, body.Expedited)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toReceiptResponse(r))
}

// Receipt handles GET /v1/payments/:id/receipt.
func (h *PaymentHandler) Receipt(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	paymentID := strings.TrimSpace(c.Param("id"))
	if paymentID == "" {
		return badRequest(c, "invalid_request", "invalid payment id")
	}
	r, err := h.Settlement.ComputeReceipt(c.Request().Context(), paymentID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReceiptResponse(r))
}
