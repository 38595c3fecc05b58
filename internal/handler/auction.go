package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auction-engine/internal/middleware"
	"github.com/iliyamo/auction-engine/internal/model"
	"github.com/iliyamo/auction-engine/internal/service"
)

// Bidder is implemented by *service.BidEngine.
type Bidder interface {
	PlaceBid(ctx context.Context, auctionID, bidderID uint64, amount int64) (*service.BidOutcome, error)
}

// AuctionReader is implemented by *service.Queries.
type AuctionReader interface {
	GetAuctionDetails(ctx context.Context, auctionID uint64) (*service.AuctionDetails, error)
	BidHistory(ctx context.Context, auctionID uint64) ([]model.Bid, error)
	UserBids(ctx context.Context, bidderID uint64) ([]service.UserBid, error)
}

// ResultReader is implemented by *service.Lifecycle.
type ResultReader interface {
	AuctionResult(ctx context.Context, auctionID uint64) (*service.AuctionResult, error)
}

// AuctionHandler serves the auction and bidding endpoints.
type AuctionHandler struct {
	Bids    Bidder
	Reader  AuctionReader
	Results ResultReader
}

func NewAuctionHandler(bids Bidder, reader AuctionReader, results ResultReader) *AuctionHandler {
	if bids == nil || reader == nil || results == nil {
		panic("nil dependency passed to NewAuctionHandler")
	}
	return &AuctionHandler{Bids: bids, Reader: reader, Results: results}
}

// GetAuction handles GET /v1/auctions/:id.
func (h *AuctionHandler) GetAuction(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_request", "invalid auction id")
	}
	d, err := h.Reader.GetAuctionDetails(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListBids handles GET /v1/auctions/:id/bids and returns the accepted bids
// in acceptance order.
func (h *AuctionHandler) ListBids(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_request", "invalid auction id")
	}
	bids, err := h.Reader.BidHistory(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"auction_id": id, "bids": bids})
}

type placeBidRequest struct {
	Amount *int64 `json:"amount"`
}

// PlaceBid handles POST /v1/auctions/:id/bids with body {"amount": 170}.
// The bidder is the authenticated user.
func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_request", "invalid auction id")
	}
	var body placeBidRequest
	if err := c.Bind(&body); err != nil || body.Amount == nil {
		return badRequest(c, "invalid_bid", "amount is required")
	}
	out, err := h.Bids.PlaceBid(c.Request().Context(), id, userID, *body.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// MyBids handles GET /v1/me/bids.
func (h *AuctionHandler) MyBids(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	rows, err := h.Reader.UserBids(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bids": rows})
}

// Result handles GET /v1/auctions/:id/result.  It is 409 until the auction
// has ended.
func (h *AuctionHandler) Result(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_request", "invalid auction id")
	}
	res, err := h.Results.AuctionResult(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
