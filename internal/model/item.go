package model

import "github.com/shopspring/decimal"

// Item is the thing being sold.  It is read-only to the auction engine;
// listing and editing items happen elsewhere.
type Item struct {
	ID            uint64          // items.id
	SellerID      uint64          // items.seller_id
	Name          string          // items.name
	Description   string          // items.description
	Type          string          // items.auction_type (e.g. FORWARD)
	BaseShipCost  decimal.Decimal // items.base_ship_cost
	ExpeditedCost decimal.Decimal // items.expedited_cost
}
