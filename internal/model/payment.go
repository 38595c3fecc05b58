package model

import "time"

// Delivery windows measured from the payment date.
const (
	ExpeditedDeliveryDays = 2
	StandardDeliveryDays  = 7
)

// Payment records that the winner of an ended auction paid for it.  At most
// one payment exists per auction.
type Payment struct {
	ID                   string    // payments.id (uuid)
	AuctionID            uint64    // payments.auction_id
	PayeeID              uint64    // payments.payee_id
	PaymentDate          time.Time // payments.payment_date
	ExpectedDeliveryDate time.Time // payments.expected_delivery_date
	IsExpedited          bool      // payments.is_expedited
}

// ExpectedDelivery returns the delivery date for a payment made at paidAt.
func ExpectedDelivery(paidAt time.Time, expedited bool) time.Time {
	if expedited {
		return paidAt.AddDate(0, 0, ExpeditedDeliveryDays)
	}
	return paidAt.AddDate(0, 0, StandardDeliveryDays)
}
