// Package queue consumes the durable auction.ended queue and keeps an
// append-only audit log of final auction results.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/auction-engine/internal/notify"
)

// DecodeAuctionEnded parses a queue message.  Anything other than an
// auction-ended event is rejected.
func DecodeAuctionEnded(body []byte) (notify.Event, error) {
	var ev notify.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type != notify.AuctionEnded || ev.AuctionEnded == nil {
		return ev, fmt.Errorf("unexpected event type %q", ev.Type)
	}
	return ev, nil
}

// FormatAuctionEnded renders one log line for an ended auction.
func FormatAuctionEnded(ev notify.Event) string {
	p := ev.AuctionEnded
	winner := "none"
	if p.WinnerID != nil {
		winner = fmt.Sprintf("%d", *p.WinnerID)
	}
	item := strings.ReplaceAll(p.ItemName, `"`, `'`)
	name := strings.ReplaceAll(p.WinnerName, `"`, `'`)
	return fmt.Sprintf("[%s] Auction ended | auction_id=%d | item=\"%s\" | winner_id=%s | winner=\"%s\" | winning_bid=%d | event_id=%s\n",
		p.FinalizedAt.UTC().Format(time.RFC3339), ev.AuctionID, item, winner, name, p.WinningBid, ev.ID)
}
