package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auction-engine/internal/notify"
)

func endedEvent(winner *uint64) notify.Event {
	ev := notify.NewAuctionEnded(7, notify.AuctionEndedPayload{
		ItemName:    `Leica "M3"`,
		WinnerID:    winner,
		WinnerName:  "Alan Turing",
		WinningBid:  800,
		FinalizedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:      "ENDED",
	})
	ev.ID = "evt-1"
	return ev
}

func TestFormatAuctionEnded(t *testing.T) {
	id := uint64(2)
	assert.Equal(t,
		"[2025-03-01T12:00:00Z] Auction ended | auction_id=7 | item=\"Leica 'M3'\" | winner_id=2 | winner=\"Alan Turing\" | winning_bid=800 | event_id=evt-1\n",
		FormatAuctionEnded(endedEvent(&id)))

	line := FormatAuctionEnded(endedEvent(nil))
	assert.Contains(t, line, "winner_id=none")
}

func TestDecodeAuctionEndedRejectsOtherEvents(t *testing.T) {
	body, err := json.Marshal(notify.NewBidAccepted(7, notify.BidAcceptedPayload{NewHighestBid: 10}))
	require.NoError(t, err)
	_, err = DecodeAuctionEnded(body)
	assert.Error(t, err)

	_, err = DecodeAuctionEnded([]byte("{"))
	assert.Error(t, err)
}

func TestHandleAppendsLines(t *testing.T) {
	c := NewConsumer("amqp://unused", zerolog.Nop())
	c.LogPath = filepath.Join(t.TempDir(), "logs", "auction.log")

	id := uint64(2)
	body, err := json.Marshal(endedEvent(&id))
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))
	require.NoError(t, c.Handle(body))
	assert.Error(t, c.Handle([]byte("not json")))

	data, err := os.ReadFile(c.LogPath)
	require.NoError(t, err)
	assert.Equal(t, 2*len(FormatAuctionEnded(endedEvent(&id))), len(data))
}
