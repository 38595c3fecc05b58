package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/auction-engine/internal/notify"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// WSHandler streams an auction's events to websocket clients.  Each
// connection is one Hub subscription; events published before it opened
// are never replayed.
type WSHandler struct {
	Hub      *notify.Hub
	Reader   AuctionReader
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(hub *notify.Hub, reader AuctionReader, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		Hub:    hub,
		Reader: reader,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers connect from the frontend origin; auth is not
			// required to watch an auction.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log.With().Str("component", "websocket").Logger(),
	}
}

// Subscribe handles GET /v1/auctions/:id/ws.
func (h *WSHandler) Subscribe(c echo.Context) error {
	auctionID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_request", "invalid auction id")
	}
	if _, err := h.Reader.GetAuctionDetails(c.Request().Context(), auctionID); err != nil {
		return respondError(c, err)
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Warn().Err(err).Msg("upgrade failed")
		return nil
	}

	sub := h.Hub.Subscribe(auctionID)
	log := h.log.With().Str("client_id", uuid.NewString()).Uint64("auction_id", auctionID).Logger()
	log.Info().Msg("client subscribed")

	done := make(chan struct{})
	go func() {
		defer close(done)
		readPump(conn)
	}()
	writePump(conn, sub, done, log)

	h.Hub.Unsubscribe(sub)
	_ = conn.Close()
	<-done
	log.Info().Msg("client unsubscribed")
	return nil
}

// readPump discards client frames and returns when the peer goes away or
// misses a pong.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards events until the subscription closes, the reader
// stops or a write fails.
func writePump(conn *websocket.Conn, sub *notify.Subscription, done <-chan struct{}, log zerolog.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Msg("failed to encode event")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
