// Package ws is the lobby's websocket transport: one Client per socket
// with the usual read/write pump pair, a JSON message envelope, and the
// fan-out side (Broadcaster) used by the matchmaking and reconcile
// layers.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jwren/castellan/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 * 1024
	sendBufferSize = 64
)

// Client owns one websocket connection. All writes go through the send
// channel so the write pump is the only goroutine touching the socket
// for data frames.
type Client struct {
	id     model.ConnectionID
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	closeOnce sync.Once
}

func newClient(id model.ConnectionID, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger,
	}
}

// Send marshals and queues one typed message. A client whose send buffer
// is full is considered dead and torn down rather than allowed to stall
// every broadcast behind it.
func (c *Client) Send(msgType string, payload any) {
	var data json.RawMessage
	if payload != nil {
		marshalled, err := json.Marshal(payload)
		if err != nil {
			c.logger.Error("failed to marshal outbound message",
				slog.String("connection", string(c.id)),
				slog.String("type", msgType),
				slog.String("error", err.Error()))
			return
		}
		data = marshalled
	}

	raw, err := json.Marshal(envelope{Type: msgType, Data: data})
	if err != nil {
		return
	}

	select {
	case c.send <- raw:
	default:
		c.logger.Warn("send buffer full, dropping connection",
			slog.String("connection", string(c.id)))
		c.Close()
	}
}

// Close shuts the outbound side down; the write pump sends the close
// frame and the read pump unwinds when the peer acknowledges
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump delivers inbound envelopes to handle until the socket dies.
// Runs on the connection's HTTP handler goroutine.
func (c *Client) readPump(handle func(envelope)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					slog.String("connection", string(c.id)),
					slog.String("error", err.Error()))
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Debug("malformed inbound message",
				slog.String("connection", string(c.id)))
			continue
		}
		handle(env)
	}
}
