package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stillpoint/serenity/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	readLimitBytes = 16 << 10
	sendBufferSize = 64
)

// Client is one gateway connection. Writes are serialized through the send
// channel; the reader goroutine owns all reads.
type Client struct {
	gw   *Gateway
	conn *websocket.Conn
	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	principal auth.Principal
	authed    bool
	closing   bool
}

func newClient(gw *Gateway, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		gw:     gw,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// setPrincipal marks the connection authenticated.
func (c *Client) setPrincipal(p auth.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principal = p
	c.authed = true
}

// Principal returns the connection's principal and whether it is set.
func (c *Client) Principal() (auth.Principal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.principal, c.authed
}

// sendEvent queues an event for delivery. A full send buffer drops the
// client rather than blocking the hub.
func (c *Client) sendEvent(event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: mustRaw(data)})
	if err != nil {
		c.gw.log.WithError(err).WithField("event", event).Error("marshal outbound event")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.gw.log.WithField("event", event).Warn("send buffer full, dropping client")
		c.gw.disconnect(c)
	}
}

// shutdown closes the send channel so the write pump flushes queued events,
// sends a close frame, and tears the connection down. Safe to call more
// than once.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return
	}
	c.closing = true
	close(c.send)
}

func mustRaw(data interface{}) json.RawMessage {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return raw
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				c.gw.disconnect(c)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.gw.disconnect(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.gw.disconnect(c)
				return
			}
		}
	}
}

// readPump reads inbound events and dispatches them until the connection
// closes.
func (c *Client) readPump() {
	defer c.gw.disconnect(c)
	c.conn.SetReadLimit(readLimitBytes)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.sendEvent(EventError, ErrorPayload{Message: "malformed event"})
			continue
		}
		c.gw.dispatch(c, ev)
	}
}
