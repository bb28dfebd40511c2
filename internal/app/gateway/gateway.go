// Package gateway runs the realtime WebSocket hub for group session chat.
// Connections authenticate with the same JWTs as the HTTP API, join rooms
// keyed by group session ID, and exchange chat and presence events. All
// chat and membership changes are persisted through the group session
// service before they are broadcast.
package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/chat"
	"github.com/stillpoint/serenity/internal/app/metrics"
	"github.com/stillpoint/serenity/internal/app/services/groupsessions"
	"github.com/stillpoint/serenity/internal/auth"
	"github.com/stillpoint/serenity/pkg/logger"
)

// Client-to-server event names.
const (
	EventAuthenticate = "authenticate"
	EventJoinSession  = "join_session"
	EventLeaveSession = "leave_session"
	EventSendMessage  = "send_message"
	EventTypingStart  = "typing_start"
	EventTypingEnd    = "typing_end"
)

// Server-to-client event names.
const (
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventNewMessage = "new_message"
	EventError      = "error"
)

// Event is the wire envelope for both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

type authenticatePayload struct {
	Token string `json:"token"`
}

type sessionPayload struct {
	SessionID string `json:"session_id"`
}

type sendMessagePayload struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

type presencePayload struct {
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Username  string        `json:"username"`
	Message   *chat.Message `json:"message,omitempty"`
}

// Gateway is the hub: it tracks connections, their room membership, and
// fans events out to rooms.
type Gateway struct {
	tokens   *auth.TokenService
	sessions *groupsessions.Service
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	closed  bool
}

// New constructs a gateway. checkOrigin mirrors the HTTP CORS policy; a
// nil checkOrigin accepts any origin.
func New(tokens *auth.TokenService, sessions *groupsessions.Service, log *logger.Logger, checkOrigin func(r *http.Request) bool) *Gateway {
	if log == nil {
		log = logger.NewDefault("gateway")
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Gateway{
		tokens:   tokens,
		sessions: sessions,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// HandleWS upgrades the request and runs the connection until it closes.
// A token query parameter authenticates at the handshake; otherwise the
// first authenticate event must carry one.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	closed := g.closed
	g.mu.RUnlock()
	if closed {
		http.Error(w, "gateway shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := newClient(g, conn)
	if token := r.URL.Query().Get("token"); token != "" {
		principal, err := g.tokens.Verify(token)
		if err != nil {
			g.rejectAndClose(client, err)
			return
		}
		client.setPrincipal(principal)
	}

	g.mu.Lock()
	g.clients[client] = struct{}{}
	g.mu.Unlock()
	metrics.ConnectionOpened()

	go client.writePump()
	client.readPump()
}

// rejectAndClose sends one error event and closes the connection without
// registering the client.
func (g *Gateway) rejectAndClose(c *Client, err error) {
	payload, _ := json.Marshal(Event{Event: EventError, Data: mustRaw(ErrorPayload{Message: err.Error()})})
	_ = c.conn.WriteMessage(websocket.TextMessage, payload)
	_ = c.conn.Close()
	c.cancel()
}

// dispatch routes one inbound event and turns a handler failure into an
// error event to the originating connection only.
func (g *Gateway) dispatch(c *Client, ev Event) {
	err := g.handle(c, ev)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		message := "internal error"
		if appErr := apperr.FromError(err); appErr != nil {
			message = appErr.Message
		} else {
			g.log.WithError(err).WithField("event", ev.Event).Error("event handler failed")
		}
		c.sendEvent(EventError, ErrorPayload{Message: message})
		// A failed authenticate closes the connection after the error event
		// is flushed; there is no retry.
		if ev.Event == EventAuthenticate {
			c.shutdown()
		}
	}
	metrics.RecordGatewayEvent(ev.Event, outcome)
}

func (g *Gateway) handle(c *Client, ev Event) error {
	if ev.Event == EventAuthenticate {
		return g.handleAuthenticate(c, ev.Data)
	}

	principal, ok := c.Principal()
	if !ok {
		return apperr.Unauthorized("not authenticated")
	}

	switch ev.Event {
	case EventJoinSession:
		return g.handleJoin(c, principal, ev.Data)
	case EventLeaveSession:
		return g.handleLeave(c, principal, ev.Data)
	case EventSendMessage:
		return g.handleSendMessage(c, principal, ev.Data)
	case EventTypingStart, EventTypingEnd:
		return g.handleTyping(c, principal, ev.Event, ev.Data)
	default:
		return apperr.Validation("unknown event: " + ev.Event)
	}
}

func (g *Gateway) handleAuthenticate(c *Client, data json.RawMessage) error {
	var payload authenticatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Token == "" {
		return apperr.Unauthorized("invalid token")
	}

	principal, err := g.tokens.Verify(payload.Token)
	if err != nil {
		return apperr.Unauthorized(err.Error())
	}
	c.setPrincipal(principal)
	return nil
}

func (g *Gateway) handleJoin(c *Client, p auth.Principal, data json.RawMessage) error {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		return apperr.Validation("session_id is required")
	}

	msg, err := g.sessions.Join(c.ctx, payload.SessionID, p.UserID, p.Username)
	if err != nil {
		return err
	}

	g.mu.Lock()
	room, ok := g.rooms[payload.SessionID]
	if !ok {
		room = make(map[*Client]struct{})
		g.rooms[payload.SessionID] = room
	}
	room[c] = struct{}{}
	g.mu.Unlock()

	g.broadcast(payload.SessionID, EventUserJoined, presencePayload{
		SessionID: payload.SessionID,
		UserID:    p.UserID,
		Username:  p.Username,
		Message:   &msg,
	})
	return nil
}

func (g *Gateway) handleLeave(c *Client, p auth.Principal, data json.RawMessage) error {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		return apperr.Validation("session_id is required")
	}

	msg, err := g.sessions.Leave(c.ctx, payload.SessionID, p.UserID, p.Username)
	if err != nil {
		return err
	}

	// Broadcast before removal so the leaving client sees its own departure.
	g.broadcast(payload.SessionID, EventUserLeft, presencePayload{
		SessionID: payload.SessionID,
		UserID:    p.UserID,
		Username:  p.Username,
		Message:   &msg,
	})

	g.mu.Lock()
	if room, ok := g.rooms[payload.SessionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(g.rooms, payload.SessionID)
		}
	}
	g.mu.Unlock()
	return nil
}

func (g *Gateway) handleSendMessage(c *Client, p auth.Principal, data json.RawMessage) error {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		return apperr.Validation("session_id is required")
	}

	msg, err := g.sessions.PostMessage(c.ctx, payload.SessionID, p.UserID, p.Username, payload.Content)
	if err != nil {
		return err
	}

	g.broadcast(payload.SessionID, EventNewMessage, msg)
	return nil
}

// handleTyping relays typing indicators without persistence.
func (g *Gateway) handleTyping(c *Client, p auth.Principal, event string, data json.RawMessage) error {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		return apperr.Validation("session_id is required")
	}

	if !g.inRoom(c, payload.SessionID) {
		return apperr.Validation("not in session")
	}

	g.broadcast(payload.SessionID, event, presencePayload{
		SessionID: payload.SessionID,
		UserID:    p.UserID,
		Username:  p.Username,
	})
	return nil
}

func (g *Gateway) inRoom(c *Client, sessionID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[sessionID][c]
	return ok
}

// broadcast fans an event out to every connection in a room.
func (g *Gateway) broadcast(sessionID, event string, data interface{}) {
	g.mu.RLock()
	members := make([]*Client, 0, len(g.rooms[sessionID]))
	for member := range g.rooms[sessionID] {
		members = append(members, member)
	}
	g.mu.RUnlock()

	for _, member := range members {
		member.sendEvent(event, data)
	}
}

// disconnect removes a client from every room and closes its connection.
// Safe to call more than once.
func (g *Gateway) disconnect(c *Client) {
	g.mu.Lock()
	if _, ok := g.clients[c]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.clients, c)
	for sessionID, room := range g.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(g.rooms, sessionID)
		}
	}
	g.mu.Unlock()

	c.cancel()
	_ = c.conn.Close()
	metrics.ConnectionClosed()
}

// RoomSize returns the number of connections in a room.
func (g *Gateway) RoomSize(sessionID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms[sessionID])
}

// Close disconnects every client and refuses new connections.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	clients := make([]*Client, 0, len(g.clients))
	for c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		g.disconnect(c)
	}
	g.log.Info("gateway closed")
}
