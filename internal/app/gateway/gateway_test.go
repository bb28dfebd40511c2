package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stillpoint/serenity/internal/app/domain/chat"
	"github.com/stillpoint/serenity/internal/app/services/groupsessions"
	"github.com/stillpoint/serenity/internal/app/storage/memory"
	"github.com/stillpoint/serenity/internal/auth"
)

type gatewayEnv struct {
	gw       *Gateway
	sessions *groupsessions.Service
	tokens   *auth.TokenService
	url      string
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	t.Helper()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	sessions := groupsessions.New(memory.New(), nil)
	gw := New(tokens, sessions, nil, nil)

	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
	})

	return &gatewayEnv{
		gw:       gw,
		sessions: sessions,
		tokens:   tokens,
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (e *gatewayEnv) token(t *testing.T, userID, username string) string {
	t.Helper()
	token, err := e.tokens.Issue(auth.Principal{UserID: userID, Username: username})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// dial opens a connection, optionally authenticating at the handshake.
func (e *gatewayEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := e.url
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *gatewayEnv) room(t *testing.T, hostID string) chat.GroupSession {
	t.Helper()
	gs, err := e.sessions.Create(context.Background(), hostID, groupsessions.CreateInput{Name: "evening sit"})
	if err != nil {
		t.Fatalf("create group session: %v", err)
	}
	return gs
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(Event{Event: event, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func recvErrorMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	ev := recv(t, conn)
	if ev.Event != EventError {
		t.Fatalf("event = %s, want %s", ev.Event, EventError)
	}
	var payload ErrorPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	return payload.Message
}

func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed")
	}
}

func TestJoinChatLeaveFlow(t *testing.T) {
	e := newGatewayEnv(t)
	gs := e.room(t, "host")

	ada := e.dial(t, e.token(t, "u1", "ada"))
	grace := e.dial(t, e.token(t, "u2", "grace"))

	send(t, ada, EventJoinSession, sessionPayload{SessionID: gs.ID})
	ev := recv(t, ada)
	if ev.Event != EventUserJoined {
		t.Fatalf("event = %s, want %s", ev.Event, EventUserJoined)
	}
	var joined presencePayload
	if err := json.Unmarshal(ev.Data, &joined); err != nil {
		t.Fatalf("unmarshal presence: %v", err)
	}
	if joined.UserID != "u1" || joined.Message == nil || joined.Message.Type != chat.MessageTypeSystem {
		t.Fatalf("unexpected join payload: %+v", joined)
	}

	// The second join reaches both members.
	send(t, grace, EventJoinSession, sessionPayload{SessionID: gs.ID})
	for _, conn := range []*websocket.Conn{ada, grace} {
		ev := recv(t, conn)
		if ev.Event != EventUserJoined {
			t.Fatalf("event = %s, want %s", ev.Event, EventUserJoined)
		}
	}
	if n := e.gw.RoomSize(gs.ID); n != 2 {
		t.Fatalf("room size = %d, want 2", n)
	}

	send(t, grace, EventSendMessage, sendMessagePayload{SessionID: gs.ID, Content: "hello"})
	for _, conn := range []*websocket.Conn{ada, grace} {
		ev := recv(t, conn)
		if ev.Event != EventNewMessage {
			t.Fatalf("event = %s, want %s", ev.Event, EventNewMessage)
		}
		var msg chat.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		if msg.Content != "hello" || msg.SenderID != "u2" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	}

	// The leaving client sees its own departure before removal.
	send(t, ada, EventLeaveSession, sessionPayload{SessionID: gs.ID})
	for _, conn := range []*websocket.Conn{ada, grace} {
		ev := recv(t, conn)
		if ev.Event != EventUserLeft {
			t.Fatalf("event = %s, want %s", ev.Event, EventUserLeft)
		}
	}
	// Removal happens after the broadcast; allow it to land.
	deadline := time.Now().Add(time.Second)
	for e.gw.RoomSize(gs.ID) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("room size = %d, want 1", e.gw.RoomSize(gs.ID))
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Two joins, one chat message, one leave were persisted in order.
	msgs, err := e.sessions.ListMessages(context.Background(), gs.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("persisted %d messages, want 4", len(msgs))
	}
	if msgs[2].Type != chat.MessageTypeUser || msgs[2].Content != "hello" {
		t.Fatalf("unexpected third message: %+v", msgs[2])
	}
}

func TestUnauthenticatedEventRejected(t *testing.T) {
	e := newGatewayEnv(t)
	gs := e.room(t, "host")

	conn := e.dial(t, "")
	send(t, conn, EventSendMessage, sendMessagePayload{SessionID: gs.ID, Content: "hi"})
	if got := recvErrorMessage(t, conn); got != "not authenticated" {
		t.Fatalf("message = %q", got)
	}

	// Nothing was persisted.
	msgs, err := e.sessions.ListMessages(context.Background(), gs.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("persisted %d messages, want 0", len(msgs))
	}

	// The connection survives; a frame-level authenticate unlocks it.
	send(t, conn, EventAuthenticate, authenticatePayload{Token: e.token(t, "u1", "ada")})
	send(t, conn, EventJoinSession, sessionPayload{SessionID: gs.ID})
	if ev := recv(t, conn); ev.Event != EventUserJoined {
		t.Fatalf("event = %s, want %s", ev.Event, EventUserJoined)
	}
}

func TestAuthenticateWithBadTokenCloses(t *testing.T) {
	e := newGatewayEnv(t)

	conn := e.dial(t, "")
	send(t, conn, EventAuthenticate, authenticatePayload{Token: "not.a.token"})
	if got := recvErrorMessage(t, conn); got == "" {
		t.Fatal("expected an error message")
	}
	expectClosed(t, conn)
}

func TestHandshakeWithBadTokenCloses(t *testing.T) {
	e := newGatewayEnv(t)

	conn := e.dial(t, "not.a.token")
	if got := recvErrorMessage(t, conn); got == "" {
		t.Fatal("expected an error message")
	}
	expectClosed(t, conn)
}

func TestJoinUnknownSession(t *testing.T) {
	e := newGatewayEnv(t)

	conn := e.dial(t, e.token(t, "u1", "ada"))
	send(t, conn, EventJoinSession, sessionPayload{SessionID: "missing"})
	if got := recvErrorMessage(t, conn); got != "group session not found" {
		t.Fatalf("message = %q", got)
	}
}

func TestTypingRequiresRoomMembership(t *testing.T) {
	e := newGatewayEnv(t)
	gs := e.room(t, "host")

	conn := e.dial(t, e.token(t, "u1", "ada"))
	send(t, conn, EventTypingStart, sessionPayload{SessionID: gs.ID})
	if got := recvErrorMessage(t, conn); got != "not in session" {
		t.Fatalf("message = %q", got)
	}

	send(t, conn, EventJoinSession, sessionPayload{SessionID: gs.ID})
	if ev := recv(t, conn); ev.Event != EventUserJoined {
		t.Fatalf("event = %s, want %s", ev.Event, EventUserJoined)
	}

	send(t, conn, EventTypingStart, sessionPayload{SessionID: gs.ID})
	ev := recv(t, conn)
	if ev.Event != EventTypingStart {
		t.Fatalf("event = %s, want %s", ev.Event, EventTypingStart)
	}

	// Typing indicators are not persisted.
	msgs, err := e.sessions.ListMessages(context.Background(), gs.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("persisted %d messages, want 1", len(msgs))
	}
}

func TestConcurrentSends(t *testing.T) {
	e := newGatewayEnv(t)
	gs := e.room(t, "host")

	ada := e.dial(t, e.token(t, "u1", "ada"))
	grace := e.dial(t, e.token(t, "u2", "grace"))

	send(t, ada, EventJoinSession, sessionPayload{SessionID: gs.ID})
	if ev := recv(t, ada); ev.Event != EventUserJoined {
		t.Fatalf("event = %s, want %s", ev.Event, EventUserJoined)
	}
	send(t, grace, EventJoinSession, sessionPayload{SessionID: gs.ID})
	if ev := recv(t, ada); ev.Event != EventUserJoined {
		t.Fatalf("event = %s, want %s", ev.Event, EventUserJoined)
	}
	if ev := recv(t, grace); ev.Event != EventUserJoined {
		t.Fatalf("event = %s, want %s", ev.Event, EventUserJoined)
	}

	var wg sync.WaitGroup
	for _, c := range []struct {
		conn    *websocket.Conn
		content string
	}{{ada, "from ada"}, {grace, "from grace"}} {
		wg.Add(1)
		go func(conn *websocket.Conn, content string) {
			defer wg.Done()
			raw, _ := json.Marshal(sendMessagePayload{SessionID: gs.ID, Content: content})
			_ = conn.WriteJSON(Event{Event: EventSendMessage, Data: raw})
		}(c.conn, c.content)
	}
	wg.Wait()

	// Each member receives both messages, in some order.
	for _, conn := range []*websocket.Conn{ada, grace} {
		got := map[string]bool{}
		for i := 0; i < 2; i++ {
			ev := recv(t, conn)
			if ev.Event != EventNewMessage {
				t.Fatalf("event = %s, want %s", ev.Event, EventNewMessage)
			}
			var msg chat.Message
			if err := json.Unmarshal(ev.Data, &msg); err != nil {
				t.Fatalf("unmarshal message: %v", err)
			}
			got[msg.Content] = true
		}
		if !got["from ada"] || !got["from grace"] {
			t.Fatalf("missing broadcasts: %v", got)
		}
	}

	msgs, err := e.sessions.ListMessages(context.Background(), gs.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	users := 0
	for _, m := range msgs {
		if m.Type == chat.MessageTypeUser {
			users++
		}
	}
	if users != 2 {
		t.Fatalf("persisted %d user messages, want 2", users)
	}
}

func TestMalformedFrame(t *testing.T) {
	e := newGatewayEnv(t)

	conn := e.dial(t, e.token(t, "u1", "ada"))
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := recvErrorMessage(t, conn); got != "malformed event" {
		t.Fatalf("message = %q", got)
	}

	send(t, conn, "bogus_event", sessionPayload{SessionID: "x"})
	if got := recvErrorMessage(t, conn); got != "unknown event: bogus_event" {
		t.Fatalf("message = %q", got)
	}
}

func TestCloseDisconnectsAndRefuses(t *testing.T) {
	e := newGatewayEnv(t)

	conn := e.dial(t, e.token(t, "u1", "ada"))
	e.gw.Close()
	expectClosed(t, conn)

	if _, _, err := websocket.DefaultDialer.Dial(e.url, nil); err == nil {
		t.Fatal("expected dial to fail after close")
	}
}
