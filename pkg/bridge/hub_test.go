package bridge

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Abdu732a/jitsi/pkg/meet"
)

// testPage is the client side of a host page connection.
type testPage struct {
	conn *websocket.Conn
}

func (p *testPage) sendHello(t *testing.T, apiReady bool) {
	t.Helper()
	if err := p.conn.WriteJSON(message{Type: msgTypeHello, APIReady: apiReady}); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}
}

func (p *testPage) read(t *testing.T) message {
	t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg message
	if err := p.conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read bridge message: %v", err)
	}
	return msg
}

func attachPage(t *testing.T, hub *Hub) *testPage {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial host page socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testPage{conn: conn}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHubNotConstructibleWithoutPage(t *testing.T) {
	hub := NewHub(time.Second)

	if hub.Constructible() {
		t.Error("Constructible() = true with no page attached")
	}
	if hub.EntryPresent() {
		t.Error("EntryPresent() = true with no page attached")
	}
	if _, err := hub.New(meet.Options{RoomName: "r"}); !errors.Is(err, ErrNoHostPage) {
		t.Errorf("New() error = %v, want ErrNoHostPage", err)
	}
}

func TestHubHelloMakesConstructible(t *testing.T) {
	hub := NewHub(time.Second)
	page := attachPage(t, hub)

	page.sendHello(t, true)
	waitFor(t, "constructible", hub.Constructible)

	if !hub.EntryPresent() {
		t.Error("EntryPresent() = false after api_ready hello")
	}
}

func TestHubCreateCommandDispose(t *testing.T) {
	hub := NewHub(time.Second)
	page := attachPage(t, hub)
	page.sendHello(t, true)
	waitFor(t, "constructible", hub.Constructible)

	w, err := hub.New(meet.Options{RoomName: "demo", Domain: "meet.example.org"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	created := page.read(t)
	if created.Type != msgTypeCreate {
		t.Fatalf("message type = %q, want create", created.Type)
	}
	if created.WidgetID == "" {
		t.Error("create message has no widget id")
	}
	if created.Options == nil || created.Options.RoomName != "demo" {
		t.Errorf("create options = %+v, want roomName demo", created.Options)
	}

	if err := w.ExecuteCommand(meet.CommandToggleAudio); err != nil {
		t.Fatalf("ExecuteCommand returned error: %v", err)
	}
	cmd := page.read(t)
	if cmd.Type != msgTypeCommand || cmd.Name != string(meet.CommandToggleAudio) {
		t.Errorf("command message = %+v", cmd)
	}
	if cmd.WidgetID != created.WidgetID {
		t.Errorf("command widget id = %q, want %q", cmd.WidgetID, created.WidgetID)
	}

	if err := w.Dispose(); err != nil {
		t.Fatalf("Dispose returned error: %v", err)
	}
	disposed := page.read(t)
	if disposed.Type != msgTypeDispose || disposed.WidgetID != created.WidgetID {
		t.Errorf("dispose message = %+v", disposed)
	}

	// Second dispose is a no-op; commands after dispose fail.
	if err := w.Dispose(); err != nil {
		t.Errorf("second Dispose returned error: %v", err)
	}
	if err := w.ExecuteCommand(meet.CommandHangUp); err == nil {
		t.Error("ExecuteCommand on disposed widget returned no error")
	}
}

func TestHubEventRouting(t *testing.T) {
	hub := NewHub(time.Second)
	page := attachPage(t, hub)
	page.sendHello(t, true)
	waitFor(t, "constructible", hub.Constructible)

	w, err := hub.New(meet.Options{RoomName: "demo"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	created := page.read(t)

	fired := make(chan map[string]interface{}, 1)
	w.On(meet.EventJoined, func(payload map[string]interface{}) {
		fired <- payload
	})

	// Event for an unknown widget id is dropped without fallout.
	if err := page.conn.WriteJSON(message{Type: msgTypeEvent, WidgetID: "bogus", Name: string(meet.EventJoined)}); err != nil {
		t.Fatalf("failed to send event: %v", err)
	}

	err = page.conn.WriteJSON(message{
		Type:     msgTypeEvent,
		WidgetID: created.WidgetID,
		Name:     string(meet.EventJoined),
		Payload:  map[string]interface{}{"roomName": "demo"},
	})
	if err != nil {
		t.Fatalf("failed to send event: %v", err)
	}

	select {
	case payload := <-fired:
		if payload["roomName"] != "demo" {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("joined handler never fired")
	}
}

func TestHubDetachResetsReadiness(t *testing.T) {
	hub := NewHub(time.Second)
	page := attachPage(t, hub)
	page.sendHello(t, true)
	waitFor(t, "constructible", hub.Constructible)

	page.conn.Close()
	waitFor(t, "detach", func() bool { return !hub.Constructible() })

	if hub.EntryPresent() {
		t.Error("EntryPresent() = true after page detached")
	}
}
