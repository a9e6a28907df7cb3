package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Abdu732a/jitsi/pkg/config"
	"github.com/Abdu732a/jitsi/pkg/meet"
	"github.com/Abdu732a/jitsi/pkg/statebus"
)

type submitCall struct {
	Room        string
	DisplayName string
}

type stubController struct {
	mu        sync.Mutex
	submitErr error
	submits   []submitCall
	snap      meet.Snapshot
}

func (s *stubController) Submit(room, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits = append(s.submits, submitCall{room, displayName})
	return s.submitErr
}

func (s *stubController) Snapshot() meet.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

type stubDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *stubDispatcher) record(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, name)
}

func (d *stubDispatcher) ToggleAudio() { d.record("toggle_audio") }
func (d *stubDispatcher) ToggleVideo() { d.record("toggle_video") }
func (d *stubDispatcher) ToggleChat()  { d.record("toggle_chat") }
func (d *stubDispatcher) HangUp()      { d.record("hangup") }

func (d *stubDispatcher) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.calls...)
}

type stubHub struct{}

func (stubHub) Attach(conn *websocket.Conn) { conn.Close() }

func testWSConfig() *config.Config {
	return &config.Config{
		WebSocket: config.WebSocketConfig{
			WriteTimeout: time.Second,
			ReadTimeout:  5 * time.Second,
			PingInterval: time.Minute,
		},
	}
}

func newTestFacade(controller *stubController, dispatcher *stubDispatcher) *httptest.Server {
	ws := NewWebSocketServer(statebus.NewBus(), controller, stubHub{}, testWSConfig())
	return httptest.NewServer(NewHTTPServer(controller, dispatcher, ws))
}

func TestSessionSubmit(t *testing.T) {
	controller := &stubController{}
	srv := newTestFacade(controller, &stubDispatcher{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/session", "application/json",
		strings.NewReader(`{"room":"standup","display_name":"Alex"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["status"] != "joining" {
		t.Errorf(`status field = %q, want "joining"`, body["status"])
	}

	controller.mu.Lock()
	defer controller.mu.Unlock()
	if len(controller.submits) != 1 || controller.submits[0] != (submitCall{"standup", "Alex"}) {
		t.Errorf("controller received %+v", controller.submits)
	}
}

func TestSessionSubmitRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		submitErr  error
		wantStatus int
	}{
		{"empty display name", `{"display_name":""}`, meet.ErrDisplayNameRequired, http.StatusBadRequest},
		{"malformed body", `{display_name}`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := &stubController{submitErr: tt.submitErr}
			srv := newTestFacade(controller, &stubDispatcher{})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/session", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestSessionSnapshot(t *testing.T) {
	controller := &stubController{snap: meet.Snapshot{
		Phase:       meet.PhaseActive,
		Room:        "standup",
		DisplayName: "Alex",
	}}
	srv := newTestFacade(controller, &stubDispatcher{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["phase"] != "active" || body["room"] != "standup" || body["display_name"] != "Alex" {
		t.Errorf("body = %+v", body)
	}
	if body["is_loading"] != false {
		t.Errorf("is_loading = %v, want false", body["is_loading"])
	}
}

func TestSessionDelete(t *testing.T) {
	dispatcher := &stubDispatcher{}
	srv := newTestFacade(&stubController{}, dispatcher)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/session", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	if got := dispatcher.recorded(); len(got) != 1 || got[0] != "hangup" {
		t.Errorf("dispatcher calls = %v, want [hangup]", got)
	}
}

func TestSessionMethodNotAllowed(t *testing.T) {
	srv := newTestFacade(&stubController{}, &stubDispatcher{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/session", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestCommandEndpoint(t *testing.T) {
	tests := []struct {
		command    string
		wantStatus int
		wantCall   string
	}{
		{"toggle_audio", http.StatusAccepted, "toggle_audio"},
		{"toggle_video", http.StatusAccepted, "toggle_video"},
		{"toggle_chat", http.StatusAccepted, "toggle_chat"},
		{"hangup", http.StatusAccepted, "hangup"},
		{"mute_everyone", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			dispatcher := &stubDispatcher{}
			srv := newTestFacade(&stubController{}, dispatcher)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/session/commands/"+tt.command, "application/json", nil)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			got := dispatcher.recorded()
			if tt.wantCall == "" {
				if len(got) != 0 {
					t.Errorf("dispatcher calls = %v, want none", got)
				}
			} else if len(got) != 1 || got[0] != tt.wantCall {
				t.Errorf("dispatcher calls = %v, want [%s]", got, tt.wantCall)
			}
		})
	}
}

func TestCommandEndpointRequiresPost(t *testing.T) {
	srv := newTestFacade(&stubController{}, &stubDispatcher{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/session/commands/toggle_audio")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	controller := &stubController{snap: meet.Snapshot{Phase: meet.PhaseIdle}}
	srv := newTestFacade(controller, &stubDispatcher{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["status"] != "ok" || body["phase"] != "idle" {
		t.Errorf("body = %+v", body)
	}
}
