package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Abdu732a/jitsi/pkg/log"
	"github.com/Abdu732a/jitsi/pkg/meet"
)

// SessionController is the controller surface the facade consumes.
type SessionController interface {
	Submit(room, displayName string) error
	Snapshot() meet.Snapshot
}

// CommandDispatcher forwards user intents to the live session.
type CommandDispatcher interface {
	ToggleAudio()
	ToggleVideo()
	ToggleChat()
	HangUp()
}

// HTTPServer handles REST API requests
type HTTPServer struct {
	controller SessionController
	dispatcher CommandDispatcher
	wsServer   *WebSocketServer
	router     http.Handler
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(controller SessionController, dispatcher CommandDispatcher, wsServer *WebSocketServer) *HTTPServer {
	server := &HTTPServer{
		controller: controller,
		dispatcher: dispatcher,
		wsServer:   wsServer,
	}
	server.registerRoutes()
	return server
}

// ServeHTTP implements the http.Handler interface
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debugf("Received request: %s %s", r.Method, r.URL.Path)
	s.router.ServeHTTP(w, r)
}

// registerRoutes sets up the API routes
func (s *HTTPServer) registerRoutes() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/ws/state", s.wsServer.HandleState)
	mux.HandleFunc("/ws/host", s.wsServer.HandleHost)

	// Param router for the command path: /api/session/commands/{command}
	pr := NewParamRouter()
	pr.Handle("/api/session/commands/{command}", s.handleCommand)

	s.router = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/session/commands/") {
			pr.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// handleSession handles requests for the /api/session endpoint
func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleGetSession(w, r)
	case http.MethodDelete:
		s.handleHangUp(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// SubmitRequest is the request body for starting a session
type SubmitRequest struct {
	Room        string `json:"room,omitempty"`
	DisplayName string `json:"display_name"`
}

// handleSubmit starts a session attempt
func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.controller.Submit(req.Room, req.DisplayName); err != nil {
		if errors.Is(err, meet.ErrDisplayNameRequired) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "joining"})
}

// handleHangUp hangs up the active session
func (s *HTTPServer) handleHangUp(w http.ResponseWriter, r *http.Request) {
	s.dispatcher.HangUp()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "leaving"})
}

// handleGetSession returns the observable session state tuple
func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap := s.controller.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"phase":        snap.Phase.String(),
		"is_loading":   snap.IsLoading,
		"room":         snap.Room,
		"display_name": snap.DisplayName,
	})
}

// handleCommand forwards a toggle command to the active session
func (s *HTTPServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch PathParam(r, "command") {
	case "toggle_audio":
		s.dispatcher.ToggleAudio()
	case "toggle_video":
		s.dispatcher.ToggleVideo()
	case "toggle_chat":
		s.dispatcher.ToggleChat()
	case "hangup":
		s.dispatcher.HangUp()
	default:
		http.Error(w, "Unknown command", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// handleHealth returns health status
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.controller.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"phase":  snap.Phase.String(),
	})
}
