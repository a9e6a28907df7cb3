package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Abdu732a/jitsi/pkg/config"
	"github.com/Abdu732a/jitsi/pkg/log"
	"github.com/Abdu732a/jitsi/pkg/statebus"
)

// HostAttacher is the bridge surface the host-page endpoint hands
// connections to.
type HostAttacher interface {
	Attach(conn *websocket.Conn)
}

// WebSocketServer handles WebSocket connections: the state stream for
// presentation shells and the host page bridge socket.
type WebSocketServer struct {
	upgrader     websocket.Upgrader
	bus          *statebus.Bus
	controller   SessionController
	hub          HostAttacher
	config       *config.Config
	clients      map[string]*Client
	clientsMutex sync.RWMutex
}

// NewWebSocketServer creates a new WebSocket server
func NewWebSocketServer(bus *statebus.Bus, controller SessionController, hub HostAttacher, cfg *config.Config) *WebSocketServer {
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		bus:        bus,
		controller: controller,
		hub:        hub,
		config:     cfg,
		clients:    make(map[string]*Client),
	}
}

// HandleState handles state stream connections from presentation shells.
func (s *WebSocketServer) HandleState(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade WebSocket connection: %v", err)
		return
	}

	client := NewClient(conn, s.bus, s.config)
	s.addClient(client)

	log.Infof("State stream client connected: %s", client.ID)

	snap := s.controller.Snapshot()
	client.Process(statebus.State{
		Phase:       snap.Phase.String(),
		IsLoading:   snap.IsLoading,
		Room:        snap.Room,
		DisplayName: snap.DisplayName,
	})

	s.removeClient(client.ID)
	log.Infof("State stream client disconnected: %s", client.ID)
}

// HandleHost hands the host page connection over to the bridge hub.
func (s *WebSocketServer) HandleHost(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade host page connection: %v", err)
		return
	}

	s.hub.Attach(conn)
}

// addClient adds a client to the server's list
func (s *WebSocketServer) addClient(client *Client) {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	s.clients[client.ID] = client
}

// removeClient removes a client from the server's list
func (s *WebSocketServer) removeClient(clientID string) {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	delete(s.clients, clientID)
}

// Client represents a single state stream client
type Client struct {
	ID         string
	conn       *websocket.Conn
	bus        *statebus.Bus
	config     *config.Config
	subscriber *statebus.Subscriber
	sendChan   chan []byte
	stopChan   chan struct{}
}

// NewClient creates a new client
func NewClient(conn *websocket.Conn, bus *statebus.Bus, cfg *config.Config) *Client {
	return &Client{
		ID:       conn.RemoteAddr().String() + "-" + uuid.NewString()[:8],
		conn:     conn,
		bus:      bus,
		config:   cfg,
		sendChan: make(chan []byte, 100),
		stopChan: make(chan struct{}),
	}
}

// Process streams bus updates to the client until it disconnects. The
// initial state is sent first so the shell renders without waiting for a
// transition.
func (c *Client) Process(initial statebus.State) {
	c.subscriber = statebus.NewSubscriber(c.ID, 64)
	c.bus.Subscribe(c.subscriber)
	defer c.bus.Unsubscribe(c.ID)

	go c.writePump()
	go c.readPump()

	if msg, err := EncodeUpdate(statebus.Update{State: &initial}); err == nil {
		c.sendChan <- msg
	}

	for update := range c.subscriber.Channel {
		msg, err := EncodeUpdate(update)
		if err != nil {
			continue
		}
		select {
		case c.sendChan <- msg:
		default:
			log.Warnf("Dropping update for client %s (send channel full)", c.ID)
		}
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
		close(c.stopChan)
	}()

	pingTicker := time.NewTicker(c.config.WebSocket.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WebSocket.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Errorf("Error writing to WebSocket: %v", err)
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WebSocket.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Errorf("Error sending ping to WebSocket: %v", err)
				return
			}
			log.Debugf("Sent ping to client %s", c.ID)
		}
	}
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.subscriber.Close()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.config.WebSocket.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.WebSocket.ReadTimeout))
		log.Debugf("Received pong from client %s", c.ID)
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket read error: %v", err)
			}
			break
		}
		// Any message resets the deadline, not just pongs.
		c.conn.SetReadDeadline(time.Now().Add(c.config.WebSocket.ReadTimeout))
	}
}
