package bridge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Abdu732a/jitsi/pkg/log"
	"github.com/Abdu732a/jitsi/pkg/meet"
)

// ErrNoHostPage is returned when a widget operation runs with no host page
// attached.
var ErrNoHostPage = errors.New("no host page attached")

// Bridge message types exchanged with the host page.
const (
	msgTypeHello    = "hello"
	msgTypeAPIReady = "api_ready"
	msgTypeEvent    = "event"
	msgTypeCreate   = "create"
	msgTypeCommand  = "command"
	msgTypeDispose  = "dispose"
)

// message is the JSON envelope on the host page socket.
type message struct {
	Type     string                 `json:"type"`
	WidgetID string                 `json:"widget_id,omitempty"`
	Name     string                 `json:"name,omitempty"`
	Args     []interface{}          `json:"args,omitempty"`
	Options  *meet.Options          `json:"options,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	APIReady bool                   `json:"api_ready,omitempty"`
}

// Hub owns the host page connection and implements meet.Factory over it.
// Widget commands go out as JSON; page-emitted widget events are routed
// back to the registered handlers by widget id.
type Hub struct {
	writeTimeout time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	apiReady bool
	widgets  map[string]*widget
}

// NewHub creates a hub with no page attached.
func NewHub(writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		writeTimeout: writeTimeout,
		widgets:      make(map[string]*widget),
	}
}

// Attach takes over a host page websocket connection and blocks reading it
// until the page disconnects. At most one page is attached at a time; a
// newcomer replaces the previous connection.
func (h *Hub) Attach(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conn != nil {
		h.conn.Close()
	}
	h.conn = conn
	h.apiReady = false
	h.mu.Unlock()

	log.Info("Host page attached")

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("Host page read error: %v", err)
			}
			break
		}
		h.handleMessage(&msg)
	}

	h.mu.Lock()
	if h.conn == conn {
		h.conn = nil
		h.apiReady = false
	}
	h.mu.Unlock()

	conn.Close()
	log.Info("Host page detached")
}

func (h *Hub) handleMessage(msg *message) {
	switch msg.Type {
	case msgTypeHello:
		h.mu.Lock()
		h.apiReady = msg.APIReady
		h.mu.Unlock()
		log.Debugf("Host page hello: api_ready=%v", msg.APIReady)
	case msgTypeAPIReady:
		h.mu.Lock()
		h.apiReady = true
		h.mu.Unlock()
		log.Debug("Host page reports external API ready")
	case msgTypeEvent:
		h.routeEvent(msg)
	default:
		log.Warnf("Unknown bridge message type: %s", msg.Type)
	}
}

// routeEvent dispatches a page-emitted widget event to the registered
// widget's handlers.
func (h *Hub) routeEvent(msg *message) {
	h.mu.Lock()
	w := h.widgets[msg.WidgetID]
	h.mu.Unlock()

	if w == nil {
		log.Warnf("Received event %q for unknown widget: %s", msg.Name, msg.WidgetID)
		return
	}
	w.fire(meet.Event(msg.Name), msg.Payload)
}

// EntryPresent reports whether the page already has the external API
// loaded, letting the bootstrap loader short-circuit the script load.
func (h *Hub) EntryPresent() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.apiReady
}

// Constructible implements meet.Factory.
func (h *Hub) Constructible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil && h.apiReady
}

// New implements meet.Factory: it instructs the page to construct the
// widget and returns a handle relaying over the hub.
func (h *Hub) New(opts meet.Options) (meet.Widget, error) {
	w := newWidget(h)

	h.mu.Lock()
	h.widgets[w.id] = w
	h.mu.Unlock()

	if err := h.send(&message{Type: msgTypeCreate, WidgetID: w.id, Options: &opts}); err != nil {
		h.unregister(w.id)
		return nil, fmt.Errorf("failed to create widget: %w", err)
	}

	log.Debugf("Created widget %s for room %s", w.id, opts.RoomName)
	return w, nil
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	delete(h.widgets, id)
	h.mu.Unlock()
}

func (h *Hub) send(msg *message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return ErrNoHostPage
	}
	h.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return h.conn.WriteJSON(msg)
}
