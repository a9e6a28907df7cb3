package bridge

import (
	"fmt"

	"sync"

	"github.com/google/uuid"

	"github.com/Abdu732a/jitsi/pkg/meet"
)

// widget is the hub-backed meet.Widget. One instance corresponds to one
// constructed widget on the host page.
type widget struct {
	hub *Hub
	id  string

	mu       sync.Mutex
	handlers map[meet.Event][]func(map[string]interface{})
	disposed bool
}

func newWidget(h *Hub) *widget {
	return &widget{
		hub:      h,
		id:       uuid.NewString(),
		handlers: make(map[meet.Event][]func(map[string]interface{})),
	}
}

func (w *widget) On(event meet.Event, handler func(payload map[string]interface{})) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[event] = append(w.handlers[event], handler)
}

func (w *widget) ExecuteCommand(cmd meet.Command, args ...interface{}) error {
	w.mu.Lock()
	disposed := w.disposed
	w.mu.Unlock()
	if disposed {
		return fmt.Errorf("widget %s is disposed", w.id)
	}

	return w.hub.send(&message{
		Type:     msgTypeCommand,
		WidgetID: w.id,
		Name:     string(cmd),
		Args:     args,
	})
}

// Dispose tells the page to tear the widget down and unregisters it from
// event routing. Subsequent calls are no-ops.
func (w *widget) Dispose() error {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return nil
	}
	w.disposed = true
	w.mu.Unlock()

	w.hub.unregister(w.id)
	return w.hub.send(&message{Type: msgTypeDispose, WidgetID: w.id})
}

// fire invokes the registered handlers for an event. Handlers registered
// after dispose never fire because the widget is unregistered first.
func (w *widget) fire(event meet.Event, payload map[string]interface{}) {
	w.mu.Lock()
	handlers := make([]func(map[string]interface{}), len(w.handlers[event]))
	copy(handlers, w.handlers[event])
	w.mu.Unlock()

	for _, handler := range handlers {
		handler(payload)
	}
}
