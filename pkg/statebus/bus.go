package statebus

import (
	"sync"
	"time"

	"github.com/Abdu732a/jitsi/pkg/log"
)

// State is the observable session state tuple published to subscribers.
type State struct {
	Phase       string `json:"phase"`
	IsLoading   bool   `json:"is_loading"`
	Room        string `json:"room,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Diagnostic is a surfaced failure or warning. It carries no state change
// by itself.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Update is one item on the bus: a state snapshot or a diagnostic.
type Update struct {
	State      *State      `json:"state,omitempty"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

// Subscriber receives updates on a buffered channel. Publishing never
// blocks; updates are dropped when the channel is full.
type Subscriber struct {
	ID           string
	Channel      chan Update
	LastActivity time.Time
	connected    bool
	mutex        sync.Mutex
}

// NewSubscriber creates a new subscriber with the given buffer size.
func NewSubscriber(id string, bufferSize int) *Subscriber {
	return &Subscriber{
		ID:           id,
		Channel:      make(chan Update, bufferSize),
		LastActivity: time.Now(),
		connected:    true,
	}
}

// Send delivers an update to the subscriber (non-blocking).
func (s *Subscriber) Send(u Update) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.connected {
		return false
	}

	select {
	case s.Channel <- u:
		s.LastActivity = time.Now()
		return true
	default:
		// Channel is full, drop the update
		log.Warnf("Dropping update for subscriber %s (channel full)", s.ID)
		return false
	}
}

// Close closes the subscriber's channel. Safe to call more than once.
func (s *Subscriber) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.connected {
		s.connected = false
		close(s.Channel)
	}
}

// IsConnected returns whether the subscriber is connected
func (s *Subscriber) IsConnected() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.connected
}

// Bus fans state updates out to subscribers.
type Bus struct {
	subscribers map[string]*Subscriber
	mutex       sync.RWMutex
	stats       BusStats
}

// BusStats holds counters for the bus.
type BusStats struct {
	TotalUpdates      uint64
	DroppedUpdates    uint64
	ActiveSubscribers int
	LastUpdateTime    time.Time
}

// NewBus creates a new state bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe adds a new subscriber to the bus
func (b *Bus) Subscribe(subscriber *Subscriber) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.subscribers[subscriber.ID] = subscriber
	b.stats.ActiveSubscribers = len(b.subscribers)

	log.Debugf("Added subscriber: %s (total: %d)", subscriber.ID, b.stats.ActiveSubscribers)
}

// Unsubscribe removes a subscriber from the bus and closes it.
func (b *Bus) Unsubscribe(subscriberID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if subscriber, exists := b.subscribers[subscriberID]; exists {
		subscriber.Close()
		delete(b.subscribers, subscriberID)
		b.stats.ActiveSubscribers = len(b.subscribers)

		log.Debugf("Removed subscriber: %s (total: %d)", subscriberID, b.stats.ActiveSubscribers)
	}
}

// PublishState publishes a state snapshot to all subscribers.
func (b *Bus) PublishState(state State) {
	b.publish(Update{State: &state})
}

// PublishDiagnostic publishes a diagnostic to all subscribers.
func (b *Bus) PublishDiagnostic(diag Diagnostic) {
	b.publish(Update{Diagnostic: &diag})
}

func (b *Bus) publish(u Update) {
	b.mutex.RLock()
	subscribers := make([]*Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subscribers = append(subscribers, sub)
	}
	b.mutex.RUnlock()

	b.mutex.Lock()
	b.stats.TotalUpdates++
	b.stats.LastUpdateTime = time.Now()
	b.mutex.Unlock()

	for _, subscriber := range subscribers {
		if !subscriber.IsConnected() {
			continue
		}
		if !subscriber.Send(u) {
			b.mutex.Lock()
			b.stats.DroppedUpdates++
			b.mutex.Unlock()
		}
	}
}

// Stats returns a copy of the bus counters.
func (b *Bus) Stats() BusStats {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.stats
}
