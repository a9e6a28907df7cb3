package meet

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Abdu732a/jitsi/pkg/log"
	"github.com/Abdu732a/jitsi/pkg/statebus"
)

// Diagnostic kinds published on the state bus.
const (
	DiagLoadFailure         = "load_failure"
	DiagConstructorTimeout  = "constructor_timeout"
	DiagConstructionFailure = "construction_failure"
	DiagCommandFailure      = "command_failure"
	DiagDisplayNameRequired = "display_name_required"
	DiagWidgetError         = "widget_error"
)

// Settings holds the controller's widget and retry configuration.
type Settings struct {
	Domain                   string
	Width                    string
	Height                   string
	ParentNode               string
	DefaultDisplayName       string
	PollInterval             time.Duration
	MaxPollAttempts          int
	ConfigOverwrite          map[string]interface{}
	InterfaceConfigOverwrite map[string]interface{}
}

func (s Settings) withDefaults() Settings {
	if s.Width == "" {
		s.Width = "100%"
	}
	if s.Height == "" {
		s.Height = "100%"
	}
	if s.ParentNode == "" {
		s.ParentNode = "meet"
	}
	if s.DefaultDisplayName == "" {
		s.DefaultDisplayName = "Guest"
	}
	if s.PollInterval <= 0 {
		s.PollInterval = 500 * time.Millisecond
	}
	if s.MaxPollAttempts <= 0 {
		s.MaxPollAttempts = 12
	}
	if s.ConfigOverwrite == nil {
		s.ConfigOverwrite = map[string]interface{}{
			"prejoinPageEnabled": false,
		}
	}
	if s.InterfaceConfigOverwrite == nil {
		s.InterfaceConfigOverwrite = map[string]interface{}{
			"SHOW_JITSI_WATERMARK":        false,
			"DEFAULT_REMOTE_DISPLAY_NAME": "Participant",
		}
	}
	return s
}

// Controller drives the session lifecycle state machine. It owns the one
// live widget handle; all transitions run on a single op loop, so no two
// transitions are ever concurrent.
type Controller struct {
	settings Settings
	loader   *Loader
	factory  Factory
	bus      *statebus.Bus
	clk      clock.Clock

	ops       chan func()
	closed    chan struct{}
	closeOnce sync.Once

	// Mutated only on the op loop.
	alive       bool
	phase       Phase
	loading     bool
	room        string
	displayName string
	handle      Widget
	pollTimer   *clock.Timer
	pollCount   int
	gen         uint64 // attempt generation; stale deferred callbacks check it

	lastMu sync.Mutex
	last   Snapshot
}

// NewController creates and starts a session controller. clk may be nil, in
// which case the wall clock is used. bus may be nil.
func NewController(settings Settings, loader *Loader, factory Factory, bus *statebus.Bus, clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	if bus == nil {
		bus = statebus.NewBus()
	}
	c := &Controller{
		settings: settings.withDefaults(),
		loader:   loader,
		factory:  factory,
		bus:      bus,
		clk:      clk,
		ops:      make(chan func(), 64),
		closed:   make(chan struct{}),
		alive:    true,
		phase:    PhaseIdle,
	}
	c.last = Snapshot{Phase: PhaseIdle}
	go c.run()
	return c
}

func (c *Controller) run() {
	for {
		select {
		case op := <-c.ops:
			op()
		case <-c.closed:
			return
		}
	}
}

// post schedules op on the controller loop. Ops posted after Close are
// dropped.
func (c *Controller) post(op func()) {
	select {
	case c.ops <- op:
	case <-c.closed:
	}
}

// Submit starts a session attempt. An empty display name is rejected at
// the boundary: no transition occurs and no handle is constructed. A
// missing room identifier gets a generated one.
func (c *Controller) Submit(room, displayName string) error {
	if strings.TrimSpace(displayName) == "" {
		log.Warn("Rejecting session request with empty display name")
		c.bus.PublishDiagnostic(statebus.Diagnostic{
			Kind:    DiagDisplayNameRequired,
			Message: ErrDisplayNameRequired.Error(),
		})
		return ErrDisplayNameRequired
	}
	c.post(func() { c.startAttempt(room, displayName) })
	return nil
}

// Snapshot returns the last observed state tuple. Safe at any time,
// including after Close.
func (c *Controller) Snapshot() Snapshot {
	c.lastMu.Lock()
	defer c.lastMu.Unlock()
	return c.last
}

// Close tears the controller down: the poll timer is invalidated, the
// handle (if any) is disposed exactly once, and any deferred callback
// still in flight can no longer mutate state. Idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		done := make(chan struct{})
		c.ops <- func() {
			c.teardown()
			close(done)
		}
		<-done
		close(c.closed)
	})
}

func (c *Controller) startAttempt(room, displayName string) {
	if !c.alive {
		return
	}
	if c.phase != PhaseIdle {
		// A new request supersedes the prior one only after the prior
		// session is fully disposed.
		log.Warnf("Session attempt already in progress (phase=%s), ignoring submit", c.phase)
		return
	}

	if room == "" {
		room = GenerateRoomName()
	}
	c.room = room
	c.displayName = displayName
	c.pollCount = 0
	c.gen++

	log.Infof("Starting session attempt: room=%s displayName=%s", room, displayName)
	c.setState(PhaseAwaitingLibrary, true)
	c.checkLibrary()
}

// checkLibrary runs on the op loop: it advances AwaitingLibrary either to
// Connecting (library ready and constructor callable) or schedules a
// bounded re-check.
func (c *Controller) checkLibrary() {
	if !c.alive || c.phase != PhaseAwaitingLibrary {
		return
	}

	switch c.loader.EnsureLoaded() {
	case ReadinessFailed:
		c.failAttempt(c.loader.Err())
		return
	case ReadinessReady:
		if c.factory.Constructible() {
			c.enterConnecting()
			return
		}
	}

	if c.pollCount >= c.settings.MaxPollAttempts {
		c.failAttempt(fmt.Errorf("%w after %d attempts", ErrConstructorTimeout, c.pollCount))
		return
	}
	c.pollCount++

	gen := c.gen
	c.pollTimer = c.clk.AfterFunc(c.settings.PollInterval, func() {
		c.post(func() {
			if !c.alive || gen != c.gen {
				return
			}
			c.checkLibrary()
		})
	})
}

func (c *Controller) enterConnecting() {
	c.stopPollTimer()
	c.setState(PhaseConnecting, true)

	// Guards against races where cleanup from a prior attempt has not yet
	// run: never construct while a previous handle exists.
	c.disposeHandle()

	w, err := c.constructAndWire()
	if err != nil {
		c.failAttempt(err)
		return
	}
	c.handle = w
	log.Infof("Widget constructed for room: %s", c.room)
}

// constructAndWire builds the widget and registers event callbacks. Any
// failure, including a panic from the external surface, is converted to a
// ConstructionFailure and never propagates.
func (c *Controller) constructAndWire() (w Widget, err error) {
	defer func() {
		if r := recover(); r != nil {
			if w != nil {
				safeDispose(w)
			}
			w = nil
			err = fmt.Errorf("%w: panic: %v", ErrConstructionFailure, r)
		}
	}()

	displayName := c.displayName
	if displayName == "" {
		displayName = c.settings.DefaultDisplayName
	}
	w, err = c.factory.New(Options{
		Domain:                   c.settings.Domain,
		RoomName:                 c.room,
		Width:                    c.settings.Width,
		Height:                   c.settings.Height,
		ParentNode:               c.settings.ParentNode,
		ConfigOverwrite:          c.settings.ConfigOverwrite,
		InterfaceConfigOverwrite: c.settings.InterfaceConfigOverwrite,
		UserInfo:                 UserInfo{DisplayName: displayName},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstructionFailure, err)
	}

	gen := c.gen
	w.On(EventJoined, func(_ map[string]interface{}) {
		c.post(func() { c.onJoined(gen) })
	})
	w.On(EventLeft, func(_ map[string]interface{}) {
		c.post(func() { c.onLeft(gen) })
	})
	w.On(EventLog, func(payload map[string]interface{}) {
		c.post(func() { c.onWidgetLog(gen, payload) })
	})
	return w, nil
}

func (c *Controller) onJoined(gen uint64) {
	if !c.alive || gen != c.gen || c.phase != PhaseConnecting {
		return
	}
	c.setState(PhaseActive, false)
	log.Infof("Joined conference: %s", c.room)

	// Re-assert the display name in case the constructor option was not
	// honored.
	if err := safeCommand(c.handle, CommandDisplayName, c.displayName); err != nil {
		log.Warnf("Failed to re-assert display name: %v", err)
	}
}

func (c *Controller) onLeft(gen uint64) {
	if !c.alive || gen != c.gen {
		return
	}
	log.Infof("Left conference: %s", c.room)
	c.disposeHandle()
	c.clearRequest()
	c.setState(PhaseIdle, false)
}

func (c *Controller) onWidgetLog(gen uint64, payload map[string]interface{}) {
	if !c.alive || gen != c.gen {
		return
	}
	// Only error-level widget logs are surfaced; no state transition.
	if level, _ := payload["logLevel"].(string); level != "error" {
		return
	}
	msg := fmt.Sprint(payload["args"])
	log.Errorf("Widget error: %s", msg)
	c.bus.PublishDiagnostic(statebus.Diagnostic{Kind: DiagWidgetError, Message: msg})
}

// failAttempt resolves the current attempt through the transient Error
// phase and folds back to Idle with the request cleared.
func (c *Controller) failAttempt(err error) {
	c.stopPollTimer()
	c.disposeHandle()

	log.Errorf("Session attempt failed: %v", err)
	c.bus.PublishDiagnostic(statebus.Diagnostic{Kind: diagnosticKind(err), Message: err.Error()})

	c.setState(PhaseError, false)
	c.clearRequest()
	c.setState(PhaseIdle, false)
}

// forceLeave folds the session to Idle as if a left event had been
// received. Used by the dispatcher when hang-up fails.
func (c *Controller) forceLeave(reason error) {
	if !c.alive {
		return
	}
	log.Warnf("Forcing leave: %v", reason)
	c.bus.PublishDiagnostic(statebus.Diagnostic{Kind: diagnosticKind(reason), Message: reason.Error()})
	c.disposeHandle()
	c.clearRequest()
	c.setState(PhaseIdle, false)
}

func (c *Controller) teardown() {
	if !c.alive {
		return
	}
	c.alive = false
	c.stopPollTimer()
	c.disposeHandle()
	c.clearRequest()
	c.setState(PhaseIdle, false)
	log.Info("Session controller closed")
}

// disposeHandle disposes and clears the current handle, if any. Bumping
// the generation first guarantees events from the disposed handle can no
// longer mutate state.
func (c *Controller) disposeHandle() {
	if c.handle == nil {
		return
	}
	h := c.handle
	c.handle = nil
	c.gen++
	if err := safeDispose(h); err != nil {
		log.Warnf("Widget dispose failed: %v", err)
	}
}

func (c *Controller) stopPollTimer() {
	if c.pollTimer != nil {
		c.pollTimer.Stop()
		c.pollTimer = nil
	}
}

func (c *Controller) clearRequest() {
	c.room = ""
	c.displayName = ""
}

func (c *Controller) setState(phase Phase, loading bool) {
	c.phase = phase
	c.loading = loading

	snap := Snapshot{
		Phase:       phase,
		IsLoading:   loading,
		Room:        c.room,
		DisplayName: c.displayName,
	}
	c.lastMu.Lock()
	c.last = snap
	c.lastMu.Unlock()

	c.bus.PublishState(statebus.State{
		Phase:       phase.String(),
		IsLoading:   loading,
		Room:        snap.Room,
		DisplayName: snap.DisplayName,
	})
}

func diagnosticKind(err error) string {
	switch {
	case errors.Is(err, ErrLoadFailure):
		return DiagLoadFailure
	case errors.Is(err, ErrConstructorTimeout):
		return DiagConstructorTimeout
	case errors.Is(err, ErrConstructionFailure):
		return DiagConstructionFailure
	case errors.Is(err, ErrCommandFailure):
		return DiagCommandFailure
	default:
		return DiagConstructionFailure
	}
}

// safeCommand forwards a command to the widget, converting panics from the
// external surface into errors.
func safeCommand(w Widget, cmd Command, args ...interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrCommandFailure, cmd, r)
		}
	}()
	if err := w.ExecuteCommand(cmd, args...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCommandFailure, cmd, err)
	}
	return nil
}

// safeDispose disposes a widget, converting panics into errors. The handle
// is already cleared by the caller, so dispose runs at most once per
// instance.
func safeDispose(w Widget) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispose panic: %v", r)
		}
	}()
	return w.Dispose()
}
