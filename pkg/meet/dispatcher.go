package meet

import (
	"github.com/Abdu732a/jitsi/pkg/log"
	"github.com/Abdu732a/jitsi/pkg/statebus"
)

// Dispatcher forwards user-initiated intents to the active widget handle.
// Every call is a silent no-op when no handle is live, so stale
// invocations from the presentation shell are harmless.
type Dispatcher struct {
	c *Controller
}

// NewDispatcher creates a dispatcher bound to the controller's handle.
func NewDispatcher(c *Controller) *Dispatcher {
	return &Dispatcher{c: c}
}

func (d *Dispatcher) ToggleAudio() { d.forward(CommandToggleAudio) }

func (d *Dispatcher) ToggleVideo() { d.forward(CommandToggleVideo) }

func (d *Dispatcher) ToggleChat() { d.forward(CommandToggleChat) }

// HangUp forwards the hang-up command. A hang-up failure is treated as an
// implicit left event: the session folds to Idle instead of leaving a
// dangling active state. On success the widget emits the left event
// itself.
func (d *Dispatcher) HangUp() {
	c := d.c
	c.post(func() {
		if !c.alive || c.handle == nil {
			return
		}
		if err := safeCommand(c.handle, CommandHangUp); err != nil {
			c.forceLeave(err)
		}
	})
}

func (d *Dispatcher) forward(cmd Command) {
	c := d.c
	c.post(func() {
		if !c.alive || c.handle == nil {
			return
		}
		if err := safeCommand(c.handle, cmd); err != nil {
			log.Warnf("Command %s failed: %v", cmd, err)
			c.bus.PublishDiagnostic(statebus.Diagnostic{
				Kind:    DiagCommandFailure,
				Message: err.Error(),
			})
		}
	})
}
