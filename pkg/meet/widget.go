package meet

// Event names emitted by the external widget. The widget defines this
// surface; we only consume it.
type Event string

const (
	EventJoined Event = "videoConferenceJoined"
	EventLeft   Event = "videoConferenceLeft"
	EventLog    Event = "log"
)

// Command names understood by the external widget.
type Command string

const (
	CommandDisplayName Command = "displayName"
	CommandHangUp      Command = "hangup"
	CommandToggleAudio Command = "toggleAudio"
	CommandToggleVideo Command = "toggleVideo"
	CommandToggleChat  Command = "toggleChat"
)

// UserInfo is the user portion of the widget constructor options.
type UserInfo struct {
	DisplayName string `json:"displayName"`
}

// Options is the configuration passed to the widget constructor.
type Options struct {
	Domain                   string                 `json:"domain"`
	RoomName                 string                 `json:"roomName"`
	Width                    string                 `json:"width"`
	Height                   string                 `json:"height"`
	ParentNode               string                 `json:"parentNode"`
	ConfigOverwrite          map[string]interface{} `json:"configOverwrite,omitempty"`
	InterfaceConfigOverwrite map[string]interface{} `json:"interfaceConfigOverwrite,omitempty"`
	UserInfo                 UserInfo               `json:"userInfo"`
}

// Widget is the capability surface of one live widget instance.
// It is a fixed external contract; implementations relay to the real
// embeddable widget.
type Widget interface {
	// On registers a callback for a widget-emitted event. Callbacks may be
	// invoked from any goroutine.
	On(event Event, handler func(payload map[string]interface{}))
	// ExecuteCommand forwards a command to the widget.
	ExecuteCommand(cmd Command, args ...interface{}) error
	// Dispose tears the widget down. Implementations must tolerate being
	// called more than once.
	Dispose() error
}

// Factory abstracts widget construction so the controller can poll for the
// constructor becoming callable and tests can substitute fakes.
type Factory interface {
	// Constructible reports whether the widget constructor is callable
	// right now. Script load completing does not guarantee this.
	Constructible() bool
	// New constructs a widget. It must only be called when Constructible
	// returned true, but implementations should still fail cleanly.
	New(opts Options) (Widget, error)
}
