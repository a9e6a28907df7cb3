package server

import (
	"encoding/json"
	"fmt"

	"github.com/Abdu732a/jitsi/pkg/statebus"
)

// WebSocket message types
const (
	MessageTypeState      = "state"
	MessageTypeDiagnostic = "diagnostic"
	MessageTypeError      = "error"
)

// StateMessage carries the observable session state tuple.
type StateMessage struct {
	Type  string         `json:"type"`
	State statebus.State `json:"state"`
}

// DiagnosticMessage carries a surfaced failure or warning.
type DiagnosticMessage struct {
	Type       string              `json:"type"`
	Diagnostic statebus.Diagnostic `json:"diagnostic"`
}

// ErrorMessage is sent when the server itself fails a client request.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// EncodeUpdate serializes a bus update into its wire message.
func EncodeUpdate(u statebus.Update) ([]byte, error) {
	switch {
	case u.State != nil:
		return json.Marshal(StateMessage{Type: MessageTypeState, State: *u.State})
	case u.Diagnostic != nil:
		return json.Marshal(DiagnosticMessage{Type: MessageTypeDiagnostic, Diagnostic: *u.Diagnostic})
	default:
		return nil, fmt.Errorf("empty update")
	}
}

// CreateErrorMessage creates an error message
func CreateErrorMessage(errMsg string) ([]byte, error) {
	return json.Marshal(ErrorMessage{Type: MessageTypeError, Error: errMsg})
}
