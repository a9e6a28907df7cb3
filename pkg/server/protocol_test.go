package server

import (
	"encoding/json"
	"testing"

	"github.com/Abdu732a/jitsi/pkg/statebus"
)

func TestEncodeUpdate(t *testing.T) {
	state := statebus.State{Phase: "active", Room: "standup", DisplayName: "Alex"}
	data, err := EncodeUpdate(statebus.Update{State: &state})
	if err != nil {
		t.Fatalf("EncodeUpdate returned error: %v", err)
	}

	var msg StateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if msg.Type != MessageTypeState {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypeState)
	}
	if msg.State.Phase != "active" || msg.State.Room != "standup" {
		t.Errorf("State = %+v", msg.State)
	}
}

func TestEncodeUpdateDiagnostic(t *testing.T) {
	diag := statebus.Diagnostic{Kind: "constructor_timeout", Message: "gave up"}
	data, err := EncodeUpdate(statebus.Update{Diagnostic: &diag})
	if err != nil {
		t.Fatalf("EncodeUpdate returned error: %v", err)
	}

	var msg DiagnosticMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if msg.Type != MessageTypeDiagnostic || msg.Diagnostic.Kind != "constructor_timeout" {
		t.Errorf("got %+v", msg)
	}
}

func TestEncodeUpdateEmpty(t *testing.T) {
	if _, err := EncodeUpdate(statebus.Update{}); err == nil {
		t.Error("EncodeUpdate(empty) returned no error")
	}
}
