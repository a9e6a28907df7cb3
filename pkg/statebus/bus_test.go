package statebus

import "testing"

func TestBusPublishState(t *testing.T) {
	bus := NewBus()
	sub := NewSubscriber("shell-1", 8)
	bus.Subscribe(sub)

	bus.PublishState(State{Phase: "connecting", IsLoading: true, Room: "standup"})

	select {
	case u := <-sub.Channel:
		if u.State == nil {
			t.Fatal("update carried no state")
		}
		if u.State.Phase != "connecting" || !u.State.IsLoading || u.State.Room != "standup" {
			t.Errorf("got state %+v", *u.State)
		}
		if u.Diagnostic != nil {
			t.Error("state update also carried a diagnostic")
		}
	default:
		t.Fatal("no update delivered")
	}
}

func TestBusPublishDiagnostic(t *testing.T) {
	bus := NewBus()
	sub := NewSubscriber("shell-1", 8)
	bus.Subscribe(sub)

	bus.PublishDiagnostic(Diagnostic{Kind: "load_failure", Message: "timeout"})

	select {
	case u := <-sub.Channel:
		if u.Diagnostic == nil || u.Diagnostic.Kind != "load_failure" {
			t.Errorf("got update %+v, want load_failure diagnostic", u)
		}
	default:
		t.Fatal("no update delivered")
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := NewSubscriber("slow", 1)
	bus.Subscribe(sub)

	bus.PublishState(State{Phase: "idle"})
	bus.PublishState(State{Phase: "active"}) // buffer full, dropped

	stats := bus.Stats()
	if stats.TotalUpdates != 2 {
		t.Errorf("TotalUpdates = %d, want 2", stats.TotalUpdates)
	}
	if stats.DroppedUpdates != 1 {
		t.Errorf("DroppedUpdates = %d, want 1", stats.DroppedUpdates)
	}

	u := <-sub.Channel
	if u.State.Phase != "idle" {
		t.Errorf("delivered update phase = %q, want the first published", u.State.Phase)
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := NewSubscriber("gone", 8)
	bus.Subscribe(sub)

	bus.Unsubscribe("gone")

	if sub.IsConnected() {
		t.Error("subscriber still connected after unsubscribe")
	}
	if _, ok := <-sub.Channel; ok {
		t.Error("channel not closed after unsubscribe")
	}
	if got := bus.Stats().ActiveSubscribers; got != 0 {
		t.Errorf("ActiveSubscribers = %d, want 0", got)
	}

	// Publishing to a fully drained bus is harmless.
	bus.PublishState(State{Phase: "idle"})
}

func TestSubscriberCloseIsIdempotent(t *testing.T) {
	sub := NewSubscriber("twice", 1)
	sub.Close()
	sub.Close()

	if sub.Send(Update{State: &State{Phase: "idle"}}) {
		t.Error("Send succeeded on a closed subscriber")
	}
}
