package room

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubDeliversToEveryMemberIncludingSender(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	alice, bob := hub.Client("@alice:x"), hub.Client("@bob:x")

	aliceCh, stopA := alice.Subscribe("!r")
	defer stopA()
	bobCh, stopB := bob.Subscribe("!r")
	defer stopB()

	id, err := alice.Send(context.Background(), "!r", "m.test", json.RawMessage(`{"n":1}`))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	for _, ch := range []<-chan Event{aliceCh, bobCh} {
		evt := recvEvent(t, ch)
		if evt.EventID != id || evt.Sender != "@alice:x" || evt.RoomID != "!r" {
			t.Fatalf("event = %+v", evt)
		}
		if evt.OriginTS == 0 {
			t.Fatal("origin_server_ts not set")
		}
	}
}

func TestHubScopesEventsToRoom(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	c := hub.Client("@bob:x")
	other, stop := c.Subscribe("!other")
	defer stop()

	if _, err := hub.Client("@alice:x").Send(context.Background(), "!r", "m.test", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case evt := <-other:
		t.Fatalf("unexpected delivery: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDuplicates(t *testing.T) {
	hub := NewHub(WithDuplicates())
	defer hub.Close()
	ch, stop := hub.Client("@bob:x").Subscribe("!r")
	defer stop()

	id, _ := hub.Client("@alice:x").Send(context.Background(), "!r", "m.test", json.RawMessage(`{}`))
	if a, b := recvEvent(t, ch), recvEvent(t, ch); a.EventID != id || b.EventID != id {
		t.Fatalf("expected the same event twice, got %s and %s", a.EventID, b.EventID)
	}
}

func TestHubSendError(t *testing.T) {
	boom := errors.New("boom")
	hub := NewHub(WithSendError(func(sender, eventType string) error {
		if eventType == "m.fail" {
			return boom
		}
		return nil
	}))
	defer hub.Close()

	if _, err := hub.Client("@a:x").Send(context.Background(), "!r", "m.fail", nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(hub.Sent("!r")) != 0 {
		t.Fatal("failed send was recorded")
	}
}

func TestHubMembership(t *testing.T) {
	hub := NewHub()
	hub.Join("!r", "@bob:x", "Bob", "")
	c := hub.Client("@alice:x")
	m, ok := c.Member("!r", "@bob:x")
	if !ok || m.DisplayName != "Bob" {
		t.Fatalf("member = %+v ok=%v", m, ok)
	}
	if got := c.Members("!r"); len(got) != 1 {
		t.Fatalf("members = %+v", got)
	}
}
