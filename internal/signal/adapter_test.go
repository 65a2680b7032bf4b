package signal

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petervdpas/roomcall/internal/proto"
	"github.com/petervdpas/roomcall/internal/room"
)

func recv(t *testing.T, ch <-chan Inbound) Inbound {
	t.Helper()
	select {
	case in := <-ch:
		return in
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signaling message")
	}
	return Inbound{}
}

func TestAdapterDropsRejectAndUnknown(t *testing.T) {
	hub := room.NewHub()
	defer hub.Close()
	bob := NewAdapter(hub.Client("@bob:x"))
	ch, stop := bob.Subscribe("!r")
	defer stop()

	alice := hub.Client("@alice:x")
	ctx := context.Background()
	_, _ = alice.Send(ctx, "!r", proto.TypeCallReject, json.RawMessage(`{"call_id":"c1","version":1}`))
	_, _ = alice.Send(ctx, "!r", "m.call.negotiate", json.RawMessage(`{"call_id":"c1"}`))
	_, _ = alice.Send(ctx, "!r", "m.room.message", json.RawMessage(`{"body":"hi"}`))
	if err := NewAdapter(alice).Send(ctx, "!r", Hangup{CallID: "c1", PartyID: "pa"}); err != nil {
		t.Fatal(err)
	}

	in := recv(t, ch)
	if _, ok := in.Message.(Hangup); !ok {
		t.Fatalf("first surfaced message = %#v, want Hangup", in.Message)
	}
	if in.Sender != "@alice:x" || in.RoomID != "!r" || in.EventID == "" {
		t.Fatalf("envelope = %+v", in)
	}
}

func TestAdapterPassesDuplicatesThrough(t *testing.T) {
	hub := room.NewHub(room.WithDuplicates())
	defer hub.Close()
	ch, stop := NewAdapter(hub.Client("@bob:x")).Subscribe("!r")
	defer stop()

	if err := NewAdapter(hub.Client("@alice:x")).Send(context.Background(), "!r", Answer{
		CallID: "c1", PartyID: "pa", Answer: SessionDescription{SDP: "v=0"},
	}); err != nil {
		t.Fatal(err)
	}
	a, b := recv(t, ch), recv(t, ch)
	if a.EventID != b.EventID {
		t.Fatalf("duplicate deliveries carry different event ids: %s %s", a.EventID, b.EventID)
	}
}

func TestAdapterRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	hub := room.NewHub(room.WithSendError(func(_, eventType string) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))
	defer hub.Close()
	a := NewAdapter(hub.Client("@alice:x"))
	a.retryDelay = time.Millisecond

	if err := a.Send(context.Background(), "!r", Invite{CallID: "c1", PartyID: "pa", Offer: SessionDescription{SDP: "v=0"}}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("attempts = %d, want 2", calls.Load())
	}
}

func TestAdapterCandidatesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	hub := room.NewHub(room.WithSendError(func(_, _ string) error {
		calls.Add(1)
		return errors.New("down")
	}))
	defer hub.Close()
	a := NewAdapter(hub.Client("@alice:x"))
	a.retryDelay = time.Millisecond

	if err := a.Send(context.Background(), "!r", Candidates{CallID: "c1", PartyID: "pa"}); err == nil {
		t.Fatal("expected failure")
	}
	if calls.Load() != 1 {
		t.Fatalf("attempts = %d, want 1", calls.Load())
	}
}
