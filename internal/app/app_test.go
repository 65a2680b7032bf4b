package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/petervdpas/roomcall/internal/call"
	"github.com/petervdpas/roomcall/internal/config"
	"github.com/petervdpas/roomcall/internal/signal"
)

// loopEngine pretends the transport comes up as soon as both descriptions
// are in place.
type loopEngine struct {
	mu    sync.Mutex
	hooks call.EngineHooks
	state call.SDPState
}

func (e *loopEngine) connectSoon() {
	go func() {
		time.Sleep(10 * time.Millisecond)
		e.hooks.OnTransportState(call.TransportConnected)
	}()
}

func (e *loopEngine) CreateOffer(context.Context) (signal.SessionDescription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = call.SDPHaveLocalOffer
	return signal.SessionDescription{Type: "offer", SDP: "v=0"}, nil
}

func (e *loopEngine) AcceptOfferAndCreateAnswer(context.Context, signal.SessionDescription) (signal.SessionDescription, error) {
	e.connectSoon()
	return signal.SessionDescription{Type: "answer", SDP: "v=0"}, nil
}

func (e *loopEngine) ApplyRemoteAnswer(signal.SessionDescription) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != call.SDPHaveLocalOffer {
		return call.ErrDeferred
	}
	e.state = call.SDPStable
	e.connectSoon()
	return nil
}

func (e *loopEngine) AddRemoteCandidates([]signal.Candidate) error { return nil }

func (e *loopEngine) SignalingState() call.SDPState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *loopEngine) Stats() call.Stats { return call.Stats{PacketsReceived: 7} }
func (e *loopEngine) Close() error      { return nil }

func loopFactory(ctx context.Context, callID string, hooks call.EngineHooks) (call.Negotiator, error) {
	return &loopEngine{hooks: hooks}, nil
}

func TestDemoCallCompletes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := runDemo(ctx, DemoOptions{Talk: 50 * time.Millisecond, Wait: 5 * time.Second}, loopFactory)
	if err != nil {
		t.Fatalf("runDemo: %v", err)
	}
	if res.Caller.ID != res.CallID || res.Callee.ID != res.CallID {
		t.Fatalf("history ids = %q / %q, want %q", res.Caller.ID, res.Callee.ID, res.CallID)
	}
	if res.Caller.Direction != "outgoing" || res.Callee.Direction != "incoming" {
		t.Fatalf("directions = %s / %s", res.Caller.Direction, res.Callee.Direction)
	}
	if res.Caller.Status != "completed" || res.Callee.Status != "completed" {
		t.Fatalf("status = %s / %s", res.Caller.Status, res.Callee.Status)
	}
	if res.Callee.Metadata.PacketsReceived != 7 {
		t.Fatalf("packets = %d", res.Callee.Metadata.PacketsReceived)
	}
}

func TestDemoFailsWhenNeverConnected(t *testing.T) {
	stuck := func(ctx context.Context, callID string, hooks call.EngineHooks) (call.Negotiator, error) {
		// No transport callback ever fires.
		return &loopEngine{hooks: call.EngineHooks{
			OnLocalCandidate: hooks.OnLocalCandidate,
			OnTransportState: func(call.TransportState) {},
			OnSignalingState: hooks.OnSignalingState,
		}}, nil
	}
	_, err := runDemo(context.Background(), DemoOptions{Talk: time.Millisecond, Wait: 200 * time.Millisecond}, stuck)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNormalizeLocalViewer(t *testing.T) {
	cases := map[string]string{
		":8790":        "127.0.0.1:8790",
		"0.0.0.0:8790": "127.0.0.1:8790",
		"127.0.0.1:80": "127.0.0.1:80",
		" [::1]:9000 ": "[::1]:9000",
	}
	for in, want := range cases {
		addr, url := NormalizeLocalViewer(in)
		if addr != want || url != "http://"+want {
			t.Errorf("NormalizeLocalViewer(%q) = %q, %q", in, addr, url)
		}
	}
}

func TestCallConfigFromFile(t *testing.T) {
	c := config.Default().Call
	c.OutgoingTimeoutSec = 5
	c.CandidateBatchMs = 250
	got := callConfig(c)
	if got.OutgoingTimeout != 5*time.Second || got.CandidateBatch != 250*time.Millisecond {
		t.Fatalf("callConfig = %+v", got)
	}
	if got.SendTimeout != call.DefaultConfig().SendTimeout {
		t.Fatalf("SendTimeout = %v", got.SendTimeout)
	}

	opts := engineOptions(c)
	opts.ICEServers[0] = "stun:changed"
	if c.ICEServers[0] == "stun:changed" {
		t.Fatal("engineOptions shares the ICE server slice")
	}
}

func TestUserIDAndRestartNeeded(t *testing.T) {
	if got := userID(config.Profile{}, "12D3Koo"); got != "@12D3Koo" {
		t.Fatalf("derived user id = %q", got)
	}
	if got := userID(config.Profile{UserID: "@me"}, "12D3Koo"); got != "@me" {
		t.Fatalf("configured user id = %q", got)
	}

	a := config.Default()
	b := config.Default()
	b.Call.ICEServers = nil
	b.Profile.DisplayName = "Renamed"
	b.Log.Level = "debug"
	if restartNeeded(a, b) {
		t.Fatal("live settings reported as needing restart")
	}
	b.P2P.BootstrapPeers = []string{"/ip4/10.0.0.1/tcp/4001/p2p/QmPeer"}
	if !restartNeeded(a, b) {
		t.Fatal("bootstrap change not reported")
	}
}
