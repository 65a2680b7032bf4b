package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petervdpas/roomcall/internal/call"
	"github.com/petervdpas/roomcall/internal/room"
	"github.com/petervdpas/roomcall/internal/signal"
)

const demoRoom = "!demo"

type DemoOptions struct {
	// Talk is how long the call stays up once connected.
	Talk time.Duration
	// Wait bounds the time from invite to connected.
	Wait time.Duration
}

// DemoResult is what each side recorded for the call.
type DemoResult struct {
	CallID string
	Caller call.HistoryRecord
	Callee call.HistoryRecord
}

// RunDemo places one call between two in-process users over a room.Hub,
// using pion engines on loopback, and hangs up after opt.Talk.
func RunDemo(ctx context.Context, opt DemoOptions) (DemoResult, error) {
	engines := call.NewPionFactory(func() call.EngineOptions {
		return call.EngineOptions{}
	})
	return runDemo(ctx, opt, engines)
}

func runDemo(ctx context.Context, opt DemoOptions, engines call.EngineFactory) (DemoResult, error) {
	if opt.Talk <= 0 {
		opt.Talk = 3 * time.Second
	}
	if opt.Wait <= 0 {
		opt.Wait = 15 * time.Second
	}

	hub := room.NewHub()
	defer hub.Close()
	hub.Join(demoRoom, "@alice", "Alice", "")
	hub.Join(demoRoom, "@bob", "Bob", "")

	newPeer := func(userID string) *call.Controller {
		c := hub.Client(userID)
		ctrl := call.New(call.DefaultConfig(), signal.NewAdapter(c), c, engines, nil)
		ctrl.Watch(demoRoom)
		return ctrl
	}
	alice := newPeer("@alice")
	defer alice.Close()
	bob := newPeer("@bob")
	defer bob.Close()

	// Bob answers whatever rings.
	bobStates, cancelBob := bob.Subscribe()
	defer cancelBob()
	go func() {
		for s := range bobStates {
			log.Infof("DEMO [bob]: %s", s.ConnectionState)
			if s.ConnectionState == call.StateRinging {
				if err := bob.AnswerCall(ctx); err != nil {
					log.Warnf("DEMO [bob]: answer: %v", err)
				}
			}
		}
	}()

	aliceStates, cancelAlice := alice.Subscribe()
	defer cancelAlice()

	callID, err := alice.StartCall(ctx, demoRoom, "@bob")
	if err != nil {
		return DemoResult{}, fmt.Errorf("start call: %w", err)
	}
	log.Infof("DEMO [alice]: calling @bob (%s)", callID)

	wait := time.NewTimer(opt.Wait)
	defer wait.Stop()
connecting:
	for {
		select {
		case <-ctx.Done():
			_ = alice.EndCall(context.Background(), "")
			return DemoResult{CallID: callID}, ctx.Err()
		case <-wait.C:
			_ = alice.EndCall(context.Background(), "")
			return DemoResult{CallID: callID}, errors.New("call did not connect in time")
		case s := <-aliceStates:
			log.Infof("DEMO [alice]: %s", s.ConnectionState)
			switch s.ConnectionState {
			case call.StateConnected:
				break connecting
			case call.StateEnded, call.StateFailed:
				return DemoResult{CallID: callID}, fmt.Errorf("call ended: %s", s.EndedReason)
			}
		}
	}

	select {
	case <-time.After(opt.Talk):
	case <-ctx.Done():
	}
	if err := alice.EndCall(context.Background(), ""); err != nil {
		return DemoResult{CallID: callID}, err
	}

	res := DemoResult{CallID: callID}
	deadline := time.Now().Add(opt.Wait)
	for time.Now().Before(deadline) {
		a, b := alice.History(1), bob.History(1)
		if len(a) == 1 && len(b) == 1 && b[0].ID == callID {
			res.Caller, res.Callee = a[0], b[0]
			log.Infof("DEMO: %s %s %ds, bob received %d packets",
				res.Caller.Direction, res.Caller.Status, res.Caller.Duration, res.Callee.Metadata.PacketsReceived)
			return res, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return res, errors.New("history not recorded")
}
