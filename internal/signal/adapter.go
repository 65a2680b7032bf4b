package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petervdpas/roomcall/internal/room"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("signal")

// Inbound is a decoded signaling message with its room envelope.
type Inbound struct {
	RoomID   string
	Sender   string
	EventID  string
	OriginTS int64
	Message  Message
}

// Adapter sends and receives signaling messages over a room relay.
type Adapter struct {
	relay      room.Relay
	retryDelay time.Duration
}

func NewAdapter(relay room.Relay) *Adapter {
	return &Adapter{relay: relay, retryDelay: 250 * time.Millisecond}
}

// UserID is the local user the relay sends as.
func (a *Adapter) UserID() string { return a.relay.UserID() }

// Send encodes m and sends it to roomID. Invite, Answer and Hangup are
// retried once after a short pause.
func (a *Adapter) Send(ctx context.Context, roomID string, m Message) error {
	eventType, body, err := Encode(m)
	if err != nil {
		return err
	}

	attempts := 1
	switch m.(type) {
	case Invite, Answer, Hangup:
		attempts = 2
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			log.Warnf("SIGNAL [%s]: %s send failed, retrying: %v", roomID, eventType, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.retryDelay):
			}
		}
		if _, lastErr = a.relay.Send(ctx, roomID, eventType, body); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			break
		}
	}
	return fmt.Errorf("send %s: %w", eventType, lastErr)
}

// Subscribe delivers the room's signaling messages until cancel is called.
// Reject, unknown kinds and malformed content are dropped here. Duplicates
// are passed through.
func (a *Adapter) Subscribe(roomID string) (<-chan Inbound, func()) {
	events, cancel := a.relay.Subscribe(roomID)
	out := make(chan Inbound, 32)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			var evt room.Event
			var ok bool
			select {
			case <-done:
				return
			case evt, ok = <-events:
				if !ok {
					return
				}
			}
			if !IsCallEvent(evt.Type) {
				continue
			}
			msg, err := Decode(evt.Type, evt.Content)
			if err != nil {
				log.Warnf("SIGNAL [%s]: dropping %s from %s: %v", roomID, evt.EventID, evt.Sender, err)
				continue
			}
			switch msg.(type) {
			case Reject:
				log.Debugf("SIGNAL [%s]: ignoring reject from %s", roomID, evt.Sender)
				continue
			case Unknown:
				log.Debugf("SIGNAL [%s]: ignoring unknown %s from %s", roomID, evt.Type, evt.Sender)
				continue
			}
			in := Inbound{
				RoomID:   evt.RoomID,
				Sender:   evt.Sender,
				EventID:  evt.EventID,
				OriginTS: evt.OriginTS,
				Message:  msg,
			}
			select {
			case out <- in:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			cancel()
		})
	}
}
