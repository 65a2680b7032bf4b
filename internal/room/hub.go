package room

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petervdpas/roomcall/internal/proto"
	"github.com/petervdpas/roomcall/internal/state"
)

var ErrHubClosed = errors.New("room hub closed")

// Hub is an in-process relay. Each event is queued per subscription and
// delivered asynchronously, optionally duplicated and out of order.
type Hub struct {
	members *state.MemberTable

	mu        sync.Mutex
	subs      map[string][]*subscription // roomID -> subscriptions
	sent      map[string][]Event
	duplicate bool
	maxDelay  time.Duration
	rnd       *rand.Rand
	sendErr   func(sender, eventType string) error
	closed    bool
}

type HubOption func(*Hub)

// WithDuplicates delivers every event twice.
func WithDuplicates() HubOption {
	return func(h *Hub) { h.duplicate = true }
}

// WithShuffle delays each delivery by a random amount below maxDelay,
// so events may arrive in any order.
func WithShuffle(maxDelay time.Duration, seed int64) HubOption {
	return func(h *Hub) {
		h.maxDelay = maxDelay
		h.rnd = rand.New(rand.NewSource(seed))
	}
}

// WithSendError makes Send fail whenever fn returns non-nil.
func WithSendError(fn func(sender, eventType string) error) HubOption {
	return func(h *Hub) { h.sendErr = fn }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		members: state.NewMemberTable(),
		subs:    map[string][]*subscription{},
		sent:    map[string][]Event{},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Join records userID as a member of roomID.
func (h *Hub) Join(roomID, userID, displayName, avatarURL string) {
	h.members.Upsert(roomID, userID, displayName, avatarURL)
}

// Client returns the relay handle for userID.
func (h *Hub) Client(userID string) *Client {
	return &Client{hub: h, userID: userID}
}

// Sent returns every event accepted for roomID in send order.
func (h *Hub) Sent(roomID string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.sent[roomID]))
	copy(out, h.sent[roomID])
	return out
}

// SentOfType filters Sent by event type.
func (h *Hub) SentOfType(roomID, eventType string) []Event {
	var out []Event
	for _, evt := range h.Sent(roomID) {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// Inject delivers an event as if some user had sent it.
func (h *Hub) Inject(evt Event) {
	if evt.EventID == "" {
		evt.EventID = "$" + uuid.NewString()
	}
	if evt.OriginTS == 0 {
		evt.OriginTS = proto.NowMillis()
	}
	h.publish(evt)
}

func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	all := h.subs
	h.subs = map[string][]*subscription{}
	h.mu.Unlock()
	for _, subs := range all {
		for _, s := range subs {
			s.stop()
		}
	}
}

func (h *Hub) publish(evt Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.sent[evt.RoomID] = append(h.sent[evt.RoomID], evt)
	subs := append([]*subscription(nil), h.subs[evt.RoomID]...)
	copies := 1
	if h.duplicate {
		copies = 2
	}
	delays := make([]time.Duration, len(subs)*copies)
	if h.maxDelay > 0 {
		for i := range delays {
			delays[i] = time.Duration(h.rnd.Int63n(int64(h.maxDelay)))
		}
	}
	h.mu.Unlock()

	i := 0
	for _, s := range subs {
		for c := 0; c < copies; c++ {
			d := delays[i]
			i++
			if d == 0 {
				s.push(evt)
				continue
			}
			sub := s
			time.AfterFunc(d, func() { sub.push(evt) })
		}
	}
}

func (h *Hub) subscribe(roomID string) (<-chan Event, func()) {
	s := newSubscription()
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.stop()
		return s.out, func() {}
	}
	h.subs[roomID] = append(h.subs[roomID], s)
	h.mu.Unlock()

	var once sync.Once
	return s.out, func() {
		once.Do(func() {
			h.mu.Lock()
			list := h.subs[roomID]
			for i, x := range list {
				if x == s {
					h.subs[roomID] = append(list[:i], list[i+1:]...)
					break
				}
			}
			h.mu.Unlock()
			s.stop()
		})
	}
}

// Client is one user's view of a Hub. It implements Relay and Directory.
type Client struct {
	hub    *Hub
	userID string
}

func (c *Client) UserID() string { return c.userID }

func (c *Client) Send(ctx context.Context, roomID, eventType string, content json.RawMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.hub.mu.Lock()
	closed, sendErr := c.hub.closed, c.hub.sendErr
	c.hub.mu.Unlock()
	if closed {
		return "", ErrHubClosed
	}
	if sendErr != nil {
		if err := sendErr(c.userID, eventType); err != nil {
			return "", err
		}
	}
	evt := Event{
		EventID:  "$" + uuid.NewString(),
		RoomID:   roomID,
		Sender:   c.userID,
		Type:     eventType,
		OriginTS: proto.NowMillis(),
		Content:  content,
	}
	log.Debugf("ROOM [%s]: %s from %s", roomID, eventType, c.userID)
	c.hub.publish(evt)
	return evt.EventID, nil
}

func (c *Client) Subscribe(roomID string) (<-chan Event, func()) {
	return c.hub.subscribe(roomID)
}

func (c *Client) Member(roomID, userID string) (state.Member, bool) {
	return c.hub.members.Get(roomID, userID)
}

func (c *Client) Members(roomID string) []state.Member {
	return c.hub.members.Members(roomID)
}

// subscription is an unbounded FIFO pumped into out.
type subscription struct {
	mu    sync.Mutex
	queue []Event
	wake  chan struct{}
	done  chan struct{}
	out   chan Event
	once  sync.Once
}

func newSubscription() *subscription {
	s := &subscription{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan Event),
	}
	go s.run()
	return s
}

func (s *subscription) push(evt Event) {
	s.mu.Lock()
	s.queue = append(s.queue, evt)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		evt := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- evt:
		case <-s.done:
			return
		}
	}
}
