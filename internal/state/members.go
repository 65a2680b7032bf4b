package state

import (
	"sort"
	"sync"
	"time"
)

// Member is one user seen in a room.
type Member struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
}

type MemberEvent struct {
	Type   string  `json:"type"` // "update" | "remove"
	RoomID string  `json:"room_id"`
	Member *Member `json:"member,omitempty"`
	UserID string  `json:"user_id,omitempty"`
}

// MemberTable tracks room membership announced on the room stream.
type MemberTable struct {
	mu        sync.Mutex
	rooms     map[string]map[string]Member // roomID -> userID -> Member
	listeners []chan MemberEvent
	now       func() time.Time
}

func NewMemberTable() *MemberTable {
	return &MemberTable{
		rooms:     map[string]map[string]Member{},
		listeners: make([]chan MemberEvent, 0),
		now:       time.Now,
	}
}

// Upsert records a join/heartbeat. Empty display fields keep the previous
// values so a bare heartbeat does not wipe a known name.
func (t *MemberTable) Upsert(roomID, userID, displayName, avatarURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[roomID]
	if !ok {
		room = map[string]Member{}
		t.rooms[roomID] = room
	}
	m := room[userID]
	m.UserID = userID
	if displayName != "" {
		m.DisplayName = displayName
	}
	if avatarURL != "" {
		m.AvatarURL = avatarURL
	}
	m.LastSeen = t.now()
	room[userID] = m
	t.notifyListeners(MemberEvent{Type: "update", RoomID: roomID, Member: &m})
}

func (t *MemberTable) Remove(roomID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := room[userID]; !ok {
		return
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(t.rooms, roomID)
	}
	t.notifyListeners(MemberEvent{Type: "remove", RoomID: roomID, UserID: userID})
}

func (t *MemberTable) Get(roomID, userID string) (Member, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.rooms[roomID][userID]
	return m, ok
}

// Members returns the room's members sorted by user id.
func (t *MemberTable) Members(roomID string) []Member {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[roomID]
	out := make([]Member, 0, len(room))
	for _, m := range room {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// PruneStale removes members whose last heartbeat is before cutoff.
func (t *MemberTable) PruneStale(cutoff time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for roomID, room := range t.rooms {
		for id, m := range room {
			if m.LastSeen.Before(cutoff) {
				delete(room, id)
				t.notifyListeners(MemberEvent{Type: "remove", RoomID: roomID, UserID: id})
			}
		}
		if len(room) == 0 {
			delete(t.rooms, roomID)
		}
	}
}

func (t *MemberTable) Subscribe() chan MemberEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan MemberEvent, 16)
	t.listeners = append(t.listeners, ch)
	return ch
}

func (t *MemberTable) Unsubscribe(ch chan MemberEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, listener := range t.listeners {
		if listener == ch {
			close(listener)
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

func (t *MemberTable) notifyListeners(evt MemberEvent) {
	for _, ch := range t.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}
