// Package room provides the room event stream the call layer signals over:
// an in-process Hub and a gossipsub relay over a libp2p node.
package room

import (
	"context"
	"encoding/json"

	"github.com/petervdpas/roomcall/internal/state"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("room")

// Event is the envelope every room message travels in.
type Event struct {
	EventID  string          `json:"event_id"`
	RoomID   string          `json:"room_id"`
	Sender   string          `json:"sender"`
	Type     string          `json:"type"`
	OriginTS int64           `json:"origin_server_ts"`
	Content  json.RawMessage `json:"content"`
}

// Relay sends and receives room events for one local user. Delivery is
// at-least-once and unordered; the sender receives its own events.
type Relay interface {
	UserID() string
	Send(ctx context.Context, roomID, eventType string, content json.RawMessage) (string, error)
	Subscribe(roomID string) (<-chan Event, func())
}

// Directory answers room membership lookups.
type Directory interface {
	Member(roomID, userID string) (state.Member, bool)
	Members(roomID string) []state.Member
}
