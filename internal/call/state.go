package call

import (
	"fmt"
	"time"
)

// ConnectionState is the call lifecycle as shown to the user.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateCalling
	StateRinging
	StateConnecting
	StateConnected
	StateFailed
	StateEnded
)

var stateNames = [...]string{"Idle", "Calling", "Ringing", "Connecting", "Connected", "Failed", "Ended"}

func (s ConnectionState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ConnectionState(%d)", int(s))
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnectionState) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = ConnectionState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", b)
}

// Ended reasons.
const (
	ReasonUserHangup = "user_hangup"
	ReasonHangup     = "hangup"
	ReasonTimeout    = "timeout"
	ReasonFailed     = "failed"
)

// CallState is a snapshot of the current call. Copies are handed out; the
// controller owns the only mutable instance.
type CallState struct {
	Active          bool            `json:"active"`
	Incoming        bool            `json:"incoming"`
	RoomID          string          `json:"room_id,omitempty"`
	PeerID          string          `json:"peer_id,omitempty"`
	PeerName        string          `json:"peer_name,omitempty"`
	PeerAvatar      string          `json:"peer_avatar,omitempty"`
	CallID          string          `json:"call_id,omitempty"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	DurationSeconds uint64          `json:"duration_seconds"`
	ConnectionState ConnectionState `json:"connection_state"`
	EndedReason     string          `json:"ended_reason,omitempty"`
}

func (s CallState) clone() CallState {
	if s.StartedAt != nil {
		t := *s.StartedAt
		s.StartedAt = &t
	}
	return s
}
