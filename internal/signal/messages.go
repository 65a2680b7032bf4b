// Package signal encodes call signaling messages as room events and
// exposes them to the call layer as a closed set of typed variants.
package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/petervdpas/roomcall/internal/proto"
)

// Version is the signaling protocol version written on every message.
const Version = 1

var ErrMalformed = errors.New("malformed signaling message")

// Message is one of Invite, Answer, Candidates, Hangup, Reject or Unknown.
type Message interface {
	EventType() string
	isMessage()
}

// SessionDescription is an SDP blob with its role ("offer" or "answer").
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Candidate is one ICE candidate. An empty Candidate string marks the end
// of gathering.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
	SDPMid        *string `json:"sdpMid,omitempty"`
}

type Invite struct {
	CallID   string
	PartyID  string
	Offer    SessionDescription
	Lifetime int64 // ms
	Invitee  string
}

type Answer struct {
	CallID  string
	PartyID string
	Answer  SessionDescription
}

type Candidates struct {
	CallID     string
	PartyID    string
	Candidates []Candidate
}

type Hangup struct {
	CallID  string
	PartyID string
	Reason  string
}

// Reject is decoded so it can be recognised, then dropped by the adapter.
type Reject struct {
	CallID  string
	PartyID string
	Reason  string
}

// Unknown is any other m.call.* event.
type Unknown struct {
	Type    string
	Content json.RawMessage
}

func (Invite) EventType() string     { return proto.TypeCallInvite }
func (Answer) EventType() string     { return proto.TypeCallAnswer }
func (Candidates) EventType() string { return proto.TypeCallCandidates }
func (Hangup) EventType() string     { return proto.TypeCallHangup }
func (Reject) EventType() string     { return proto.TypeCallReject }
func (u Unknown) EventType() string  { return u.Type }

func (Invite) isMessage()     {}
func (Answer) isMessage()     {}
func (Candidates) isMessage() {}
func (Hangup) isMessage()     {}
func (Reject) isMessage()     {}
func (Unknown) isMessage()    {}

// IsCallEvent reports whether eventType belongs to the m.call namespace.
func IsCallEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "m.call.")
}

// content is the union of all m.call.* fields on the wire.
type content struct {
	CallID     string              `json:"call_id"`
	PartyID    string              `json:"party_id,omitempty"`
	Version    flexVersion         `json:"version"`
	Lifetime   int64               `json:"lifetime,omitempty"`
	Offer      *SessionDescription `json:"offer,omitempty"`
	Answer     *SessionDescription `json:"answer,omitempty"`
	Candidates []Candidate         `json:"candidates,omitempty"`
	Invitee    string              `json:"invitee,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// flexVersion accepts the version as a number or a numeric string.
type flexVersion int

func (v flexVersion) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(v))), nil
}

func (v *flexVersion) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("version %s: %w", b, ErrMalformed)
	}
	*v = flexVersion(n)
	return nil
}

// Decode turns an m.call.* event into its variant. Kinds outside the
// known set decode to Unknown; known kinds with missing fields fail.
func Decode(eventType string, raw json.RawMessage) (Message, error) {
	switch eventType {
	case proto.TypeCallInvite, proto.TypeCallAnswer, proto.TypeCallCandidates,
		proto.TypeCallHangup, proto.TypeCallReject:
	default:
		return Unknown{Type: eventType, Content: raw}, nil
	}

	var c content
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", eventType, ErrMalformed, err)
	}
	if c.CallID == "" {
		return nil, fmt.Errorf("%s: %w: missing call_id", eventType, ErrMalformed)
	}

	switch eventType {
	case proto.TypeCallInvite:
		if c.Offer == nil || c.Offer.SDP == "" {
			return nil, fmt.Errorf("%s: %w: missing offer", eventType, ErrMalformed)
		}
		return Invite{CallID: c.CallID, PartyID: c.PartyID, Offer: *c.Offer, Lifetime: c.Lifetime, Invitee: c.Invitee}, nil
	case proto.TypeCallAnswer:
		if c.Answer == nil || c.Answer.SDP == "" {
			return nil, fmt.Errorf("%s: %w: missing answer", eventType, ErrMalformed)
		}
		return Answer{CallID: c.CallID, PartyID: c.PartyID, Answer: *c.Answer}, nil
	case proto.TypeCallCandidates:
		return Candidates{CallID: c.CallID, PartyID: c.PartyID, Candidates: c.Candidates}, nil
	case proto.TypeCallHangup:
		return Hangup{CallID: c.CallID, PartyID: c.PartyID, Reason: c.Reason}, nil
	default:
		return Reject{CallID: c.CallID, PartyID: c.PartyID, Reason: c.Reason}, nil
	}
}

// Encode returns the event type and content for m.
func Encode(m Message) (string, json.RawMessage, error) {
	c := content{Version: Version}
	switch v := m.(type) {
	case Invite:
		offer := v.Offer
		if offer.Type == "" {
			offer.Type = "offer"
		}
		c.CallID, c.PartyID, c.Offer, c.Lifetime, c.Invitee = v.CallID, v.PartyID, &offer, v.Lifetime, v.Invitee
	case Answer:
		answer := v.Answer
		if answer.Type == "" {
			answer.Type = "answer"
		}
		c.CallID, c.PartyID, c.Answer = v.CallID, v.PartyID, &answer
	case Candidates:
		c.CallID, c.PartyID, c.Candidates = v.CallID, v.PartyID, v.Candidates
	case Hangup:
		c.CallID, c.PartyID, c.Reason = v.CallID, v.PartyID, v.Reason
	case Reject:
		c.CallID, c.PartyID, c.Reason = v.CallID, v.PartyID, v.Reason
	case Unknown:
		return v.Type, v.Content, nil
	default:
		return "", nil, fmt.Errorf("encode %T: %w", m, ErrMalformed)
	}
	if c.CallID == "" {
		return "", nil, fmt.Errorf("%s: %w: missing call_id", m.EventType(), ErrMalformed)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", nil, err
	}
	return m.EventType(), b, nil
}
