package proto

import "time"

const (
	// RoomTopicPrefix is prepended to a room id to form its gossipsub topic.
	RoomTopicPrefix = "roomcall/room/"

	MdnsTag = "roomcall-mdns"
)

// Room event types.
const (
	TypeMember = "m.room.member"

	TypeCallInvite     = "m.call.invite"
	TypeCallAnswer     = "m.call.answer"
	TypeCallCandidates = "m.call.candidates"
	TypeCallHangup     = "m.call.hangup"
	TypeCallReject     = "m.call.reject"
)

// Membership values carried by m.room.member content.
const (
	MembershipJoin  = "join"
	MembershipLeave = "leave"
)

// MemberContent is the content of an m.room.member heartbeat.
type MemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// RoomTopic returns the gossipsub topic for roomID.
func RoomTopic(roomID string) string { return RoomTopicPrefix + roomID }

func NowMillis() int64 { return time.Now().UnixMilli() }
