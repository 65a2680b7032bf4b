package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petervdpas/roomcall/internal/p2p"
	"github.com/petervdpas/roomcall/internal/proto"
	"github.com/petervdpas/roomcall/internal/state"
	"github.com/petervdpas/roomcall/internal/util"
)

// PubSub relays room events over one gossipsub topic per room and keeps
// membership from m.room.member heartbeats.
type PubSub struct {
	node    *p2p.Node
	userID  string
	members *state.MemberTable

	mu          sync.RWMutex
	displayName string
	avatarURL   string
}

func NewPubSub(node *p2p.Node, userID, displayName, avatarURL string, members *state.MemberTable) *PubSub {
	if members == nil {
		members = state.NewMemberTable()
	}
	return &PubSub{
		node:        node,
		userID:      userID,
		members:     members,
		displayName: displayName,
		avatarURL:   avatarURL,
	}
}

func (p *PubSub) UserID() string { return p.userID }

// SetProfile changes the name and avatar announced by later heartbeats.
func (p *PubSub) SetProfile(displayName, avatarURL string) {
	p.mu.Lock()
	p.displayName, p.avatarURL = displayName, avatarURL
	p.mu.Unlock()
}

func (p *PubSub) Send(ctx context.Context, roomID, eventType string, content json.RawMessage) (string, error) {
	topic, err := p.node.Topic(proto.RoomTopic(roomID))
	if err != nil {
		return "", err
	}
	evt := Event{
		EventID:  "$" + uuid.NewString(),
		RoomID:   roomID,
		Sender:   p.userID,
		Type:     eventType,
		OriginTS: proto.NowMillis(),
		Content:  content,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}
	if err := topic.Publish(ctx, data); err != nil {
		return "", fmt.Errorf("publish %s: %w", eventType, err)
	}
	return evt.EventID, nil
}

// Subscribe reads the room topic until the returned cancel func is called.
// Member events also update the membership table before being forwarded.
func (p *PubSub) Subscribe(roomID string) (<-chan Event, func()) {
	out := make(chan Event, 64)
	topic, err := p.node.Topic(proto.RoomTopic(roomID))
	if err != nil {
		log.Errorf("ROOM [%s]: %v", roomID, err)
		close(out)
		return out, func() {}
	}
	sub, err := topic.Subscribe()
	if err != nil {
		log.Errorf("ROOM [%s]: subscribe: %v", roomID, err)
		close(out)
		return out, func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(out)
		defer sub.Cancel()
		for {
			msg, err := sub.Next(ctx)
			if err != nil {
				return
			}
			var evt Event
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				log.Debugf("ROOM [%s]: bad envelope from %s: %v", roomID, msg.ReceivedFrom, err)
				continue
			}
			if evt.RoomID != roomID || evt.Sender == "" || evt.Type == "" {
				continue
			}
			if evt.Type == proto.TypeMember {
				p.applyMember(evt)
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel
}

func (p *PubSub) applyMember(evt Event) {
	var mc proto.MemberContent
	if err := json.Unmarshal(evt.Content, &mc); err != nil {
		return
	}
	switch mc.Membership {
	case proto.MembershipJoin:
		p.members.Upsert(evt.RoomID, evt.Sender, mc.DisplayName, mc.AvatarURL)
	case proto.MembershipLeave:
		p.members.Remove(evt.RoomID, evt.Sender)
	}
}

func (p *PubSub) Member(roomID, userID string) (state.Member, bool) {
	return p.members.Get(roomID, userID)
}

func (p *PubSub) Members(roomID string) []state.Member {
	return p.members.Members(roomID)
}

// Announce publishes an m.room.member event for the local user.
func (p *PubSub) Announce(ctx context.Context, roomID, membership string) error {
	p.mu.RLock()
	mc := proto.MemberContent{Membership: membership, DisplayName: p.displayName, AvatarURL: p.avatarURL}
	p.mu.RUnlock()
	content, err := json.Marshal(mc)
	if err != nil {
		return err
	}
	_, err = p.Send(ctx, roomID, proto.TypeMember, content)
	return err
}

// RunHeartbeat announces membership in every room each interval and prunes
// members not heard from within ttl. A leave is sent when ctx ends.
func (p *PubSub) RunHeartbeat(ctx context.Context, roomIDs []string, interval, ttl time.Duration) {
	announce := func() {
		for _, roomID := range roomIDs {
			if err := p.Announce(ctx, roomID, proto.MembershipJoin); err != nil {
				log.Debugf("ROOM [%s]: heartbeat: %v", roomID, err)
			}
		}
	}
	announce()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			lctx, cancel := context.WithTimeout(context.Background(), util.ShortTimeout)
			for _, roomID := range roomIDs {
				_ = p.Announce(lctx, roomID, proto.MembershipLeave)
			}
			cancel()
			return
		case <-t.C:
			announce()
			p.members.PruneStale(time.Now().Add(-ttl))
		}
	}
}
