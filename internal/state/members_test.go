package state

import (
	"testing"
	"time"
)

func TestMemberTableUpsertKeepsKnownName(t *testing.T) {
	tbl := NewMemberTable()
	tbl.Upsert("!room1", "@bob:x", "Bob", "mxc://bob")
	tbl.Upsert("!room1", "@bob:x", "", "")

	m, ok := tbl.Get("!room1", "@bob:x")
	if !ok {
		t.Fatal("member missing")
	}
	if m.DisplayName != "Bob" || m.AvatarURL != "mxc://bob" {
		t.Fatalf("member = %+v, want name/avatar retained", m)
	}
	if _, ok := tbl.Get("!room2", "@bob:x"); ok {
		t.Fatal("membership leaked across rooms")
	}
}

func TestMemberTablePruneStale(t *testing.T) {
	tbl := NewMemberTable()
	base := time.Unix(1000, 0)
	tbl.now = func() time.Time { return base }
	tbl.Upsert("!room1", "@old:x", "Old", "")
	tbl.now = func() time.Time { return base.Add(time.Minute) }
	tbl.Upsert("!room1", "@new:x", "New", "")

	ch := tbl.Subscribe()
	defer tbl.Unsubscribe(ch)

	tbl.PruneStale(base.Add(30 * time.Second))

	members := tbl.Members("!room1")
	if len(members) != 1 || members[0].UserID != "@new:x" {
		t.Fatalf("members = %+v, want only @new:x", members)
	}
	select {
	case evt := <-ch:
		if evt.Type != "remove" || evt.UserID != "@old:x" {
			t.Fatalf("event = %+v", evt)
		}
	default:
		t.Fatal("expected remove event")
	}
}
