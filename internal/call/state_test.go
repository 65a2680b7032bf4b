package call

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCallStateJSON(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := CallState{Active: true, CallID: "c1", StartedAt: &started, ConnectionState: StateConnecting}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	_ = json.Unmarshal(b, &raw)
	if raw["connection_state"] != "Connecting" {
		t.Fatalf("connection_state = %v", raw["connection_state"])
	}

	var out CallState
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.ConnectionState != StateConnecting || !out.StartedAt.Equal(started) {
		t.Fatalf("round trip = %+v", out)
	}

	if err := json.Unmarshal([]byte(`{"connection_state":"Dialing"}`), &out); err == nil {
		t.Fatal("unknown state accepted")
	}
}

func TestCloneDetachesStartedAt(t *testing.T) {
	started := time.Now()
	s := CallState{StartedAt: &started}
	c := s.clone()
	*s.StartedAt = started.Add(time.Hour)
	if !c.StartedAt.Equal(started) {
		t.Fatal("clone shares StartedAt")
	}
}
