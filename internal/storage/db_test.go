package storage

import (
	"errors"
	"testing"
)

func TestKVRoundTrip(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := db.Get("call_history"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: err = %v, want ErrNotFound", err)
	}

	if err := db.Put("call_history", []byte(`[1]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Put("call_history", []byte(`[1,2]`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	got, err := db.Get("call_history")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[1,2]` {
		t.Fatalf("Get = %q, want %q", got, `[1,2]`)
	}

	if err := db.Delete("call_history"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get("call_history"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestMetaSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.SetMeta("user_id", "@alice:example.org"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if got := db.Meta("user_id"); got != "@alice:example.org" {
		t.Fatalf("Meta = %q", got)
	}
	if got := db.Meta("missing"); got != "" {
		t.Fatalf("Meta(missing) = %q, want empty", got)
	}
}
