package util

import "testing"

func TestRingBufferEvictsOldestFirst(t *testing.T) {
	r := NewRingBuffer[int](3)
	for i := 1; i <= 3; i++ {
		if r.Push(i) {
			t.Fatalf("push %d: unexpected eviction", i)
		}
	}
	if !r.Push(4) {
		t.Fatal("expected eviction when full")
	}

	got := r.Snapshot()
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("snapshot len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRingBufferNewest(t *testing.T) {
	r := NewRingBuffer[string](4)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Push(s)
	}

	got := r.Newest(2)
	if len(got) != 2 || got[0] != "e" || got[1] != "d" {
		t.Fatalf("Newest(2) = %v, want [e d]", got)
	}
	if all := r.Newest(0); len(all) != 4 || all[3] != "b" {
		t.Fatalf("Newest(0) = %v, want [e d c b]", all)
	}
	if r.Len() != 4 || r.Cap() != 4 {
		t.Fatalf("len/cap = %d/%d, want 4/4", r.Len(), r.Cap())
	}
}
