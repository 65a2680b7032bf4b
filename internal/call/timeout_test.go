package call

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSupervisorFiresOnce(t *testing.T) {
	var s Supervisor
	var fired atomic.Int32
	done := make(chan struct{})
	s.Arm(10*time.Millisecond, func() {
		fired.Add(1)
		close(done)
	})
	if !s.Active() {
		t.Fatal("expected armed supervisor")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if s.Active() {
		t.Fatal("supervisor still armed after expiry")
	}
	time.Sleep(20 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Fatalf("fired %d times", n)
	}
}

func TestSupervisorDisarmAndReplace(t *testing.T) {
	var s Supervisor
	var first, second atomic.Int32

	s.Arm(15*time.Millisecond, func() { first.Add(1) })
	s.Disarm()
	if s.Active() {
		t.Fatal("disarmed supervisor reports active")
	}

	s.Arm(15*time.Millisecond, func() { first.Add(1) })
	s.Arm(30*time.Millisecond, func() { second.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if first.Load() != 0 {
		t.Fatal("disarmed or replaced timer fired")
	}
	if second.Load() != 1 {
		t.Fatalf("replacement fired %d times, want 1", second.Load())
	}
}
