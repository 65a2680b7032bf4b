package call

import (
	"sync"
	"time"
)

// Supervisor holds at most one deadline. Re-arming replaces the previous
// timer, and a timer that was disarmed or replaced never fires.
type Supervisor struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Arm schedules onExpire after d, cancelling any armed timer. onExpire runs
// once on its own goroutine and the supervisor is disarmed by then.
func (s *Supervisor) Arm(d time.Duration, onExpire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.gen++
		s.mu.Unlock()
		onExpire()
	})
}

func (s *Supervisor) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Supervisor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
