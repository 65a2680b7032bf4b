package call

import (
	"sync"
	"time"

	"github.com/petervdpas/roomcall/internal/signal"
)

// Batcher coalesces local ICE candidates. A batch is flushed once no new
// candidate has arrived for the quiet period. Nothing is flushed while the
// batcher is held.
type Batcher struct {
	quiet time.Duration
	flush func([]signal.Candidate)

	mu      sync.Mutex
	pending []signal.Candidate
	timer   *time.Timer
	held    bool
	stopped bool
}

// NewBatcher returns a held batcher; call Release once the invite or answer
// carrying the session description has been sent.
func NewBatcher(quiet time.Duration, flush func([]signal.Candidate)) *Batcher {
	return &Batcher{quiet: quiet, flush: flush, held: true}
}

func (b *Batcher) Offer(c signal.Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.pending = append(b.pending, c)
	if !b.held {
		b.resetTimerLocked()
	}
}

// Release lets buffered candidates flow after the quiet period.
func (b *Batcher) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || !b.held {
		return
	}
	b.held = false
	if len(b.pending) > 0 {
		b.resetTimerLocked()
	}
}

// Close flushes whatever is buffered and stops the batcher.
func (b *Batcher) Close() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	batch := b.stopLocked()
	b.mu.Unlock()
	if len(batch) > 0 {
		b.flush(batch)
	}
}

// Stop discards whatever is buffered.
func (b *Batcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stopped {
		b.stopLocked()
	}
}

func (b *Batcher) stopLocked() []signal.Candidate {
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.pending
	b.pending = nil
	return batch
}

func (b *Batcher) resetTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(b.quiet, func() {
		b.mu.Lock()
		if b.timer != t || b.stopped {
			b.mu.Unlock()
			return
		}
		b.timer = nil
		batch := b.pending
		b.pending = nil
		b.mu.Unlock()
		if len(batch) > 0 {
			b.flush(batch)
		}
	})
	b.timer = t
}
