package viewer

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/roomcall/internal/util"
)

// LogEntry is one captured log line. Level and Logger are filled when the
// line is in go-log's plaintext layout (time, level, logger, caller, message
// separated by tabs).
type LogEntry struct {
	TS     time.Time `json:"ts"`
	Level  string    `json:"level,omitempty"`
	Logger string    `json:"logger,omitempty"`
	Msg    string    `json:"msg"`
}

// LogBuffer keeps the most recent log lines and fans new ones out to
// subscribers.
type LogBuffer struct {
	mu      sync.Mutex
	entries *util.RingBuffer[LogEntry]
	subs    map[chan LogEntry]struct{}
	partial bytes.Buffer
	now     func() time.Time
}

func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = 500
	}
	return &LogBuffer{
		entries: util.NewRingBuffer[LogEntry](max),
		subs:    make(map[chan LogEntry]struct{}),
		now:     time.Now,
	}
}

// Capture tees all go-log output into the buffer until stop is called.
func (b *LogBuffer) Capture() (stop func()) {
	pr := logging.NewPipeReader(logging.PipeFormat(logging.PlaintextOutput))
	go func() { _, _ = io.Copy(b, pr) }()
	return func() { _ = pr.Close() }
}

// Write implements io.Writer. Partial lines are held until their newline.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.partial.Write(p)
	for {
		data := b.partial.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i == -1 {
			break
		}
		line := strings.TrimRight(string(data[:i]), "\r")
		b.partial.Next(i + 1)
		if strings.TrimSpace(line) == "" {
			continue
		}

		e := b.parse(line)
		b.entries.Push(e)
		for ch := range b.subs {
			select {
			case ch <- e:
			default:
			}
		}
	}
	return len(p), nil
}

func (b *LogBuffer) parse(line string) LogEntry {
	e := LogEntry{TS: b.now(), Msg: line}
	f := strings.SplitN(line, "\t", 5)
	if len(f) < 4 {
		return e
	}
	ts, err := time.Parse(time.RFC3339Nano, f[0])
	if err != nil {
		return e
	}
	e.TS, e.Level, e.Logger = ts, f[1], f[2]
	// The caller column is omitted when go-log is built without it.
	if len(f) == 5 {
		e.Msg = f[4]
	} else {
		e.Msg = f[3]
	}
	return e
}

// Snapshot returns buffered entries, oldest first. limit > 0 keeps only the
// newest limit entries.
func (b *LogBuffer) Snapshot(limit int) []LogEntry {
	all := b.entries.Snapshot()
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}

func (b *LogBuffer) Subscribe() (ch chan LogEntry, cancel func()) {
	ch = make(chan LogEntry, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel = func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// GET /api/logs?limit=N[&level=WARN]
func (b *LogBuffer) ServeLogsJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries := b.Snapshot(0)
	if lvl := strings.ToUpper(q.Get("level")); lvl != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.Level == lvl {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if entries == nil {
		entries = []LogEntry{}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(entries)
}

// GET /api/logs/stream (Server-Sent Events), tail only.
func (b *LogBuffer) ServeLogsSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := b.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(e)
			_, _ = w.Write([]byte("event: log\ndata: " + string(data) + "\n\n"))
			flusher.Flush()
		}
	}
}
