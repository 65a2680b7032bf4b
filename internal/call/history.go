package call

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/petervdpas/roomcall/internal/storage"
	"github.com/petervdpas/roomcall/internal/util"
)

// HistoryKey is the key-value entry holding the persisted call list.
const HistoryKey = "call_history"

const DefaultHistoryLimit = 100

// KV is the slice of the key-value store the recorder needs.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

type Participant struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type HistoryMetadata struct {
	ConnectionState string `json:"connectionState"`
	EndReason       string `json:"endReason"`
	PacketsReceived uint64 `json:"packetsReceived"`
	BytesReceived   uint64 `json:"bytesReceived"`
}

// HistoryRecord is the terminal summary of one call.
type HistoryRecord struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	RoomID       string          `json:"roomId"`
	Participants []Participant   `json:"participants"`
	Timestamp    int64           `json:"timestamp"`
	EndTimestamp int64           `json:"endTimestamp"`
	Duration     uint64          `json:"duration"`
	Direction    string          `json:"direction"`
	Status       string          `json:"status"`
	Metadata     HistoryMetadata `json:"metadata"`
}

// Recorder keeps the newest records in memory and mirrors them to a KV.
type Recorder struct {
	mu  sync.Mutex
	kv  KV
	buf *util.RingBuffer[HistoryRecord]
}

// NewRecorder loads any persisted history from kv (which may be nil).
func NewRecorder(kv KV, limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	r := &Recorder{kv: kv, buf: util.NewRingBuffer[HistoryRecord](limit)}
	if kv == nil {
		return r
	}
	data, err := kv.Get(HistoryKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		log.Warnf("CALL: load history: %v", err)
	default:
		var saved []HistoryRecord
		if err := json.Unmarshal(data, &saved); err != nil {
			log.Warnf("CALL: corrupt history, starting empty: %v", err)
			break
		}
		for _, rec := range saved {
			r.buf.Push(rec)
		}
	}
	return r
}

// Record appends rec, evicting the oldest entry past the limit. A failed
// write is logged; the in-memory list still holds the record.
func (r *Recorder) Record(rec HistoryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Push(rec)
	if r.kv == nil {
		return
	}
	data, err := json.Marshal(r.buf.Snapshot())
	if err != nil {
		log.Warnf("CALL [%s]: encode history: %v", rec.ID, err)
		return
	}
	if err := r.kv.Put(HistoryKey, data); err != nil {
		log.Warnf("CALL [%s]: persist history: %v", rec.ID, err)
	}
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (r *Recorder) List(limit int) []HistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Newest(limit)
}

func historyStatus(connected bool, reason string) string {
	switch {
	case connected:
		return "completed"
	case reason == ReasonFailed:
		return "failed"
	default:
		return "missed"
	}
}
