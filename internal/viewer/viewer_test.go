package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petervdpas/roomcall/internal/call"
)

type fakeCalls struct {
	mu       sync.Mutex
	state    call.CallState
	startErr error
	ended    []string
	history  []call.HistoryRecord
	subs     []chan call.CallState
}

func (f *fakeCalls) StartCall(ctx context.Context, roomID, peerID string) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.set(call.CallState{Active: true, RoomID: roomID, PeerID: peerID, CallID: "c1", ConnectionState: call.StateCalling})
	return "c1", nil
}

func (f *fakeCalls) AnswerCall(ctx context.Context) error {
	f.mu.Lock()
	ringing := f.state.ConnectionState == call.StateRinging
	f.mu.Unlock()
	if !ringing {
		return call.ErrNoIncomingCall
	}
	return nil
}

func (f *fakeCalls) EndCall(ctx context.Context, reason string) error {
	f.mu.Lock()
	f.ended = append(f.ended, reason)
	f.mu.Unlock()
	return nil
}

func (f *fakeCalls) State() call.CallState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeCalls) Subscribe() (<-chan call.CallState, func()) {
	ch := make(chan call.CallState, 8)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch, func() {}
}

func (f *fakeCalls) History(limit int) []call.HistoryRecord {
	if limit > 0 && limit < len(f.history) {
		return f.history[:limit]
	}
	return f.history
}

func (f *fakeCalls) set(s call.CallState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	for _, ch := range f.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (f *fakeCalls) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func newServer(t *testing.T, calls *fakeCalls, logs *LogBuffer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(Handler(Viewer{
		Calls: calls,
		Logs:  logs,
		Self:  func() map[string]any { return map[string]any{"user_id": "@alice"} },
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestStartCall(t *testing.T) {
	calls := &fakeCalls{}
	srv := newServer(t, calls, nil)

	resp, out := post(t, srv.URL+"/api/call/start", `{"room_id":"!r","peer_id":"@bob"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out["call_id"] != "c1" || out["status"] != "started" {
		t.Fatalf("body = %v", out)
	}
	if got := calls.State(); got.PeerID != "@bob" || got.RoomID != "!r" {
		t.Fatalf("state = %+v", got)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("Cache-Control = %q", cc)
	}
}

func TestStartCallValidation(t *testing.T) {
	srv := newServer(t, &fakeCalls{}, nil)

	resp, _ := post(t, srv.URL+"/api/call/start", `{"peer_id":"@bob"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing room: status = %d", resp.StatusCode)
	}
	resp, _ = post(t, srv.URL+"/api/call/start", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d", resp.StatusCode)
	}
	r, err := http.Get(srv.URL + "/api/call/start")
	if err != nil {
		t.Fatal(err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status = %d", r.StatusCode)
	}
}

func TestCallErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{call.ErrCallActive, http.StatusConflict},
		{call.ErrNoPeer, http.StatusNotFound},
		{fmt.Errorf("%w: no device", call.ErrMediaAccessDenied), http.StatusForbidden},
		{fmt.Errorf("%w: relay down", call.ErrSignalingSendFailed), http.StatusBadGateway},
		{call.ErrClosed, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			srv := newServer(t, &fakeCalls{startErr: tc.err}, nil)
			resp, out := post(t, srv.URL+"/api/call/start", `{"room_id":"!r"}`)
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
			if !strings.Contains(out["error"], tc.err.Error()) {
				t.Fatalf("error = %q", out["error"])
			}
		})
	}
}

func TestAnswerAndHangup(t *testing.T) {
	calls := &fakeCalls{}
	srv := newServer(t, calls, nil)

	resp, _ := post(t, srv.URL+"/api/call/answer", ``)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("answer while idle: status = %d", resp.StatusCode)
	}

	calls.set(call.CallState{Active: true, Incoming: true, CallID: "c9", ConnectionState: call.StateRinging})
	resp, out := post(t, srv.URL+"/api/call/answer", `{}`)
	if resp.StatusCode != http.StatusOK || out["call_id"] != "c9" {
		t.Fatalf("answer: %d %v", resp.StatusCode, out)
	}

	resp, _ = post(t, srv.URL+"/api/call/hangup", ``)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hangup: status = %d", resp.StatusCode)
	}
	resp, _ = post(t, srv.URL+"/api/call/hangup", `{"reason":"busy"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hangup with reason: status = %d", resp.StatusCode)
	}
	calls.mu.Lock()
	defer calls.mu.Unlock()
	if len(calls.ended) != 2 || calls.ended[0] != "" || calls.ended[1] != "busy" {
		t.Fatalf("ended = %q", calls.ended)
	}
}

func TestStateAndHistory(t *testing.T) {
	calls := &fakeCalls{history: []call.HistoryRecord{{ID: "b"}, {ID: "a"}}}
	calls.set(call.CallState{Active: true, CallID: "c1", ConnectionState: call.StateConnected})
	srv := newServer(t, calls, nil)

	resp, err := http.Get(srv.URL + "/api/call/state")
	if err != nil {
		t.Fatal(err)
	}
	var st map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if st["connection_state"] != "Connected" || st["call_id"] != "c1" {
		t.Fatalf("state = %v", st)
	}

	resp, err = http.Get(srv.URL + "/api/call/history?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	var recs []call.HistoryRecord
	_ = json.NewDecoder(resp.Body).Decode(&recs)
	resp.Body.Close()
	if len(recs) != 1 || recs[0].ID != "b" {
		t.Fatalf("history = %+v", recs)
	}
}

func TestEmptyHistoryIsArray(t *testing.T) {
	srv := newServer(t, &fakeCalls{}, nil)
	resp, err := http.Get(srv.URL + "/api/call/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var raw json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	if string(raw) != "[]" {
		t.Fatalf("body = %s", raw)
	}
}

func TestStateStream(t *testing.T) {
	calls := &fakeCalls{}
	srv := newServer(t, calls, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/call/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first call.CallState
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.ConnectionState != call.StateIdle {
		t.Fatalf("initial = %v", first.ConnectionState)
	}

	deadline := time.Now().Add(time.Second)
	for calls.subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	calls.set(call.CallState{Active: true, CallID: "c2", ConnectionState: call.StateRinging, Incoming: true})

	var raw map[string]any
	if err := conn.ReadJSON(&raw); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if raw["connection_state"] != "Ringing" || raw["call_id"] != "c2" {
		t.Fatalf("update = %v", raw)
	}
}

func TestLogsAndDocs(t *testing.T) {
	logs := NewLogBuffer(10)
	_, _ = logs.Write([]byte("CALL [c1]: invite sent\npartial"))
	_, _ = logs.Write([]byte(" line\n\n"))
	srv := newServer(t, &fakeCalls{}, logs)

	resp, err := http.Get(srv.URL + "/api/logs?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	var entries []LogEntry
	_ = json.NewDecoder(resp.Body).Decode(&entries)
	resp.Body.Close()
	if len(entries) != 1 || entries[0].Msg != "partial line" {
		t.Fatalf("entries = %+v", entries)
	}

	resp, err = http.Get(srv.URL + "/api/docs/openapi.json")
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Swagger string                     `json:"swagger"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode docs: %v", err)
	}
	resp.Body.Close()
	for _, p := range []string{"/api/call/start", "/api/call/ws", "/api/logs"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("docs missing %s", p)
		}
	}

	resp, err = http.Get(srv.URL + "/api/self")
	if err != nil {
		t.Fatal(err)
	}
	var self map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&self)
	resp.Body.Close()
	if self["user_id"] != "@alice" {
		t.Fatalf("self = %v", self)
	}
}

func TestLogBufferSubscribe(t *testing.T) {
	logs := NewLogBuffer(2)
	ch, cancel := logs.Subscribe()
	defer cancel()

	_, _ = logs.Write([]byte("one\r\ntwo\nthree\n"))
	if got := logs.Snapshot(0); len(got) != 2 || got[0].Msg != "two" || got[1].Msg != "three" {
		t.Fatalf("snapshot = %+v", got)
	}
	select {
	case e := <-ch:
		if e.Msg != "one" {
			t.Fatalf("first = %q", e.Msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}
}

func TestLogBufferParsesGoLogLines(t *testing.T) {
	logs := NewLogBuffer(10)
	_, _ = logs.Write([]byte("2026-10-15T09:30:00.123Z\tINFO\tcall\tcall/controller.go:451\tCALL [c1]: invite sent\n"))
	_, _ = logs.Write([]byte("2026-10-15T09:30:01.000Z\tWARN\tsignal\tsignal/adapter.go:80\tSIGNAL: retrying send\n"))
	_, _ = logs.Write([]byte("plain line\n"))

	got := logs.Snapshot(0)
	if len(got) != 3 {
		t.Fatalf("entries = %d", len(got))
	}
	if got[0].Level != "INFO" || got[0].Logger != "call" || got[0].Msg != "CALL [c1]: invite sent" {
		t.Fatalf("parsed = %+v", got[0])
	}
	if got[0].TS.Year() != 2026 || got[0].TS.Second() != 0 {
		t.Fatalf("ts = %v", got[0].TS)
	}
	if got[2].Level != "" || got[2].Msg != "plain line" {
		t.Fatalf("plain = %+v", got[2])
	}

	srv := newServer(t, &fakeCalls{}, logs)
	resp, err := http.Get(srv.URL + "/api/logs?level=warn")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var warn []LogEntry
	_ = json.NewDecoder(resp.Body).Decode(&warn)
	if len(warn) != 1 || warn[0].Logger != "signal" {
		t.Fatalf("warn = %+v", warn)
	}
}
