package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/roomcall/internal/call"
)

var log = logging.Logger("viewer")

const wsWriteWait = 5 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API only listens on loopback by default.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterCall registers the call control endpoints. calls may be nil, in
// which case only GET /api/call/state is registered and reports idle.
func RegisterCall(mux *http.ServeMux, calls Calls) {
	if calls == nil {
		handleGet(mux, "/api/call/state", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, call.CallState{ConnectionState: call.StateIdle})
		})
		return
	}

	// POST /api/call/start
	handlePost(mux, "/api/call/start", func(w http.ResponseWriter, r *http.Request, req struct {
		RoomID string `json:"room_id"`
		PeerID string `json:"peer_id"`
	}) {
		if req.RoomID == "" {
			writeError(w, http.StatusBadRequest, "missing room_id")
			return
		}
		callID, err := calls.StartCall(r.Context(), req.RoomID, req.PeerID)
		if err != nil {
			writeCallError(w, "start call", err)
			return
		}
		writeJSON(w, map[string]string{"status": "started", "call_id": callID})
	})

	// POST /api/call/answer
	handlePost(mux, "/api/call/answer", func(w http.ResponseWriter, r *http.Request, req struct{}) {
		if err := calls.AnswerCall(r.Context()); err != nil {
			writeCallError(w, "answer call", err)
			return
		}
		writeJSON(w, map[string]string{"status": "answered", "call_id": calls.State().CallID})
	})

	// POST /api/call/hangup. Body is optional.
	handlePost(mux, "/api/call/hangup", func(w http.ResponseWriter, r *http.Request, req struct {
		Reason string `json:"reason"`
	}) {
		if err := calls.EndCall(r.Context(), req.Reason); err != nil {
			writeCallError(w, "hangup", err)
			return
		}
		writeJSON(w, map[string]string{"status": "hung_up"})
	})

	handleGet(mux, "/api/call/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, calls.State())
	})

	handleGet(mux, "/api/call/history", func(w http.ResponseWriter, r *http.Request) {
		recs := calls.History(queryInt(r, "limit", 0))
		if recs == nil {
			recs = []call.HistoryRecord{}
		}
		writeJSON(w, recs)
	})

	// GET /api/call/ws streams a state snapshot on connect and on every change.
	handleGet(mux, "/api/call/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("VIEWER: ws upgrade: %v", err)
			return
		}
		defer conn.Close()

		updates, cancel := calls.Subscribe()
		defer cancel()

		ctx, stop := context.WithCancel(r.Context())
		defer stop()
		go func() {
			// Drain client frames so close and ping control frames are handled.
			defer stop()
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		send := func(s call.CallState) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteJSON(s) == nil
		}
		if !send(calls.State()) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			case s, ok := <-updates:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
						time.Now().Add(wsWriteWait))
					return
				}
				if !send(s) {
					return
				}
			}
		}
	})
}

func writeCallError(w http.ResponseWriter, op string, err error) {
	writeError(w, callErrorStatus(err), op+": "+err.Error())
}

func callErrorStatus(err error) int {
	switch {
	case errors.Is(err, call.ErrCallActive), errors.Is(err, call.ErrNoIncomingCall):
		return http.StatusConflict
	case errors.Is(err, call.ErrNoPeer):
		return http.StatusNotFound
	case errors.Is(err, call.ErrMediaAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, call.ErrSignalingSendFailed):
		return http.StatusBadGateway
	case errors.Is(err, call.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, call.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, call.ErrCallEnded), errors.Is(err, call.ErrRemoteHangup),
		errors.Is(err, call.ErrTransportFailed):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}
