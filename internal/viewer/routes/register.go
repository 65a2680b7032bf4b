// internal/viewer/routes/register.go
package routes

import (
	"context"
	"net/http"

	"github.com/petervdpas/roomcall/internal/call"
)

type Logs interface {
	ServeLogsJSON(w http.ResponseWriter, r *http.Request)
	ServeLogsSSE(w http.ResponseWriter, r *http.Request)
}

// Calls is the slice of the call controller the API drives.
type Calls interface {
	StartCall(ctx context.Context, roomID, peerID string) (string, error)
	AnswerCall(ctx context.Context) error
	EndCall(ctx context.Context, reason string) error
	State() call.CallState
	Subscribe() (<-chan call.CallState, func())
	History(limit int) []call.HistoryRecord
}

type Deps struct {
	Calls Calls
	Logs  Logs

	// Self describes the local peer for GET /api/self. Optional.
	Self func() map[string]any
}

func Register(mux *http.ServeMux, d Deps) {
	registerAPILogRoutes(mux, d)
	registerSelfRoutes(mux, d)
	registerDocsRoutes(mux)
	RegisterCall(mux, d.Calls)
}
