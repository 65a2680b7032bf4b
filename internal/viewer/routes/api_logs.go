// internal/viewer/routes/api_logs.go

package routes

import "net/http"

func registerAPILogRoutes(mux *http.ServeMux, d Deps) {
	if d.Logs == nil {
		return
	}
	mux.HandleFunc("/api/logs", d.Logs.ServeLogsJSON)
	mux.HandleFunc("/api/logs/stream", d.Logs.ServeLogsSSE)
}

func registerSelfRoutes(mux *http.ServeMux, d Deps) {
	if d.Self == nil {
		return
	}
	handleGet(mux, "/api/self", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Self())
	})
}
