// internal/viewer/routes/docs.go

package routes

import (
	"net/http"

	"github.com/swaggo/swag"

	_ "github.com/petervdpas/roomcall/internal/viewer/docs"
)

func registerDocsRoutes(mux *http.ServeMux) {
	handleGet(mux, "/api/docs/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(doc))
	})
}
