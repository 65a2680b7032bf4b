package viewer

import (
	"context"
	"errors"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/roomcall/internal/viewer/routes"
)

var log = logging.Logger("viewer")

type Viewer struct {
	Calls routes.Calls
	Logs  *LogBuffer

	// Self describes the local peer (user id, node addresses). Optional.
	Self func() map[string]any
}

// Handler returns the local API mux.
func Handler(v Viewer) http.Handler {
	mux := http.NewServeMux()

	deps := routes.Deps{
		Calls: v.Calls,
		Self:  v.Self,
	}
	if v.Logs != nil {
		deps.Logs = v.Logs
	}
	routes.Register(mux, deps)

	return noCache(mux)
}

// Start serves the API on addr until ctx is cancelled.
func Start(ctx context.Context, addr string, v Viewer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(v),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Infof("VIEWER: listening on http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
