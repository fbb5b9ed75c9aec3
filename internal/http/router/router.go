// Package router assembles the chi route tree.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	connectctrl "github.com/authhub/authhub/internal/http/controllers/connect"
	"github.com/authhub/authhub/internal/store/core"
)

// Deps contains everything the router mounts.
type Deps struct {
	Connect *connectctrl.Controllers

	// MetricsHandler serves /metrics when non-nil.
	MetricsHandler http.Handler

	// Readiness dependencies; nil checks are skipped.
	Store     core.Store
	CachePing func(ctx context.Context) error
}

// New builds the route tree. Middlewares wrap outside, in the server wiring.
func New(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if deps.Store != nil {
			if err := deps.Store.Ping(ctx); err != nil {
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if deps.CachePing != nil {
			if err := deps.CachePing(ctx); err != nil {
				http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	if c := deps.Connect; c != nil {
		r.Route("/v1", func(r chi.Router) {
			r.Post("/access-requests", c.Requests.Create)
			r.Get("/access-requests/{requestID}", c.Requests.Get)
			r.Delete("/access-requests/{requestID}", c.Requests.Cancel)

			r.Get("/connect/{platform}/start", c.Start.Start)
			r.Get("/connect/{platform}/callback", c.Callback.Callback)

			r.Get("/connect/sessions/{sessionID}", c.Session.Get)
			r.Post("/connect/sessions/{sessionID}/finalize", c.Session.Finalize)
			r.Delete("/connect/sessions/{sessionID}", c.Session.Cancel)

			r.Post("/verify/token", c.Verify.VerifyToken)
			r.Post("/verify/access", c.Verify.VerifyAccess)
		})
	}

	return r
}
