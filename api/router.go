package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the photo API. Health and metrics are unauthenticated;
// everything under /v1 requires a caller identity.
func NewRouter(h *Handler, jwtSecret string, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(Metrics(chiRoutePattern))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(RequireAuth(jwtSecret))

		r.Post("/photos", h.Upload)
		r.Get("/photos/mine", h.ListMine)
		r.Delete("/photos/mine", h.DeleteMine)
		r.Get("/photos/recent", h.ListRecent)
		r.Get("/photos/public", h.ListPublic)
		r.Get("/photos/{photoID}", h.Detail)
		r.Patch("/photos/{photoID}", h.Update)
		r.Post("/photos/{photoID}/share", h.Share)
		r.Delete("/photos/{photoID}", h.Delete)
		r.Get("/missions/{missionID}/photos", h.ListByMission)
	})
	return r
}

func chiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := rctx.RoutePattern()
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}
