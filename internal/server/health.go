package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/steveos/steve-mcp/internal/httputil"
	"github.com/steveos/steve-mcp/internal/metrics"
)

const healthProbeTimeout = 5 * time.Second

// BackendProber reports reachability of the two backends the tools depend
// on: the document store and the Steve API.
type BackendProber interface {
	PingStore(ctx context.Context) error
	PingUpstream(ctx context.Context) error
}

func registerHealthRoutes(r chi.Router, prober BackendProber, version, commit, buildDate string, metricsEnabled bool) {
	r.Get("/health", handleHealth(prober))
	r.Get("/readiness", handleReadiness(prober))
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": buildDate,
		})
	})
	if metricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
}

// handleHealth probes both backends and reports per-backend status, 503
// when either is down.
func handleHealth(prober BackendProber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		storeHealthy := prober == nil || prober.PingStore(ctx) == nil
		upstreamHealthy := prober == nil || prober.PingUpstream(ctx) == nil

		status := "healthy"
		code := http.StatusOK
		if !storeHealthy || !upstreamHealthy {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		httputil.RespondJSON(w, code, map[string]any{
			"status":    status,
			"mongodb":   storeHealthy,
			"api":       upstreamHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func handleReadiness(prober BackendProber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		if prober != nil {
			if err := prober.PingStore(ctx); err != nil {
				httputil.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready"})
				return
			}
		}
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
