package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/steveos/steve-mcp/internal/config"
	"github.com/steveos/steve-mcp/internal/httputil"
)

// HTTPServer wraps MCP HTTP routing state.
type HTTPServer struct {
	cfg           config.Config
	version       string
	commit        string
	build         string
	contract      []byte
	registry      *ToolRegistry
	caller        ToolCaller
	prober        BackendProber
	fallbackToken string
	mode          string
	logger        zerolog.Logger
}

// NewHTTPServer creates an HTTP transport server with health and MCP routes.
func NewHTTPServer(
	cfg config.Config,
	version, commit, buildDate string,
	contract []byte,
	registry *ToolRegistry,
	caller ToolCaller,
	prober BackendProber,
	fallbackToken string,
	mode string,
	logger zerolog.Logger,
) *HTTPServer {
	return &HTTPServer{
		cfg:           cfg,
		version:       version,
		commit:        commit,
		build:         buildDate,
		contract:      contract,
		registry:      registry,
		caller:        caller,
		prober:        prober,
		fallbackToken: fallbackToken,
		mode:          mode,
		logger:        logger,
	}
}

// Router builds the MCP HTTP router.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(httputil.BodyLimit(1 << 20))

	registerHealthRoutes(r, s.prober, s.version, s.commit, s.build, s.cfg.MetricsEnabled)
	registerMCPHTTPRoutes(r, s.registry, s.caller, s.fallbackToken, s.mode, s.version, s.logger)

	r.Get("/api/tools.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(s.contract)
	})

	return r
}
