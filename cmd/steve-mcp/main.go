// Package main is the entry point for the steve-mcp service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/steveos/steve-mcp/api"
	mcpauth "github.com/steveos/steve-mcp/internal/auth"
	"github.com/steveos/steve-mcp/internal/config"
	"github.com/steveos/steve-mcp/internal/policy"
	"github.com/steveos/steve-mcp/internal/server"
	"github.com/steveos/steve-mcp/internal/store"
	"github.com/steveos/steve-mcp/internal/tools"
	"github.com/steveos/steve-mcp/pkg/client"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// backendProber reports store and upstream reachability for health routes.
type backendProber struct {
	store *store.MongoStore
	api   *client.Client
}

func (p *backendProber) PingStore(ctx context.Context) error {
	return p.store.Ping(ctx)
}

func (p *backendProber) PingUpstream(ctx context.Context) error {
	return p.api.Health(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "steve-mcp").Str("version", version).Logger()

	logger := log.With().Str("component", "main").Logger()
	logger.Info().Str("transport", cfg.Transport).Msg("starting steve-mcp")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	documentStore, err := store.Connect(connectCtx, cfg.MongoURL, cfg.DatabaseName)
	connectCancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to document store")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if closeErr := documentStore.Close(closeCtx); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close document store")
		}
	}()
	logger.Info().Str("database", cfg.DatabaseName).Msg("connected to document store")

	apiClient, err := client.New(client.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.CallTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Steve API client")
	}

	registry, err := server.NewToolRegistry(api.ToolsContract)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse MCP tool contract")
	}
	modeGuard, err := policy.NewGuard(cfg.Mode, cfg.EnableWrite)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid mode configuration")
	}

	resolvedToken, err := mcpauth.ResolveToken(mcpauth.TokenSourceOptions{
		AllowCLIConfigToken: cfg.AllowCLIConfigToken,
		CLIConfigPath:       cfg.CLIConfigPath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve token source")
	}
	if resolvedToken.Token == "" {
		logger.Warn().Msg("no fallback token resolved from STEVE_MCP_TOKEN, STEVE_API_TOKEN, or CLI config")
	} else {
		logger.Info().Str("token_source", string(resolvedToken.Source)).Msg("resolved fallback token source")
	}
	if cfg.Debug {
		logger.Warn().Msg("debug mode is enabled; the configured fallback token bypasses identity verification")
	}

	gate := mcpauth.NewGate(mcpauth.GateOptions{
		Verifier:   mcpauth.NewAPIVerifier(apiClient),
		DebugToken: resolvedToken.Token,
		Debug:      cfg.Debug,
	})

	runner, err := tools.NewRunner(tools.Config{
		Store:       documentStore,
		Upstream:    apiClient,
		Gate:        gate,
		Guard:       modeGuard,
		CallTimeout: cfg.CallTimeout,
		Logger:      log.Logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tool runner")
	}

	logger.Info().Str("mode", modeGuard.Mode()).Bool("write_enabled", cfg.EnableWrite).Msg("execution policy initialized")

	switch cfg.Transport {
	case config.TransportStdio:
		if runErr := server.RunStdio(ctx, os.Stdin, os.Stdout, registry, runner, resolvedToken.Token, modeGuard.Mode(), version, logger); runErr != nil {
			logger.Error().Err(runErr).Msg("stdio runtime stopped with error")
			os.Exit(1)
		}
		logger.Info().Msg("stdio runtime stopped")

	case config.TransportHTTP:
		httpServer := server.NewHTTPServer(
			cfg,
			version, commit, buildDate,
			api.ToolsContract,
			registry,
			runner,
			&backendProber{store: documentStore, api: apiClient},
			resolvedToken.Token,
			modeGuard.Mode(),
			log.Logger,
		)
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httpServer.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      0, // allow SSE streaming without forcing writer timeout.
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				errCh <- serveErr
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case serveErr := <-errCh:
			logger.Error().Err(serveErr).Msg("HTTP server error")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
			os.Exit(1)
		}
		logger.Info().Msg("server stopped gracefully")

	default:
		logger.Fatal().Str("transport", cfg.Transport).Msg("unsupported transport")
	}
}
