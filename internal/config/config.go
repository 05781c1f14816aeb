// Package config loads steve-mcp configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// TransportStdio runs MCP over stdin/stdout.
	TransportStdio = "stdio"
	// TransportHTTP runs MCP over HTTP with SSE tool streaming.
	TransportHTTP = "http"

	// ModeReadOnly allows only read capability tools.
	ModeReadOnly = "read-only"
	// ModeReadWrite allows read and write capability tools.
	ModeReadWrite = "read-write"

	defaultListenAddr   = ":8000"
	defaultAPIBaseURL   = "http://localhost:8080/api/v1"
	defaultMongoURL     = "mongodb://localhost:27017"
	defaultDatabaseName = "steve"
	defaultCallTimeout  = 30 * time.Second
)

// Config holds service runtime configuration. Loaded once at startup and
// never mutated afterwards.
type Config struct {
	ListenAddr string
	LogLevel   string

	Transport string

	Mode        string
	EnableWrite bool

	// Debug permits the configured fallback token without upstream
	// verification. Must stay off outside local development.
	Debug bool

	MongoURL     string
	DatabaseName string
	APIBaseURL   string

	CallTimeout time.Duration

	AllowCLIConfigToken bool
	CLIConfigPath       string

	MetricsEnabled bool
}

// Load returns configuration parsed from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:          envOrDefault("STEVE_MCP_LISTEN_ADDR", defaultListenAddr),
		LogLevel:            strings.ToLower(strings.TrimSpace(envOrDefault("STEVE_MCP_LOG_LEVEL", "info"))),
		Transport:           strings.ToLower(strings.TrimSpace(envOrDefault("STEVE_MCP_TRANSPORT", TransportStdio))),
		Mode:                strings.ToLower(strings.TrimSpace(envOrDefault("STEVE_MCP_MODE", ModeReadOnly))),
		EnableWrite:         envBool("STEVE_MCP_ENABLE_WRITE", false),
		Debug:               envBool("STEVE_MCP_DEBUG", false),
		MongoURL:            envOrDefault("STEVE_MCP_MONGODB_URL", defaultMongoURL),
		DatabaseName:        envOrDefault("STEVE_MCP_DATABASE_NAME", defaultDatabaseName),
		APIBaseURL:          strings.TrimRight(envOrDefault("STEVE_MCP_API_BASE_URL", defaultAPIBaseURL), "/"),
		AllowCLIConfigToken: envBool("STEVE_MCP_ALLOW_CLI_CONFIG_TOKEN", false),
		CLIConfigPath:       envOrDefault("STEVE_MCP_CLI_CONFIG_PATH", "~/.steve/config.yaml"),
		MetricsEnabled:      envBool("STEVE_MCP_METRICS_ENABLED", true),
	}

	timeout, err := envDuration("STEVE_MCP_CALL_TIMEOUT", defaultCallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CallTimeout = timeout

	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return Config{}, fmt.Errorf("invalid STEVE_MCP_TRANSPORT %q (allowed: %s|%s)", cfg.Transport, TransportStdio, TransportHTTP)
	}

	switch cfg.Mode {
	case ModeReadOnly, ModeReadWrite:
	default:
		return Config{}, fmt.Errorf("invalid STEVE_MCP_MODE %q (allowed: %s|%s)", cfg.Mode, ModeReadOnly, ModeReadWrite)
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.DatabaseName) == "" {
		return Config{}, fmt.Errorf("STEVE_MCP_DATABASE_NAME must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return parsed
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, value)
	}
	return parsed, nil
}
