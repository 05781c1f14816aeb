// Package auth resolves and verifies credentials for Steve tool calls.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TokenSource identifies where a token was resolved from.
type TokenSource string

const (
	// TokenSourceMCPEnv is STEVE_MCP_TOKEN.
	TokenSourceMCPEnv TokenSource = "steve_mcp_token"
	// TokenSourceAPIEnv is STEVE_API_TOKEN.
	TokenSourceAPIEnv TokenSource = "steve_api_token"
	// TokenSourceCLIConfig is ~/.steve/config.yaml auth.token.
	TokenSourceCLIConfig TokenSource = "cli_config"
)

// TokenResolution contains the resolved token and source.
type TokenResolution struct {
	Token  string
	Source TokenSource
}

// TokenSourceOptions controls token resolution.
type TokenSourceOptions struct {
	AllowCLIConfigToken bool
	CLIConfigPath       string
}

type cliConfigFile struct {
	Auth struct {
		Token string `yaml:"token"`
	} `yaml:"auth"`
}

// ResolveToken resolves a fallback token using deterministic precedence:
// 1) STEVE_MCP_TOKEN
// 2) STEVE_API_TOKEN
// 3) CLI config auth.token (only when AllowCLIConfigToken=true)
//
// Per-call bearer tokens from the HTTP Authorization header always take
// priority over the resolved fallback.
func ResolveToken(opts TokenSourceOptions) (TokenResolution, error) {
	if token := strings.TrimSpace(os.Getenv("STEVE_MCP_TOKEN")); token != "" {
		return TokenResolution{Token: token, Source: TokenSourceMCPEnv}, nil
	}

	if token := strings.TrimSpace(os.Getenv("STEVE_API_TOKEN")); token != "" {
		return TokenResolution{Token: token, Source: TokenSourceAPIEnv}, nil
	}

	if !opts.AllowCLIConfigToken {
		return TokenResolution{}, nil
	}

	configPath := expandPath(defaultIfEmpty(strings.TrimSpace(opts.CLIConfigPath), "~/.steve/config.yaml"))
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		return TokenResolution{}, nil
	default:
		return TokenResolution{}, fmt.Errorf("reading CLI config token source: %w", err)
	}

	var cfg cliConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return TokenResolution{}, fmt.Errorf("decoding CLI config token source: %w", err)
	}

	token := strings.TrimSpace(cfg.Auth.Token)
	if token == "" {
		return TokenResolution{}, nil
	}

	return TokenResolution{Token: token, Source: TokenSourceCLIConfig}, nil
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return filepath.Clean(path)
}
