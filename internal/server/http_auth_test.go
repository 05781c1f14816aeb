package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBearerTokenFromRequest_HeaderWins(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp/v1/tools/call", nil)
	req.Header.Set("Authorization", "Bearer header-token")

	require.Equal(t, "header-token", bearerTokenFromRequest(req, "fallback-token"))
}

func TestBearerTokenFromRequest_FallbackWhenAbsent(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp/v1/tools/call", nil)

	require.Equal(t, "fallback-token", bearerTokenFromRequest(req, "fallback-token"))
}

func TestBearerTokenFromRequest_NonBearerSchemeIsEmpty(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp/v1/tools/call", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	// A malformed header must not silently fall back; the gate rejects the
	// empty token with a missing reason.
	require.Equal(t, "", bearerTokenFromRequest(req, "fallback-token"))
}

func TestBearerTokenFromRequest_CaseInsensitiveScheme(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp/v1/tools/call", nil)
	req.Header.Set("Authorization", "bearer lower-token")

	require.Equal(t, "lower-token", bearerTokenFromRequest(req, "fallback-token"))
}

func TestSessionIDFromHTTPRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp/v1/tools/call", nil)
	req.Header.Set("MCP-Session-ID", "mcp-42")
	require.Equal(t, "mcp-42", sessionIDFromHTTPRequest(req))

	req = httptest.NewRequest("POST", "/mcp/v1/tools/call", nil)
	req.Header.Set("X-Session-ID", "x-42")
	require.Equal(t, "x-42", sessionIDFromHTTPRequest(req))

	req = httptest.NewRequest("POST", "/mcp/v1/tools/call", nil)
	generated := sessionIDFromHTTPRequest(req)
	require.NotEmpty(t, generated)
}
