package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// bearerTokenFromRequest extracts the bearer token from the Authorization
// header, falling back to the configured token when the header is absent.
// An empty result is still dispatched; the credential gate rejects it with
// a missing-token reason.
func bearerTokenFromRequest(r *http.Request, fallback string) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return strings.TrimSpace(fallback)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func sessionIDFromHTTPRequest(r *http.Request) string {
	if sessionID := strings.TrimSpace(r.Header.Get("MCP-Session-ID")); sessionID != "" {
		return sessionID
	}
	if sessionID := strings.TrimSpace(r.Header.Get("X-Session-ID")); sessionID != "" {
		return sessionID
	}
	return uuid.NewString()
}
