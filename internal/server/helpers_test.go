package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubCaller implements ToolCaller with a canned response per call.
type stubCaller struct {
	lastToken string
	lastName  string
	lastArgs  map[string]any

	payload map[string]any
	err     error
}

func (s *stubCaller) Call(_ context.Context, token, name string, args map[string]any) (map[string]any, error) {
	s.lastToken = token
	s.lastName = name
	s.lastArgs = args
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func mustTestRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	contract := []byte(`
version: "1.0"
service: "steve-mcp"
apiVersion: "mcp/v1"
tools:
  - name: list_user_products
    capability: read
    description: List products in the current workspace.
    requiredScopes: ["products:read"]
    inputSchema:
      type: object
`)
	registry, err := NewToolRegistry(contract)
	require.NoError(t, err)
	return registry
}
