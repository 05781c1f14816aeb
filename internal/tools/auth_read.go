package tools

import (
	"context"

	"github.com/steveos/steve-mcp/pkg/types"
)

func (r *Runner) checkAuthentication(ctx context.Context, token string, args map[string]any) (map[string]any, error) {
	var req struct{}
	if err := decodeArgsStrict(args, &req); err != nil {
		return nil, err
	}

	// The gate already vetted the token; this fetches the full profile so
	// the caller sees who the credential resolves to.
	user, err := r.upstream.CurrentUser(ctx, token)
	if err != nil {
		return nil, mapUpstreamError(err, "checking authentication")
	}

	return toMap(struct {
		Authenticated bool       `json:"authenticated"`
		User          types.User `json:"user"`
	}{
		Authenticated: true,
		User:          user,
	})
}
