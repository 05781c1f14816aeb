package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/steveos/steve-mcp/pkg/client"
	"github.com/steveos/steve-mcp/pkg/types"
)

// IdentityAPI is the slice of the Steve API client the verifier needs.
type IdentityAPI interface {
	CurrentUser(ctx context.Context, token string) (types.User, error)
}

// APIVerifier verifies bearer tokens against the Steve API identity
// endpoint. A 401/403 verdict from upstream means the credential was judged
// and refused (ErrTokenNotAccepted); any other failure means the verifier
// could not judge it at all.
type APIVerifier struct {
	api IdentityAPI
}

// NewAPIVerifier wraps an identity endpoint client.
func NewAPIVerifier(api IdentityAPI) *APIVerifier {
	return &APIVerifier{api: api}
}

// Verify implements IdentityVerifier.
func (v *APIVerifier) Verify(ctx context.Context, token string) (types.User, error) {
	user, err := v.api.CurrentUser(ctx, token)
	if err == nil {
		return user, nil
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return types.User{}, fmt.Errorf("%w: %v", ErrTokenNotAccepted, err)
	}
	return types.User{}, err
}
