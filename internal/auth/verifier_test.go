package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveos/steve-mcp/pkg/client"
	"github.com/steveos/steve-mcp/pkg/types"
)

type stubIdentityAPI struct {
	user types.User
	err  error
}

func (s *stubIdentityAPI) CurrentUser(context.Context, string) (types.User, error) {
	if s.err != nil {
		return types.User{}, s.err
	}
	return s.user, nil
}

func TestAPIVerifier_PassesThroughUser(t *testing.T) {
	verifier := NewAPIVerifier(&stubIdentityAPI{
		user: types.User{ID: "u1", CurrentWorkspace: "ws1"},
	})

	user, err := verifier.Verify(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "ws1", user.CurrentWorkspace)
}

func TestAPIVerifier_MapsUnauthorizedToNotAccepted(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		verifier := NewAPIVerifier(&stubIdentityAPI{
			err: &client.APIError{StatusCode: status, Detail: "token refused"},
		})

		_, err := verifier.Verify(context.Background(), "stale")
		require.ErrorIs(t, err, ErrTokenNotAccepted)
	}
}

func TestAPIVerifier_ServerErrorIsNotARejection(t *testing.T) {
	verifier := NewAPIVerifier(&stubIdentityAPI{
		err: &client.APIError{StatusCode: http.StatusInternalServerError, Detail: "boom"},
	})

	_, err := verifier.Verify(context.Background(), "tok")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrTokenNotAccepted))
}

func TestAPIVerifier_TransportErrorIsNotARejection(t *testing.T) {
	verifier := NewAPIVerifier(&stubIdentityAPI{
		err: client.ErrUnavailable,
	})

	_, err := verifier.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, client.ErrUnavailable)
	require.False(t, errors.Is(err, ErrTokenNotAccepted))
}
