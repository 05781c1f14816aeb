package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/steveos/steve-mcp/pkg/types"
)

type fakeVerifier struct {
	user  types.User
	err   error
	calls int
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (types.User, error) {
	f.calls++
	if f.err != nil {
		return types.User{}, f.err
	}
	return f.user, nil
}

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestGate_MissingToken(t *testing.T) {
	gate := NewGate(GateOptions{Verifier: &fakeVerifier{}})

	_, err := gate.Authorize(context.Background(), "")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, ReasonMissing, rejected.Reason)
}

func TestGate_DebugTokenAcceptedOnlyInDebugMode(t *testing.T) {
	verifier := &fakeVerifier{err: ErrTokenNotAccepted}

	debugGate := NewGate(GateOptions{Verifier: verifier, DebugToken: "dev-token", Debug: true})
	principal, err := debugGate.Authorize(context.Background(), "dev-token")
	require.NoError(t, err)
	require.True(t, principal.Debug)
	require.Equal(t, "debug", principal.Subject)
	require.Zero(t, verifier.calls, "debug token must not reach the verifier")

	normalGate := NewGate(GateOptions{Verifier: verifier, DebugToken: "dev-token", Debug: false})
	_, err = normalGate.Authorize(context.Background(), "dev-token")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, ReasonMismatched, rejected.Reason)
}

func TestGate_MalformedJWT(t *testing.T) {
	verifier := &fakeVerifier{}
	gate := NewGate(GateOptions{Verifier: verifier})

	_, err := gate.Authorize(context.Background(), "not.base64.jwt")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, ReasonMalformed, rejected.Reason)
	require.Zero(t, verifier.calls)
}

func TestGate_ExpiredJWT(t *testing.T) {
	verifier := &fakeVerifier{}
	gate := NewGate(GateOptions{Verifier: verifier})

	token := signedTestToken(t, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := gate.Authorize(context.Background(), token)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, ReasonExpired, rejected.Reason)
	require.Zero(t, verifier.calls, "expired token must not reach the verifier")
}

func TestGate_VerifiedPrincipalCarriesWorkspaceAndScopes(t *testing.T) {
	verifier := &fakeVerifier{user: types.User{
		ID:               "u1",
		Email:            "u1@steve.example",
		CurrentWorkspace: "ws1",
	}}
	gate := NewGate(GateOptions{Verifier: verifier})

	token := signedTestToken(t, jwt.MapClaims{
		"sub":   "u1",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "tasks:read tasks:write products:read",
	})

	principal, err := gate.Authorize(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "u1", principal.Subject)
	require.Equal(t, "ws1", principal.Workspace)
	require.Equal(t, []string{"tasks:read", "tasks:write", "products:read"}, principal.Scopes)
	require.False(t, principal.Debug)
}

func TestGate_OpaqueTokenGetsBroadScopes(t *testing.T) {
	verifier := &fakeVerifier{user: types.User{ID: "u1", CurrentWorkspace: "ws1"}}
	gate := NewGate(GateOptions{Verifier: verifier})

	principal, err := gate.Authorize(context.Background(), "opaque-session-token")
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, principal.Scopes)
}

func TestGate_VerifierUnavailableIsNotARejection(t *testing.T) {
	verifier := &fakeVerifier{err: fmt.Errorf("dial tcp: connection refused")}
	gate := NewGate(GateOptions{Verifier: verifier})

	_, err := gate.Authorize(context.Background(), "opaque-session-token")
	require.ErrorIs(t, err, ErrVerifierUnavailable)
	var rejected *RejectedError
	require.False(t, errors.As(err, &rejected))
}

func TestGate_MismatchedToken(t *testing.T) {
	verifier := &fakeVerifier{err: ErrTokenNotAccepted}
	gate := NewGate(GateOptions{Verifier: verifier})

	_, err := gate.Authorize(context.Background(), "opaque-but-wrong")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, ReasonMismatched, rejected.Reason)
}
