package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/steveos/steve-mcp/pkg/types"
)

// Reason classifies why a credential was rejected.
type Reason string

const (
	// ReasonMissing means no token was presented at all.
	ReasonMissing Reason = "missing"
	// ReasonMalformed means the token was structurally invalid.
	ReasonMalformed Reason = "malformed"
	// ReasonExpired means the token carried an exp claim in the past.
	ReasonExpired Reason = "expired"
	// ReasonMismatched means the identity provider did not accept the token.
	ReasonMismatched Reason = "mismatched"
)

// RejectedError is returned by the gate when a credential fails the check.
// The reason code is stable and machine-readable; the detail is for humans.
type RejectedError struct {
	Reason Reason
	Detail string
}

// Error implements error.
func (e *RejectedError) Error() string {
	detail := strings.TrimSpace(e.Detail)
	if detail == "" {
		return fmt.Sprintf("credential rejected: %s", e.Reason)
	}
	return fmt.Sprintf("credential rejected (%s): %s", e.Reason, detail)
}

// ErrVerifierUnavailable wraps identity-provider connectivity failures so
// callers can distinguish them from rejections.
var ErrVerifierUnavailable = errors.New("identity provider unavailable")

// Principal is the verified caller identity attached to a tool call.
type Principal struct {
	Subject   string
	Email     string
	Workspace string
	Scopes    []string
	Debug     bool
}

// IdentityVerifier verifies a token against the upstream identity mechanism
// and resolves the user it belongs to.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (types.User, error)
}

// ErrTokenNotAccepted is returned by verifiers when the provider responded
// but did not accept the token.
var ErrTokenNotAccepted = errors.New("token not accepted by identity provider")

// Gate is the credential gate run before any tool touches a backend.
type Gate struct {
	verifier   IdentityVerifier
	debugToken string
	debug      bool
	now        func() time.Time
}

// GateOptions configures a Gate.
type GateOptions struct {
	// Verifier checks tokens against the identity provider. Required.
	Verifier IdentityVerifier
	// DebugToken is accepted unconditionally when Debug is true.
	DebugToken string
	// Debug enables the fixed-token bypass. Development only.
	Debug bool
	// Now overrides the clock for expiry checks. Tests only.
	Now func() time.Time
}

// NewGate creates a credential gate.
func NewGate(opts GateOptions) *Gate {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{
		verifier:   opts.Verifier,
		debugToken: strings.TrimSpace(opts.DebugToken),
		debug:      opts.Debug,
		now:        now,
	}
}

// Authorize validates a bearer token. It is a pure check: no state is
// mutated and no backend other than the identity provider is contacted.
//
// Rejections return *RejectedError with one of the Reason codes. A failure
// to reach the identity provider returns an error wrapping
// ErrVerifierUnavailable instead, since the credential itself was never
// judged.
func (g *Gate) Authorize(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, &RejectedError{Reason: ReasonMissing, Detail: "no bearer token presented"}
	}

	if g.debug && g.debugToken != "" && token == g.debugToken {
		return Principal{
			Subject: "debug",
			Scopes:  []string{"admin"},
			Debug:   true,
		}, nil
	}

	// Structural checks on JWT-shaped tokens avoid a wasted upstream round
	// trip for credentials that cannot possibly verify.
	if looksLikeJWT(token) {
		claims, err := parseUnverifiedClaims(token)
		if err != nil {
			return Principal{}, &RejectedError{Reason: ReasonMalformed, Detail: err.Error()}
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(g.now()) {
			return Principal{}, &RejectedError{Reason: ReasonExpired, Detail: "token exp claim is in the past"}
		}
	}

	if g.verifier == nil {
		return Principal{}, fmt.Errorf("%w: no verifier configured", ErrVerifierUnavailable)
	}

	user, err := g.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotAccepted) {
			return Principal{}, &RejectedError{Reason: ReasonMismatched, Detail: "identity provider did not accept the token"}
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}

	principal := Principal{
		Subject:   user.ID,
		Email:     user.Email,
		Workspace: user.CurrentWorkspace,
		Scopes:    scopesFromToken(token),
	}
	if principal.Subject == "" {
		principal.Subject = user.Email
	}
	return principal, nil
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

func parseUnverifiedClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	// Signature validation belongs to the identity provider; the gate only
	// inspects structure and expiry.
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// scopesFromToken extracts scope claims from JWT-shaped tokens. Opaque
// tokens default to broad access; the upstream API still enforces its own
// authorization on every write.
func scopesFromToken(token string) []string {
	if !looksLikeJWT(token) {
		return []string{"admin"}
	}
	claims, err := parseUnverifiedClaims(token)
	if err != nil {
		return nil
	}

	scopes := parseScopeClaims(claims["scope"])
	if len(scopes) == 0 {
		scopes = parseScopeClaims(claims["scopes"])
	}
	if len(scopes) == 0 {
		scopes = parseScopeClaims(claims["scp"])
	}
	for _, role := range parseScopeClaims(claims["roles"]) {
		if role == "admin" {
			scopes = append(scopes, "admin")
			break
		}
	}

	return normalizeScopes(scopes)
}

func parseScopeClaims(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return strings.Fields(typed)
	case []string:
		return typed
	case []any:
		result := make([]string, 0, len(typed))
		for _, item := range typed {
			if asString, ok := item.(string); ok {
				result = append(result, asString)
			}
		}
		return result
	default:
		return nil
	}
}

func normalizeScopes(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	normalized := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		trimmed := strings.TrimSpace(scope)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}
