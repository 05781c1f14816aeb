// Package tools dispatches Steve tool calls to the document store read path
// or the Steve API write path.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/steveos/steve-mcp/internal/auth"
	"github.com/steveos/steve-mcp/internal/policy"
	"github.com/steveos/steve-mcp/internal/store"
	"github.com/steveos/steve-mcp/pkg/types"
)

// Tool names. The dispatch table over these is closed: adding a tool means
// adding a case to Runner.Call and a route entry here.
const (
	ToolListUserProducts    = "list_user_products"
	ToolGetUserTasks        = "get_user_tasks"
	ToolCreateTask          = "create_task"
	ToolCheckAuthentication = "check_authentication"
)

type route struct {
	capability     string
	requiredScopes []string
}

// routes is the static name-to-adapter mapping, exhaustive over the
// supported tools.
var routes = map[string]route{
	ToolListUserProducts:    {capability: "read", requiredScopes: []string{"products:read"}},
	ToolGetUserTasks:        {capability: "read", requiredScopes: []string{"tasks:read"}},
	ToolCreateTask:          {capability: "write", requiredScopes: []string{"tasks:write"}},
	ToolCheckAuthentication: {capability: "read"},
}

// CredentialGate authorizes a bearer token before any adapter runs.
type CredentialGate interface {
	Authorize(ctx context.Context, token string) (auth.Principal, error)
}

// Upstream is the write path into the Steve API plus identity reads.
type Upstream interface {
	CurrentUser(ctx context.Context, token string) (types.User, error)
	CreateTask(ctx context.Context, token string, req types.TaskCreateRequest) (types.Task, error)
}

// Config configures a Runner.
type Config struct {
	Store    store.Store
	Upstream Upstream
	Gate     CredentialGate
	Guard    *policy.Guard
	// CallTimeout bounds each tool call end to end, covering both the store
	// query and the upstream request. Zero means no per-call bound.
	CallTimeout time.Duration
	Logger      zerolog.Logger
}

// Runner executes Steve tool calls. Each call is independent; the Runner
// holds no mutable state between dispatches.
type Runner struct {
	store    store.Store
	upstream Upstream
	gate     CredentialGate
	guard    *policy.Guard
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewRunner creates a tool runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("tools: Store is required")
	}
	if cfg.Upstream == nil {
		return nil, fmt.Errorf("tools: Upstream is required")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("tools: Gate is required")
	}
	return &Runner{
		store:    cfg.Store,
		upstream: cfg.Upstream,
		gate:     cfg.Gate,
		guard:    cfg.Guard,
		timeout:  cfg.CallTimeout,
		logger:   cfg.Logger.With().Str("component", "tools").Logger(),
	}, nil
}

// Call dispatches one tool call: unknown-name check, policy guard,
// credential gate, then exactly one adapter. No backend is touched before
// the gate passes.
func (r *Runner) Call(ctx context.Context, token, name string, args map[string]any) (map[string]any, error) {
	name = strings.TrimSpace(name)
	entry, ok := routes[name]
	if !ok {
		return nil, unknownToolError(name)
	}

	if err := r.guard.AuthorizeTool(name, entry.capability); err != nil {
		return nil, &ToolError{
			kind:       KindUnauthorized,
			statusCode: http.StatusForbidden,
			message:    err.Error(),
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	principal, err := r.gate.Authorize(ctx, token)
	if err != nil {
		return nil, mapGateError(err)
	}

	if err := policy.RequireScopes(name, entry.requiredScopes, principal.Scopes); err != nil {
		return nil, &ToolError{
			kind:       KindUnauthorized,
			statusCode: http.StatusForbidden,
			message:    err.Error(),
		}
	}

	r.logger.Debug().Str("tool", name).Str("subject", principal.Subject).Msg("dispatching tool call")

	switch name {
	case ToolListUserProducts:
		return r.listUserProducts(ctx, principal, args)
	case ToolGetUserTasks:
		return r.getUserTasks(ctx, principal, args)
	case ToolCreateTask:
		return r.createTask(ctx, token, args)
	case ToolCheckAuthentication:
		return r.checkAuthentication(ctx, token, args)
	default:
		// routes and this switch must stay in lockstep.
		return nil, unknownToolError(name)
	}
}

func decodeArgsStrict(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	if decoder.More() {
		return validationErrorf("tool arguments must be a single JSON object")
	}
	return nil
}

func toMap(v any) (map[string]any, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool response: %w", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, fmt.Errorf("decoding tool response: %w", err)
	}
	return decoded, nil
}
