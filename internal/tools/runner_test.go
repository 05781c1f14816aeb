package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/steveos/steve-mcp/internal/auth"
	"github.com/steveos/steve-mcp/internal/policy"
	"github.com/steveos/steve-mcp/internal/store"
	"github.com/steveos/steve-mcp/pkg/client"
	"github.com/steveos/steve-mcp/pkg/types"
)

type fakeStore struct {
	products map[string][]types.Product
	tasks    map[string][]types.Task
	err      error
	// block makes reads hang until the call context expires.
	block   bool
	touched bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[string][]types.Product{},
		tasks:    map[string][]types.Task{},
	}
}

func (f *fakeStore) ListProducts(ctx context.Context, workspaceID string) ([]types.Product, error) {
	f.touched = true
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.products[workspaceID], nil
}

func (f *fakeStore) ListTasks(ctx context.Context, filter store.TaskFilter) ([]types.Task, error) {
	f.touched = true
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	matched := make([]types.Task, 0)
	for _, task := range f.tasks[filter.WorkspaceID] {
		if filter.ProductID != "" && task.ProductID != filter.ProductID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		matched = append(matched, task)
	}
	return matched, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.err
}

type fakeUpstream struct {
	user      types.User
	verifyErr error
	createErr error
	// blockCreate makes CreateTask hang until the call context expires.
	blockCreate bool
	// store receives created tasks so reads can round-trip them.
	store   *fakeStore
	nextID  int
	touched bool
}

func (f *fakeUpstream) Verify(_ context.Context, _ string) (types.User, error) {
	if f.verifyErr != nil {
		return types.User{}, f.verifyErr
	}
	return f.user, nil
}

func (f *fakeUpstream) CurrentUser(_ context.Context, _ string) (types.User, error) {
	f.touched = true
	if f.verifyErr != nil {
		return types.User{}, f.verifyErr
	}
	return f.user, nil
}

func (f *fakeUpstream) CreateTask(ctx context.Context, _ string, req types.TaskCreateRequest) (types.Task, error) {
	f.touched = true
	if f.blockCreate {
		<-ctx.Done()
		return types.Task{}, fmt.Errorf("%w: %v", client.ErrUnavailable, ctx.Err())
	}
	if f.createErr != nil {
		return types.Task{}, f.createErr
	}
	f.nextID++
	task := types.Task{
		ID:        fmt.Sprintf("task-%d", f.nextID),
		ProductID: req.ProductID,
		Name:      req.Name,
		Status:    req.Status,
		Type:      req.Type,
	}
	if f.store != nil {
		f.store.tasks[f.user.CurrentWorkspace] = append(f.store.tasks[f.user.CurrentWorkspace], task)
	}
	return task, nil
}

type testHarness struct {
	runner   *Runner
	store    *fakeStore
	upstream *fakeUpstream
}

func newHarness(t *testing.T, mode string) *testHarness {
	t.Helper()
	return newHarnessWithTimeout(t, mode, 5*time.Second)
}

func newHarnessWithTimeout(t *testing.T, mode string, timeout time.Duration) *testHarness {
	t.Helper()

	fs := newFakeStore()
	up := &fakeUpstream{
		user:  types.User{ID: "u1", Email: "u1@steve.example", CurrentWorkspace: "ws1"},
		store: fs,
	}

	enableWrite := mode == policy.ModeReadWrite
	guard, err := policy.NewGuard(mode, enableWrite)
	require.NoError(t, err)

	runner, err := NewRunner(Config{
		Store:       fs,
		Upstream:    up,
		Gate:        auth.NewGate(auth.GateOptions{Verifier: up, DebugToken: "dev-token"}),
		Guard:       guard,
		CallTimeout: timeout,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	return &testHarness{runner: runner, store: fs, upstream: up}
}

func requireToolError(t *testing.T, err error, kind Kind) *ToolError {
	t.Helper()
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, kind, toolErr.Kind())
	return toolErr
}

func expiredToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestCall_UnknownToolTouchesNoBackend(t *testing.T) {
	h := newHarness(t, policy.ModeReadWrite)

	_, err := h.runner.Call(context.Background(), "opaque-token", "drop_database", nil)
	requireToolError(t, err, KindUnknownTool)
	require.False(t, h.store.touched)
	require.False(t, h.upstream.touched)
}

func TestCall_MissingTokenIsRejectedBeforeBackends(t *testing.T) {
	h := newHarness(t, policy.ModeReadWrite)

	_, err := h.runner.Call(context.Background(), "", ToolListUserProducts, nil)
	toolErr := requireToolError(t, err, KindRejected)
	require.Equal(t, auth.ReasonMissing, toolErr.Reason())
	require.False(t, h.store.touched)
	require.False(t, h.upstream.touched)
}

func TestCall_ListProductsEmptyWorkspaceIsSuccess(t *testing.T) {
	h := newHarness(t, policy.ModeReadOnly)

	payload, err := h.runner.Call(context.Background(), "opaque-token", ToolListUserProducts, nil)
	require.NoError(t, err)
	products, ok := payload["products"].([]any)
	require.True(t, ok)
	require.Empty(t, products)
	require.EqualValues(t, 0, payload["total"])
}

func TestCall_ListProductsReturnsWorkspaceProducts(t *testing.T) {
	h := newHarness(t, policy.ModeReadOnly)
	h.store.products["ws1"] = []types.Product{
		{ID: "p1", WorkspaceID: "ws1", Name: "Steve Core"},
		{ID: "p2", WorkspaceID: "ws1", Name: "Steve Mobile"},
	}
	h.store.products["ws2"] = []types.Product{{ID: "p3", WorkspaceID: "ws2", Name: "Elsewhere"}}

	payload, err := h.runner.Call(context.Background(), "opaque-token", ToolListUserProducts, nil)
	require.NoError(t, err)
	products, ok := payload["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 2)
}

func TestCall_GetUserTasksRejectsInvalidStatus(t *testing.T) {
	h := newHarness(t, policy.ModeReadOnly)

	_, err := h.runner.Call(context.Background(), "opaque-token", ToolGetUserTasks, map[string]any{
		"status": "Doing stuff",
	})
	requireToolError(t, err, KindValidationRejected)
	require.False(t, h.store.touched)
}

func TestCall_CreateTaskDeniedInReadOnlyMode(t *testing.T) {
	h := newHarness(t, policy.ModeReadOnly)

	_, err := h.runner.Call(context.Background(), "opaque-token", ToolCreateTask, map[string]any{
		"product_id": "p1",
		"name":       "x",
	})
	requireToolError(t, err, KindUnauthorized)
	require.False(t, h.upstream.touched)
}

func TestCall_CreateTaskWithExpiredCredential(t *testing.T) {
	h := newHarness(t, policy.ModeReadWrite)

	_, err := h.runner.Call(context.Background(), expiredToken(t), ToolCreateTask, map[string]any{
		"product_id": "p1",
		"name":       "x",
	})
	toolErr := requireToolError(t, err, KindRejected)
	require.Equal(t, auth.ReasonExpired, toolErr.Reason())
	require.False(t, h.upstream.touched)
}

func TestCall_CreateTaskThenGetUserTasksRoundTrip(t *testing.T) {
	h := newHarness(t, policy.ModeReadWrite)

	created, err := h.runner.Call(context.Background(), "opaque-token", ToolCreateTask, map[string]any{
		"product_id": "p1",
		"name":       "ship the adapter",
	})
	require.NoError(t, err)
	taskID, ok := created["task_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, taskID)
	require.Equal(t, types.TaskStatusToDo, created["status"])

	listed, err := h.runner.Call(context.Background(), "opaque-token", ToolGetUserTasks, map[string]any{
		"product_id": "p1",
	})
	require.NoError(t, err)
	tasks, ok := listed["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	first, ok := tasks[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, taskID, first["id"])
}

func TestCall_CreateTaskScopeDenied(t *testing.T) {
	h := newHarness(t, policy.ModeReadWrite)

	readOnlyScopes, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u1",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "tasks:read products:read",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	_, err = h.runner.Call(context.Background(), readOnlyScopes, ToolCreateTask, map[string]any{
		"product_id": "p1",
		"name":       "x",
	})
	toolErr := requireToolError(t, err, KindUnauthorized)
	require.Contains(t, toolErr.Error(), "tasks:write")
	require.False(t, h.upstream.touched)
}

func TestCall_StoreDownIsBackendUnavailable(t *testing.T) {
	h := newHarness(t, policy.ModeReadOnly)
	h.store.err = fmt.Errorf("%w: connection reset", store.ErrUnavailable)

	_, err := h.runner.Call(context.Background(), "opaque-token", ToolListUserProducts, nil)
	toolErr := requireToolError(t, err, KindBackendUnavailable)
	require.Equal(t, http.StatusServiceUnavailable, toolErr.StatusCode())
}

func TestCall_BlockedStoreTimesOutAsBackendUnavailable(t *testing.T) {
	h := newHarnessWithTimeout(t, policy.ModeReadOnly, 50*time.Millisecond)
	h.store.block = true

	started := time.Now()
	_, err := h.runner.Call(context.Background(), "opaque-token", ToolListUserProducts, nil)
	elapsed := time.Since(started)

	toolErr := requireToolError(t, err, KindBackendUnavailable)
	require.Equal(t, http.StatusGatewayTimeout, toolErr.StatusCode())
	require.Less(t, elapsed, 2*time.Second)
}

func TestCall_BlockedUpstreamTimesOutAsUpstreamUnavailable(t *testing.T) {
	h := newHarnessWithTimeout(t, policy.ModeReadWrite, 50*time.Millisecond)
	h.upstream.blockCreate = true

	started := time.Now()
	_, err := h.runner.Call(context.Background(), "opaque-token", ToolCreateTask, map[string]any{
		"product_id": "p1",
		"name":       "x",
	})
	elapsed := time.Since(started)

	requireToolError(t, err, KindUpstreamUnavailable)
	require.Less(t, elapsed, 2*time.Second)
}

func TestCall_UpstreamValidationVerdictIsPreserved(t *testing.T) {
	h := newHarness(t, policy.ModeReadWrite)
	h.upstream.createErr = &client.APIError{StatusCode: http.StatusUnprocessableEntity, Detail: "due_date before start_date"}

	_, err := h.runner.Call(context.Background(), "opaque-token", ToolCreateTask, map[string]any{
		"product_id": "p1",
		"name":       "x",
	})
	toolErr := requireToolError(t, err, KindValidationRejected)
	require.Contains(t, toolErr.Error(), "due_date before start_date")
}

func TestCall_UpstreamDownIsUpstreamUnavailable(t *testing.T) {
	h := newHarness(t, policy.ModeReadWrite)
	h.upstream.createErr = fmt.Errorf("%w: connection refused", client.ErrUnavailable)

	_, err := h.runner.Call(context.Background(), "opaque-token", ToolCreateTask, map[string]any{
		"product_id": "p1",
		"name":       "x",
	})
	requireToolError(t, err, KindUpstreamUnavailable)
}

func TestCall_CheckAuthenticationReturnsUser(t *testing.T) {
	h := newHarness(t, policy.ModeReadOnly)

	payload, err := h.runner.Call(context.Background(), "opaque-token", ToolCheckAuthentication, nil)
	require.NoError(t, err)
	require.Equal(t, true, payload["authenticated"])
	user, ok := payload["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "u1", user["id"])
	require.Equal(t, "ws1", user["current_workspace"])
}

func TestCall_RejectsUnknownArguments(t *testing.T) {
	h := newHarness(t, policy.ModeReadOnly)

	_, err := h.runner.Call(context.Background(), "opaque-token", ToolGetUserTasks, map[string]any{
		"owner": "u1",
	})
	toolErr := requireToolError(t, err, KindValidationRejected)
	require.True(t, strings.Contains(toolErr.Error(), "invalid tool arguments"))
}
