package tools

import (
	"context"
	"strings"

	"github.com/steveos/steve-mcp/internal/auth"
	"github.com/steveos/steve-mcp/internal/store"
	"github.com/steveos/steve-mcp/pkg/types"
)

var validTaskStatuses = map[string]struct{}{
	types.TaskStatusToDo:       {},
	types.TaskStatusInProgress: {},
	types.TaskStatusInReview:   {},
	types.TaskStatusCompleted:  {},
}

func (r *Runner) getUserTasks(ctx context.Context, principal auth.Principal, args map[string]any) (map[string]any, error) {
	var req struct {
		ProductID string `json:"product_id"`
		Status    string `json:"status"`
		Priority  string `json:"priority"`
		Type      string `json:"type"`
		Page      int    `json:"page"`
		Limit     int    `json:"limit"`
	}
	if err := decodeArgsStrict(args, &req); err != nil {
		return nil, err
	}
	if req.Page < 0 || req.Limit < 0 {
		return nil, validationErrorf("page and limit must be >= 0")
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		if _, ok := validTaskStatuses[status]; !ok {
			return nil, validationErrorf("invalid status %q", status)
		}
	}
	if taskType := strings.TrimSpace(req.Type); taskType != "" && taskType != types.TaskTypeActive && taskType != types.TaskTypeBacklog {
		return nil, validationErrorf("invalid type %q (allowed: %s|%s)", taskType, types.TaskTypeActive, types.TaskTypeBacklog)
	}

	workspace, err := requireWorkspace(principal)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page == 0 {
		page = 1
	}
	limit := req.Limit
	if limit == 0 {
		limit = 10
	}

	tasks, err := r.store.ListTasks(ctx, store.TaskFilter{
		WorkspaceID: workspace,
		ProductID:   strings.TrimSpace(req.ProductID),
		Status:      strings.TrimSpace(req.Status),
		Priority:    strings.TrimSpace(req.Priority),
		Type:        strings.TrimSpace(req.Type),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		return nil, mapStoreError(err, "listing tasks")
	}
	if tasks == nil {
		tasks = []types.Task{}
	}

	return toMap(struct {
		Tasks []types.Task `json:"tasks"`
		Page  int          `json:"page"`
		Limit int          `json:"limit"`
		Total int          `json:"total"`
	}{
		Tasks: tasks,
		Page:  page,
		Limit: limit,
		Total: len(tasks),
	})
}
