package tools

import (
	"context"
	"strings"
	"time"

	"github.com/steveos/steve-mcp/pkg/types"
)

func (r *Runner) createTask(ctx context.Context, token string, args map[string]any) (map[string]any, error) {
	var req struct {
		ProductID       string     `json:"product_id"`
		ParentTaskID    string     `json:"parent_task_id"`
		Name            string     `json:"name"`
		Description     string     `json:"description"`
		AssignedTo      []string   `json:"assigned_to"`
		Status          string     `json:"status"`
		Priority        string     `json:"priority"`
		Type            string     `json:"type"`
		Tags            []string   `json:"tags"`
		IsSimpleSubtask bool       `json:"is_simple_subtask"`
		StartDate       *time.Time `json:"start_date"`
		DueDate         *time.Time `json:"due_date"`
	}
	if err := decodeArgsStrict(args, &req); err != nil {
		return nil, err
	}

	productID := strings.TrimSpace(req.ProductID)
	name := strings.TrimSpace(req.Name)
	if productID == "" {
		return nil, validationErrorf("product_id is required")
	}
	if name == "" {
		return nil, validationErrorf("name is required")
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = types.TaskStatusToDo
	}
	taskType := strings.TrimSpace(req.Type)
	if taskType == "" {
		taskType = types.TaskTypeActive
	}

	created, err := r.upstream.CreateTask(ctx, token, types.TaskCreateRequest{
		ProductID:       productID,
		ParentTaskID:    strings.TrimSpace(req.ParentTaskID),
		Name:            name,
		Description:     strings.TrimSpace(req.Description),
		AssignedTo:      trimStringList(req.AssignedTo),
		Status:          status,
		Priority:        strings.TrimSpace(req.Priority),
		Type:            taskType,
		Tags:            trimStringList(req.Tags),
		IsSimpleSubtask: req.IsSimpleSubtask,
		StartDate:       req.StartDate,
		DueDate:         req.DueDate,
		CreatedWith:     "ai",
	})
	if err != nil {
		return nil, mapUpstreamError(err, "creating task")
	}

	return toMap(struct {
		TaskID string `json:"task_id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}{
		TaskID: created.ID,
		Name:   created.Name,
		Status: created.Status,
	})
}

func trimStringList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			trimmed = append(trimmed, v)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}
	return trimmed
}
