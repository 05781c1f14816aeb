// Package types defines the shared Steve API resource types.
package types

import "time"

// Task statuses accepted by the Steve backend.
const (
	TaskStatusToDo       = "To do"
	TaskStatusInProgress = "In progress"
	TaskStatusInReview   = "In review"
	TaskStatusCompleted  = "Completed"
)

// Task types.
const (
	TaskTypeActive  = "active"
	TaskTypeBacklog = "backlog"
)

// User is the identity record returned by GET /users/me.
type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	CurrentWorkspace string `json:"current_workspace"`
}

// Product is a product record in a workspace.
type Product struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Task is a task record, as read from the store or echoed by the API.
type Task struct {
	ID          string     `json:"id"`
	ProductID   string     `json:"product_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	Type        string     `json:"type,omitempty"`
	AssignedTo  []string   `json:"assigned_to,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// TaskCreateRequest is the body for POST /tasks/.
type TaskCreateRequest struct {
	ProductID       string     `json:"product_id"`
	ParentTaskID    string     `json:"parent_task_id,omitempty"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	AssignedTo      []string   `json:"assigned_to,omitempty"`
	Status          string     `json:"status,omitempty"`
	Priority        string     `json:"priority,omitempty"`
	Type            string     `json:"type,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	IsSimpleSubtask bool       `json:"is_simple_subtask,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	CreatedWith     string     `json:"created_with,omitempty"`
}
