package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/steveos/steve-mcp/internal/tools"
)

// ToolCaller executes one tool call and returns structured content. The
// token is the caller's bearer credential; the dispatcher gates on it before
// touching any backend.
type ToolCaller interface {
	Call(ctx context.Context, token, name string, args map[string]any) (map[string]any, error)
}

func toolErrorStatus(err error) int {
	var toolErr *tools.ToolError
	if err != nil && errors.As(err, &toolErr) {
		status := toolErr.StatusCode()
		if status >= 400 && status <= 599 {
			return status
		}
	}
	return http.StatusInternalServerError
}

func toolErrorKind(err error) string {
	var toolErr *tools.ToolError
	if err != nil && errors.As(err, &toolErr) {
		return string(toolErr.Kind())
	}
	return "InternalError"
}

func toolErrorReason(err error) string {
	var toolErr *tools.ToolError
	if err != nil && errors.As(err, &toolErr) {
		return string(toolErr.Reason())
	}
	return ""
}

func toolErrorMessage(err error) string {
	if err == nil {
		return "unknown tool execution error"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "unknown tool execution error"
	}
	return message
}

// toolCallResultFromExecution wraps a successful payload. A result carries
// either a payload or an error, never both.
func toolCallResultFromExecution(name, mode string, payload map[string]any) callToolResult {
	return callToolResult{
		Content: []contentBlock{
			{
				Type: "text",
				Text: "tool " + strings.TrimSpace(name) + " executed",
			},
		},
		IsError: false,
		StructuredContent: map[string]any{
			"tool":   strings.TrimSpace(name),
			"mode":   strings.TrimSpace(mode),
			"status": "ok",
			"result": payload,
		},
	}
}

func toolCallResultFromError(name, mode string, err error) callToolResult {
	errorContent := map[string]any{
		"kind":    toolErrorKind(err),
		"status":  toolErrorStatus(err),
		"message": toolErrorMessage(err),
	}
	if reason := toolErrorReason(err); reason != "" {
		errorContent["reason"] = reason
	}
	return callToolResult{
		Content: []contentBlock{
			{
				Type: "text",
				Text: toolErrorMessage(err),
			},
		},
		IsError: true,
		StructuredContent: map[string]any{
			"tool":   strings.TrimSpace(name),
			"mode":   strings.TrimSpace(mode),
			"status": "error",
			"error":  errorContent,
		},
	}
}
