package audit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoggerComplete_EmitsOneStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	auditLogger := NewLogger(logger)

	auditLogger.Complete(ToolCallCompletion{
		RequestID: "req-1",
		SessionID: "sess-1",
		Transport: "http",
		ToolName:  "create_task",
		Mode:      "read-write",
		CallerSub: "u1",
		Workspace: "ws1",
		Arguments: map[string]any{
			"product_id":  "p1",
			"name":        "ship it",
			"assigned_to": []any{"u2", "u3"},
			"token":       "super-secret",
		},
		Result:       "success",
		Duration:     250 * time.Millisecond,
		ResponseCode: 200,
	})

	lines := splitJSONLines(t, buf.String())
	require.Len(t, lines, 1)

	entry := lines[0]
	require.Equal(t, "mcp.tool_call.completed", entry["event"])
	require.Equal(t, "req-1", entry["request_id"])
	require.Equal(t, "sess-1", entry["session_id"])
	require.Equal(t, "http", entry["transport"])
	require.Equal(t, "create_task", entry["tool"])
	require.Equal(t, "read-write", entry["mode"])
	require.Equal(t, "u1", entry["caller_subject"])
	require.Equal(t, "ws1", entry["workspace"])
	require.Equal(t, "success", entry["result"])
	require.EqualValues(t, 250, entry["duration_ms"])

	target, ok := entry["target"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, []any{"p1"}, target["product_ids"])
	require.Equal(t, []any{"u2", "u3"}, target["assignees"])
	_, hasToken := target["token"]
	require.False(t, hasToken)
}

func TestLoggerComplete_IncludesErrorKind(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewLogger(zerolog.New(&buf))

	auditLogger.Complete(ToolCallCompletion{
		ToolName:    "create_task",
		Result:      "error",
		ErrorKind:   "Rejected",
		ErrorDetail: "credential rejected (expired): token exp claim is in the past",
	})

	lines := splitJSONLines(t, buf.String())
	require.Len(t, lines, 1)
	require.Equal(t, "Rejected", lines[0]["error_kind"])
}

func TestRedactSensitiveText_RedactsTokenLikeSegments(t *testing.T) {
	raw := "request failed: Authorization: Bearer abc.def.ghi token=xyz123 password=hunter2"
	redacted := RedactSensitiveText(raw)

	require.NotContains(t, redacted, "abc.def.ghi")
	require.NotContains(t, redacted, "xyz123")
	require.NotContains(t, redacted, "hunter2")
	require.Contains(t, redacted, "Authorization: [REDACTED]")
	require.Contains(t, redacted, "token=[REDACTED]")
	require.Contains(t, redacted, "password=[REDACTED]")
}

func TestSummarizeTargets_CollectsKnownIdentifiers(t *testing.T) {
	summary := SummarizeTargets(map[string]any{
		"product_id":     "p1",
		"parent_task_id": "t9",
		"assigned_to":    []any{"u2", "u2", "u3"},
		"description":    "do not log bodies",
	})

	require.Equal(t, []string{"p1"}, summary.ProductIDs)
	require.Equal(t, []string{"t9"}, summary.TaskIDs)
	require.Equal(t, []string{"u2", "u3"}, summary.Assignees)
}

func splitJSONLines(t *testing.T, payload string) []map[string]any {
	t.Helper()

	rawLines := bytes.Split(bytes.TrimSpace([]byte(payload)), []byte("\n"))
	lines := make([]map[string]any, 0, len(rawLines))
	for _, raw := range rawLines {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var item map[string]any
		require.NoError(t, json.Unmarshal(raw, &item))
		lines = append(lines, item)
	}
	return lines
}
