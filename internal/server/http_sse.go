package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/steveos/steve-mcp/internal/audit"
	"github.com/steveos/steve-mcp/internal/httputil"
	"github.com/steveos/steve-mcp/internal/metrics"
)

func registerMCPHTTPRoutes(
	r chi.Router,
	registry *ToolRegistry,
	caller ToolCaller,
	fallbackToken string,
	mode string,
	version string,
	logger zerolog.Logger,
) {
	r.Route("/mcp/v1", func(r chi.Router) {
		r.Post("/initialize", handleInitializeHTTP(version))
		r.Get("/tools", handleListToolsHTTP(registry))
		r.Post("/tools/call", handleCallToolHTTP(caller, fallbackToken, mode, logger))
		r.Post("/tools/call/sse", handleCallToolSSE(caller, fallbackToken, mode, logger))
	})
}

func handleInitializeHTTP(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		result := initializeResult{
			ProtocolVersion: defaultProtocolVersion,
		}
		result.ServerInfo.Name = defaultServerName
		result.ServerInfo.Version = strings.TrimSpace(version)
		result.Capabilities.Tools.ListChanged = false
		httputil.RespondJSON(w, http.StatusOK, result)
	}
}

func handleListToolsHTTP(registry *ToolRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		tools := make([]toolDescriptor, 0, len(registry.List()))
		for _, tool := range registry.List() {
			tools = append(tools, toolDescriptor{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			})
		}
		httputil.RespondJSON(w, http.StatusOK, listToolsResult{Tools: tools})
	}
}

func handleCallToolHTTP(caller ToolCaller, fallbackToken, mode string, logger zerolog.Logger) http.HandlerFunc {
	auditLogger := audit.NewLogger(logger)

	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := middleware.GetReqID(r.Context())
		sessionID := sessionIDFromHTTPRequest(r)

		auditEvent := audit.ToolCallCompletion{
			RequestID: requestID,
			SessionID: sessionID,
			Transport: "http",
			Mode:      mode,
			Result:    "error",
		}
		defer func() {
			auditEvent.Duration = time.Since(started)
			auditLogger.Complete(auditEvent)
			metrics.ObserveToolCall(auditEvent.ToolName, auditEvent.Result, auditEvent.Duration)
		}()

		var params callToolParams
		if err := decodeJSONStrict(r, &params); err != nil {
			detail := fmt.Sprintf("invalid request body: %v", err)
			auditEvent.ErrorDetail = detail
			auditEvent.ResponseCode = http.StatusBadRequest
			httputil.RespondProblem(w, r, http.StatusBadRequest, detail)
			return
		}
		name := strings.TrimSpace(params.Name)
		if name == "" {
			auditEvent.ErrorDetail = "tool name is required"
			auditEvent.ResponseCode = http.StatusBadRequest
			httputil.RespondProblem(w, r, http.StatusBadRequest, "tool name is required")
			return
		}
		auditEvent.ToolName = name
		auditEvent.Arguments = params.Arguments

		logger.Info().Str("transport", "http").Str("tool", name).Msg("received tool call")

		token := bearerTokenFromRequest(r, fallbackToken)
		payload, err := caller.Call(r.Context(), token, name, params.Arguments)
		if err != nil {
			auditEvent.ErrorKind = toolErrorKind(err)
			auditEvent.ErrorDetail = toolErrorMessage(err)
			auditEvent.ResponseCode = toolErrorStatus(err)
			httputil.RespondJSON(w, toolErrorStatus(err), toolCallResultFromError(name, mode, err))
			return
		}
		auditEvent.Result = "success"
		auditEvent.ResponseCode = http.StatusOK
		httputil.RespondJSON(w, http.StatusOK, toolCallResultFromExecution(name, mode, payload))
	}
}

func handleCallToolSSE(caller ToolCaller, fallbackToken, mode string, logger zerolog.Logger) http.HandlerFunc {
	auditLogger := audit.NewLogger(logger)

	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := middleware.GetReqID(r.Context())
		sessionID := sessionIDFromHTTPRequest(r)

		auditEvent := audit.ToolCallCompletion{
			RequestID: requestID,
			SessionID: sessionID,
			Transport: "http-sse",
			Mode:      mode,
			Result:    "error",
		}
		defer func() {
			auditEvent.Duration = time.Since(started)
			auditLogger.Complete(auditEvent)
			metrics.ObserveToolCall(auditEvent.ToolName, auditEvent.Result, auditEvent.Duration)
		}()

		var params callToolParams
		if err := decodeJSONStrict(r, &params); err != nil {
			detail := fmt.Sprintf("invalid request body: %v", err)
			auditEvent.ErrorDetail = detail
			auditEvent.ResponseCode = http.StatusBadRequest
			httputil.RespondProblem(w, r, http.StatusBadRequest, detail)
			return
		}
		name := strings.TrimSpace(params.Name)
		if name == "" {
			auditEvent.ErrorDetail = "tool name is required"
			auditEvent.ResponseCode = http.StatusBadRequest
			httputil.RespondProblem(w, r, http.StatusBadRequest, "tool name is required")
			return
		}
		auditEvent.ToolName = name
		auditEvent.Arguments = params.Arguments

		controller := http.NewResponseController(w)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		logger.Info().Str("transport", "http-sse").Str("tool", name).Msg("streaming tool call")

		if err := writeSSEEvent(r.Context(), w, "accepted", map[string]any{
			"tool":      name,
			"status":    "accepted",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			auditEvent.ErrorDetail = err.Error()
			auditEvent.ResponseCode = http.StatusInternalServerError
			return
		}
		_ = controller.Flush()

		token := bearerTokenFromRequest(r, fallbackToken)
		payload, err := caller.Call(r.Context(), token, name, params.Arguments)
		if err != nil {
			if writeErr := writeSSEEvent(r.Context(), w, "result", toolCallResultFromError(name, mode, err)); writeErr != nil {
				auditEvent.ErrorDetail = writeErr.Error()
				auditEvent.ResponseCode = http.StatusInternalServerError
				return
			}
			_ = controller.Flush()
			_ = writeSSEEvent(r.Context(), w, "done", map[string]any{"status": "done"})
			_ = controller.Flush()
			auditEvent.ErrorKind = toolErrorKind(err)
			auditEvent.ErrorDetail = toolErrorMessage(err)
			auditEvent.ResponseCode = toolErrorStatus(err)
			return
		}

		if err := writeSSEEvent(r.Context(), w, "result", toolCallResultFromExecution(name, mode, payload)); err != nil {
			auditEvent.ErrorDetail = err.Error()
			auditEvent.ResponseCode = http.StatusInternalServerError
			return
		}
		_ = controller.Flush()

		_ = writeSSEEvent(r.Context(), w, "done", map[string]any{"status": "done"})
		_ = controller.Flush()
		auditEvent.Result = "success"
		auditEvent.ResponseCode = http.StatusOK
	}
}

func writeSSEEvent(ctx context.Context, w http.ResponseWriter, event string, payload any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", strings.TrimSpace(event)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

func decodeJSONStrict(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("request must contain exactly one JSON object")
	}
	return nil
}
