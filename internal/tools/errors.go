package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/steveos/steve-mcp/internal/auth"
	"github.com/steveos/steve-mcp/internal/store"
	"github.com/steveos/steve-mcp/pkg/client"
)

// Kind classifies a tool failure. Kinds are stable and machine-readable;
// callers branch on them, never on message text.
type Kind string

const (
	// KindUnknownTool means the tool name is not in the dispatch table.
	KindUnknownTool Kind = "UnknownTool"
	// KindRejected means the credential gate refused the call.
	KindRejected Kind = "Rejected"
	// KindBackendUnavailable means the document store could not serve the read.
	KindBackendUnavailable Kind = "BackendUnavailable"
	// KindUpstreamUnavailable means the Steve API could not be reached.
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	// KindValidationRejected means the request body was refused.
	KindValidationRejected Kind = "ValidationRejected"
	// KindUnauthorized means the upstream declined the credential for a write.
	KindUnauthorized Kind = "Unauthorized"
)

// ToolError carries a failure kind, an HTTP-style status code, and a
// human-readable message for one failed tool call.
type ToolError struct {
	kind       Kind
	reason     auth.Reason
	statusCode int
	message    string
}

// Error implements error.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.message)
}

// Kind returns the failure classification.
func (e *ToolError) Kind() Kind {
	if e == nil {
		return ""
	}
	return e.kind
}

// Reason returns the gate rejection reason, empty unless Kind is Rejected.
func (e *ToolError) Reason() auth.Reason {
	if e == nil {
		return ""
	}
	return e.reason
}

// StatusCode returns the attached status code.
func (e *ToolError) StatusCode() int {
	if e == nil || e.statusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.statusCode
}

// NewError builds a ToolError with the given classification and status code.
func NewError(kind Kind, statusCode int, message string) *ToolError {
	return &ToolError{
		kind:       kind,
		statusCode: statusCode,
		message:    message,
	}
}

// NewRejected builds a credential rejection carrying its reason code.
func NewRejected(reason auth.Reason, message string) *ToolError {
	return &ToolError{
		kind:       KindRejected,
		reason:     reason,
		statusCode: http.StatusUnauthorized,
		message:    message,
	}
}

func unknownToolError(name string) error {
	return &ToolError{
		kind:       KindUnknownTool,
		statusCode: http.StatusNotFound,
		message:    fmt.Sprintf("unknown tool: %s", strings.TrimSpace(name)),
	}
}

func validationErrorf(format string, args ...any) error {
	return &ToolError{
		kind:       KindValidationRejected,
		statusCode: http.StatusBadRequest,
		message:    fmt.Sprintf(format, args...),
	}
}

func rejectedError(rejected *auth.RejectedError) error {
	return &ToolError{
		kind:       KindRejected,
		reason:     rejected.Reason,
		statusCode: http.StatusUnauthorized,
		message:    rejected.Error(),
	}
}

// mapGateError converts credential gate failures. Rejections keep their
// reason code; verifier connectivity problems are upstream failures, not
// judgments about the credential.
func mapGateError(err error) error {
	var rejected *auth.RejectedError
	if errors.As(err, &rejected) {
		return rejectedError(rejected)
	}
	if errors.Is(err, auth.ErrVerifierUnavailable) {
		return &ToolError{
			kind:       KindUpstreamUnavailable,
			statusCode: http.StatusBadGateway,
			message:    err.Error(),
		}
	}
	return &ToolError{
		kind:       KindUpstreamUnavailable,
		statusCode: http.StatusInternalServerError,
		message:    fmt.Sprintf("credential check failed: %v", err),
	}
}

// mapStoreError converts document-store failures. An empty result never
// reaches here; it is a successful read.
func mapStoreError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ToolError{
			kind:       KindBackendUnavailable,
			statusCode: http.StatusGatewayTimeout,
			message:    fallback + ": query timed out",
		}
	}
	if errors.Is(err, store.ErrUnavailable) {
		return &ToolError{
			kind:       KindBackendUnavailable,
			statusCode: http.StatusServiceUnavailable,
			message:    err.Error(),
		}
	}
	return &ToolError{
		kind:       KindBackendUnavailable,
		statusCode: http.StatusInternalServerError,
		message:    fmt.Sprintf("%s: %v", fallback, err),
	}
}

// mapUpstreamError converts Steve API failures by response category without
// reinterpreting the upstream's decision.
func mapUpstreamError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return &ToolError{
				kind:       KindUnauthorized,
				statusCode: apiErr.StatusCode,
				message:    apiErr.Error(),
			}
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return &ToolError{
				kind:       KindValidationRejected,
				statusCode: apiErr.StatusCode,
				message:    apiErr.Error(),
			}
		default:
			return &ToolError{
				kind:       KindUpstreamUnavailable,
				statusCode: http.StatusBadGateway,
				message:    apiErr.Error(),
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ToolError{
			kind:       KindUpstreamUnavailable,
			statusCode: http.StatusGatewayTimeout,
			message:    fallback + ": request timed out",
		}
	}
	return &ToolError{
		kind:       KindUpstreamUnavailable,
		statusCode: http.StatusBadGateway,
		message:    fmt.Sprintf("%s: %v", fallback, err),
	}
}
