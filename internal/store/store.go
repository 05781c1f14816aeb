// Package store provides read-only access to the Steve document store.
//
// All writes go through the Steve API so the backend can enforce business
// rules; nothing in this package mutates state.
package store

import (
	"context"
	"errors"

	"github.com/steveos/steve-mcp/pkg/types"
)

// ErrUnavailable indicates the document store could not be reached or the
// query did not complete. It is distinct from an empty result, which is a
// successful read.
var ErrUnavailable = errors.New("document store unavailable")

// TaskFilter scopes a task query. WorkspaceID is mandatory; everything else
// narrows the match set.
type TaskFilter struct {
	WorkspaceID string
	ProductID   string
	Status      string
	Priority    string
	Type        string
	Page        int
	Limit       int
}

// Store is the read path into the document store.
type Store interface {
	// ListProducts returns the products in a workspace, newest first.
	ListProducts(ctx context.Context, workspaceID string) ([]types.Product, error)
	// ListTasks returns tasks matching the filter, ordered by due date.
	ListTasks(ctx context.Context, filter TaskFilter) ([]types.Task, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
