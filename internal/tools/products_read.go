package tools

import (
	"context"

	"github.com/steveos/steve-mcp/internal/auth"
	"github.com/steveos/steve-mcp/pkg/types"
)

func (r *Runner) listUserProducts(ctx context.Context, principal auth.Principal, args map[string]any) (map[string]any, error) {
	var req struct{}
	if err := decodeArgsStrict(args, &req); err != nil {
		return nil, err
	}

	workspace, err := requireWorkspace(principal)
	if err != nil {
		return nil, err
	}

	products, err := r.store.ListProducts(ctx, workspace)
	if err != nil {
		return nil, mapStoreError(err, "listing products")
	}
	if products == nil {
		products = []types.Product{}
	}

	return toMap(struct {
		Products []types.Product `json:"products"`
		Total    int             `json:"total"`
	}{
		Products: products,
		Total:    len(products),
	})
}

func requireWorkspace(principal auth.Principal) (string, error) {
	if principal.Workspace == "" {
		return "", validationErrorf("no current workspace found; select a workspace first")
	}
	return principal.Workspace, nil
}
