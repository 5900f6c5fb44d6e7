package executor

import (
	"context"
	"fmt"

	"github.com/kbukum/vidpipe/pipeline"
)

// AssetType is the node type that wraps an existing file.
const AssetType = "asset"

// Asset completes asset nodes without compute. The output points at the
// asset's source.
type Asset struct {
	lc Lifecycle
}

// NewAsset creates an asset executor.
func NewAsset(lc Lifecycle) *Asset {
	return &Asset{lc: lc}
}

func (a *Asset) Execute(ctx context.Context, n *pipeline.Node) error {
	token, err := a.lc.ExecutionStarted(ctx, n.ID, nil)
	if err != nil {
		return err
	}
	result := map[string]any{}
	for k, v := range n.Asset {
		result[k] = v
	}
	out, err := a.lc.ExecutionSucceeded(ctx, n.ID, AssetType, result, token)
	if err != nil {
		return err
	}
	if !out.Applied {
		return fmt.Errorf("asset node %s was superseded before completing", n.ID)
	}
	return nil
}
