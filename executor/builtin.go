package executor

import (
	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/store"
)

// NewBuiltin registers the asset executor and one compute executor per
// configured function.
func NewBuiltin(cfg compute.Config, inv compute.Invoker, lc Lifecycle, s store.Store, log *logger.Logger) *Registry {
	reg := NewRegistry()
	reg.Register(AssetType, NewAsset(lc))
	for nodeType, fn := range cfg.Functions {
		reg.Register(nodeType, NewCompute(ComputeConfig{
			NodeType:    nodeType,
			Function:    fn,
			CallbackURL: cfg.CallbackURL,
			Invoker:     inv,
			Lifecycle:   lc,
			Store:       s,
			Logger:      log,
		}))
	}
	return reg
}
