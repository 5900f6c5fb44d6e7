package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/vidpipe/logger"
)

// Factory builds a signer for a validated Config.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (SignedURLProvider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a provider available to New. Backend packages
// call it from init.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	factories[name] = f
	factoriesMu.Unlock()
}

// New builds the signer for cfg.Provider. The provider's package must be
// imported for its factory to be registered.
func New(ctx context.Context, cfg Config, log *logger.Logger) (SignedURLProvider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: provider %q is not registered", cfg.Provider)
	}
	log.Info("Initializing storage signer", map[string]interface{}{"provider": cfg.Provider})
	return f(ctx, cfg, log)
}
