package datasource

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/apperrors"
)

// Factory builds an adapter from a DSN. Each driver subpackage registers one
// from its init(); main blank-imports the drivers it ships.
type Factory func(ctx context.Context, dsn string, logger *zap.Logger) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register is called by each driver's init() function.
// Thread-safe for concurrent init() calls.
func Register(dialect string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[dialect] = factory
}

// New builds the adapter for a dialect.
func New(ctx context.Context, dialect, dsn string, logger *zap.Logger) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[dialect]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (is the driver package imported?)", apperrors.ErrUnknownDialect, dialect)
	}
	return factory(ctx, dsn, logger)
}

// Registered returns the dialects with a registered driver.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, 0, len(registry))
	for dialect := range registry {
		out = append(out, dialect)
	}
	return out
}
