package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register("postgres", func(ctx context.Context, dsn string, logger *zap.Logger) (datasource.Adapter, error) {
		return New(ctx, dsn, logger)
	})
}
