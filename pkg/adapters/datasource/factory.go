package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/logging"
)

// AdapterFactory creates executors from the registry.
type AdapterFactory interface {
	// NewQueryExecutor opens an executor for the given datasource type.
	NewQueryExecutor(ctx context.Context, dsType string, config map[string]any) (QueryExecutor, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []AdapterInfo
}

type registryFactory struct {
	logger *zap.Logger
}

// NewAdapterFactory returns a factory that uses the global registry.
func NewAdapterFactory(logger *zap.Logger) AdapterFactory {
	return &registryFactory{
		logger: logger,
	}
}

func (f *registryFactory) NewQueryExecutor(ctx context.Context, dsType string, config map[string]any) (QueryExecutor, error) {
	factory := GetFactory(dsType)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s (adapter not registered)", apperrors.ErrUnsupportedDialect, dsType)
	}
	exec, err := factory(ctx, config, f.logger.Named(dsType))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s datasource: %s", dsType, logging.SanitizeError(err))
	}
	return exec, nil
}

func (f *registryFactory) ListTypes() []AdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements AdapterFactory at compile time.
var _ AdapterFactory = (*registryFactory)(nil)
