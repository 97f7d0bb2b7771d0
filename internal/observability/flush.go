package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes buffered telemetry before the process exits. The
// aggregation metrics are pull-based and need no flush, so in practice this
// syncs the zap logger. main calls it after the HTTP server has drained
// in-flight weather requests.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if logger != nil {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}
