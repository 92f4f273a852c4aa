package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/flowcanvas/pkg/otelhelper"
)

// SetupTracing installs the OTLP tracer when enabled. The returned function
// is always safe to call.
func SetupTracing(ctx context.Context, logger *slog.Logger, enabled bool, serviceName string) func(context.Context) error {
	noop := func(context.Context) error { return nil }

	if !enabled {
		return noop
	}

	_, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)

		return noop
	}

	return shutdown
}
