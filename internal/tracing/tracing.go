// Package tracing sets up the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rickgao/mse-history/internal/config"
	"github.com/rickgao/mse-history/internal/version"
)

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// Setup installs a global tracer provider for cfg. When tracing is disabled
// the global provider is a no-op and shutdown does nothing.
func Setup(cfg config.TracingConfig, logger *slog.Logger) (trace.TracerProvider, ShutdownFunc, error) {
	return setup(cfg, os.Stderr, logger)
}

func setup(cfg config.TracingConfig, w io.Writer, logger *slog.Logger) (trace.TracerProvider, ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("create trace exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version.Version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing initialized", "exporter", cfg.Exporter)

	return tp, tp.Shutdown, nil
}
