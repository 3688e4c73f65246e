// Package telemetry wires OpenTelemetry tracing for the forecasting core.
// When disabled, the global tracer provider stays the no-op default and the
// selector's spans cost nothing.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
)

// TracerName is the instrumentation scope used across the module.
const TracerName = "github.com/vedanthundare/gurukul-forecast"

// Init installs a tracer provider according to the configuration and returns
// a shutdown function that flushes pending spans. With telemetry disabled the
// returned shutdown is a no-op.
func Init(cfg config.TelemetryConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
