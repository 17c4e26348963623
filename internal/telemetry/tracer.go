// Package telemetry configures OpenTelemetry tracing for outbound
// transport requests.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Config controls how turn spans are sampled and exported.
type Config struct {
	ServiceName string

	// SampleRatio is the fraction of turns traced. Zero or negative
	// disables tracing entirely.
	SampleRatio float64

	// Pretty indents the exported spans for interactive reading.
	Pretty bool

	// Writer receives exported spans; nil means stdout. Spans must not
	// interleave with streamed chat output, so interactive callers
	// redirect this.
	Writer io.Writer
}

// Init installs the global tracer provider and returns its shutdown
// hook. When tracing is disabled the hook is a no-op.
func Init(cfg Config, logger *slog.Logger) (func(context.Context) error, error) {
	if cfg.SampleRatio <= 0 {
		logger.Debug("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	exportOpts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.Pretty {
		exportOpts = append(exportOpts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(exportOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	sampler := sdktrace.Sampler(sdktrace.AlwaysSample())
	if cfg.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled",
		slog.String("service", cfg.ServiceName),
		slog.Float64("sample_ratio", cfg.SampleRatio),
	)

	return tp.Shutdown, nil
}
