package tracing

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config identifies the service on every exported span.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SampleRatio applies outside development. Development always samples.
	SampleRatio float64
}

// Init configures an OTLP HTTP exporter if OTEL_EXPORTER_OTLP_ENDPOINT is
// set. Without an endpoint tracing stays a no-op and the returned shutdown
// does nothing.
func Init(ctx context.Context, logger *slog.Logger, cfg Config) (func(context.Context) error, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		if logger != nil {
			logger.Info("tracing disabled: OTEL_EXPORTER_OTLP_ENDPOINT not set")
		}
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(sampler(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if logger != nil {
		logger.Info("tracing initialized",
			slog.String("endpoint", endpoint),
			slog.String("service", cfg.ServiceName),
			slog.String("version", cfg.ServiceVersion),
		)
	}
	return tp.Shutdown, nil
}

// sampler keeps every trace in development and samples a ratio of
// root traces elsewhere, honoring the parent decision on child spans.
func sampler(cfg Config) trace.Sampler {
	if cfg.Environment == "development" {
		return trace.AlwaysSample()
	}
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}
