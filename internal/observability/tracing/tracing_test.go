package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace"
)

func TestInitIsNoopWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Init(context.Background(), nil, Config{
		ServiceName:    "taskboard",
		ServiceVersion: "test",
		Environment:    "development",
	})
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned error: %v", err)
	}
}

func TestSamplerSelection(t *testing.T) {
	dev := sampler(Config{Environment: "development", SampleRatio: 0.1})
	if dev.Description() != trace.AlwaysSample().Description() {
		t.Errorf("Expected development to always sample, got %s", dev.Description())
	}

	prod := sampler(Config{Environment: "production", SampleRatio: 0.25})
	want := trace.ParentBased(trace.TraceIDRatioBased(0.25)).Description()
	if prod.Description() != want {
		t.Errorf("Expected %s, got %s", want, prod.Description())
	}

	unset := sampler(Config{Environment: "production"})
	want = trace.ParentBased(trace.TraceIDRatioBased(1)).Description()
	if unset.Description() != want {
		t.Errorf("Expected zero ratio to fall back to full sampling, got %s", unset.Description())
	}
}
