// Package otel wires the optional OTLP trace pipeline shared by the
// alignment server and the MCP process.
package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// EnvEndpoint names the OTLP-HTTP collector environment variable.
	EnvEndpoint = "CONCORD_OTEL_ENDPOINT"
	// EnvEnabled names the tracing kill-switch environment variable.
	EnvEnabled = "CONCORD_OTEL_ENABLED"
)

// Setup initialises tracing for the named service and returns the
// shutdown function that flushes pending spans; callers defer it.
//
// Tracing is opt-in. Without an endpoint, or with the kill switch set
// to "false", Setup registers nothing and shutdown is a no-op, so a
// bare deployment pays no tracing cost.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	endpoint, ok := tracingEndpoint()
	if !ok {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// tracingEndpoint resolves the collector endpoint, honoring the kill
// switch over a configured endpoint.
func tracingEndpoint() (string, bool) {
	if strings.EqualFold(os.Getenv(EnvEnabled), "false") {
		return "", false
	}
	endpoint := strings.TrimSpace(os.Getenv(EnvEndpoint))
	if endpoint == "" {
		return "", false
	}
	return endpoint, true
}
