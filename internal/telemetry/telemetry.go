// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const (
	TracingNone   = "none"
	TracingStdout = "stdout"

	serviceName = "acto"
)

// ErrUnknownExporter is returned for an unrecognised tracing mode.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Setup installs a tracer provider for the given mode and returns its
// shutdown function. Mode "none" leaves the global no-op provider in place.
// Spans exported to stdout are written to w.
func Setup(mode, version string, w io.Writer) (ShutdownFunc, error) {
	switch mode {
	case "", TracingNone:
		return func(context.Context) error { return nil }, nil
	case TracingStdout:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, mode)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
