// Package otel sets up tracing exported to Google Cloud Trace.
package otel

import (
	"fmt"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracer registers a global tracer provider sampling ratio of all traces.
// An empty projectID lets the exporter detect the project from the
// environment.
func InitTracer(projectID string, ratio float64) (*sdktrace.TracerProvider, error) {
	var opts []texporter.Option
	if projectID != "" {
		opts = append(opts, texporter.WithProjectID(projectID))
	}

	exporter, err := texporter.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error while creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(ratio)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return tp, nil
}
