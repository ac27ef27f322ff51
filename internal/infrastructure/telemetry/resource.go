// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling for the invoicing backend. A disabled signal falls
// back to the global no-op provider, so callers never check for it.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// DefaultServiceVersion is reported when no build version is injected
const DefaultServiceVersion = "dev"

// shutdownTimeout bounds the final flush of each provider
const shutdownTimeout = 10 * time.Second

// Collector is the OTLP gRPC destination shared by traces, metrics and logs,
// plus the service identity they report.
type Collector struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
}

// resource identifies this process. All three signals share it so the
// traces, metrics and logs of one instance line up.
func (c Collector) resource() (*resource.Resource, error) {
	return newResource(c.ServiceName, c.ServiceVersion)
}

func newResource(serviceName, serviceVersion string) (*resource.Resource, error) {
	if serviceVersion == "" {
		serviceVersion = DefaultServiceVersion
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	}
	if host, err := os.Hostname(); err == nil {
		attrs = append(attrs, semconv.HostName(host))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

// stopWithin runs a provider shutdown with its final flush bounded by
// shutdownTimeout
func stopWithin(ctx context.Context, signal string, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	return nil
}
