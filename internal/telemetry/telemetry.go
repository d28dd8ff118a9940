// Package telemetry wires the OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const ServiceName = "shop-client"

type Controller struct {
	traceProvider *sdktrace.TracerProvider
}

// Init installs a tracer provider exporting to the Jaeger collector at
// endpoint. An empty endpoint leaves the global no-op provider in place.
func Init(endpoint string) (*Controller, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if endpoint == "" {
		return &Controller{}, nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("jaeger exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)

	return &Controller{traceProvider: tp}, nil
}

func (c *Controller) Enabled() bool { return c.traceProvider != nil }

func (c *Controller) Shutdown(ctx context.Context) error {
	if c.traceProvider == nil {
		return nil
	}
	return c.traceProvider.Shutdown(ctx)
}
