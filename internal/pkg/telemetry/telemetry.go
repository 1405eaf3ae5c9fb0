// Package telemetry wires OpenTelemetry tracing and metrics for the storefront.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const instrumentationName = "storefront"

// Setup installs OTLP trace and metric providers when an endpoint is
// configured. Without one the global no-op providers stay in place.
func Setup(ctx context.Context, c *conf.Bootstrap, name, version string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if c == nil || c.Telemetry == nil || c.Telemetry.OtlpEndpoint == "" {
		return noop, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(c.Env),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create resource: %w", err)
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.Telemetry.OtlpEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(c.Telemetry.OtlpEndpoint)}
	if c.Telemetry.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return noop, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)

	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return noop, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// Metrics holds the business counters. A nil *Metrics is a valid no-op.
type Metrics struct {
	verifications metric.Int64Counter
	notifications metric.Int64Counter
	ordersCreated metric.Int64Counter
}

// NewMetrics creates the counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	verifications, err := meter.Int64Counter("payment_verifications_total",
		metric.WithDescription("Payment verification attempts by outcome"))
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("order_notifications_total",
		metric.WithDescription("Order notification emails by recipient and outcome"))
	if err != nil {
		return nil, err
	}
	ordersCreated, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders created by payment method"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		verifications: verifications,
		notifications: notifications,
		ordersCreated: ordersCreated,
	}, nil
}

func (m *Metrics) PaymentVerification(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Notification(ctx context.Context, recipient, outcome string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("recipient", recipient),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) OrderCreated(ctx context.Context, paymentMethod string) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", paymentMethod)))
}
