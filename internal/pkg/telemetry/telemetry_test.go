package telemetry

import (
	"context"
	"testing"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), &conf.Bootstrap{Telemetry: &conf.Telemetry{}}, "storefront", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PaymentVerification(context.Background(), "verified")
	m.Notification(context.Background(), "customer", "sent")
	m.OrderCreated(context.Background(), "cod")
}

func TestMetricsRecordCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	m, err := NewMetrics()
	require.NoError(t, err)
	ctx := context.Background()
	m.PaymentVerification(ctx, "verified")
	m.PaymentVerification(ctx, "signature_mismatch")
	m.OrderCreated(ctx, "razorpay")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					names[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), names["payment_verifications_total"])
	assert.Equal(t, int64(1), names["orders_created_total"])
}
