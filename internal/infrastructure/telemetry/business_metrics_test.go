package telemetry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/sales"
	"github.com/pos/backend/internal/domain/shared"
)

type metricsEvent struct {
	shared.BaseDomainEvent
}

func newMetricsEvent(eventType string) *metricsEvent {
	return &metricsEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Sale", uuid.New(), uuid.New()),
	}
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s should be an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestBusinessMetrics_CountsByEventType(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(provider.Meter("test"), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bm.Handle(ctx, newMetricsEvent(sales.EventTypeSaleCommitted)))
	require.NoError(t, bm.Handle(ctx, newMetricsEvent(sales.EventTypeSaleCommitted)))
	require.NoError(t, bm.Handle(ctx, newMetricsEvent(sales.EventTypeReturnProcessed)))
	require.NoError(t, bm.Handle(ctx, newMetricsEvent(inventory.EventTypeStockAdjusted)))
	require.NoError(t, bm.Handle(ctx, newMetricsEvent(sales.EventTypeReconciliationNeeded)))
	require.NoError(t, bm.Handle(ctx, newMetricsEvent(cashsession.EventTypeSessionClosed)))

	assert.EqualValues(t, 2, collectSum(t, reader, "pos_sales_committed_total"))
	assert.EqualValues(t, 1, collectSum(t, reader, "pos_returns_processed_total"))
	assert.EqualValues(t, 1, collectSum(t, reader, "pos_stock_adjustments_total"))
	assert.EqualValues(t, 1, collectSum(t, reader, "pos_reconciliation_flags_total"))
	assert.EqualValues(t, 1, collectSum(t, reader, "pos_cash_sessions_closed_total"))
}

func TestBusinessMetrics_IgnoresUnrelatedEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(provider.Meter("test"), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, bm.Handle(context.Background(), newMetricsEvent("catalog.variant.created")))

	assert.EqualValues(t, 0, collectSum(t, reader, "pos_sales_committed_total"))
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	_, err := NewBusinessMetrics(nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrMeterNil)
}
