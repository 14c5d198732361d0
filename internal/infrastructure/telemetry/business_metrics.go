package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/sales"
	"github.com/pos/backend/internal/domain/shared"
)

// ErrMeterNil is returned when the meter is nil.
var ErrMeterNil = errors.New("meter cannot be nil")

// BusinessMetrics counts the till activity the operators watch: sales
// committed, returns processed, stock adjustments, reconciliation flags,
// and cash session churn. It consumes domain events off the bus, so the
// application services stay free of metric plumbing.
type BusinessMetrics struct {
	logger *zap.Logger

	salesCommitted       *Counter
	returnsProcessed     *Counter
	returnsNeedingReview *Counter
	stockAdjustments     *Counter
	stockDepletions      *Counter
	reconciliationFlags  *Counter
	sessionsClosed       *Counter
}

// NewBusinessMetrics creates the metric instruments.
func NewBusinessMetrics(meter metric.Meter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}

	var err error
	if bm.salesCommitted, err = NewCounter(meter,
		"pos_sales_committed_total", "Total number of committed sales", "{sales}"); err != nil {
		return nil, err
	}
	if bm.returnsProcessed, err = NewCounter(meter,
		"pos_returns_processed_total", "Total number of processed returns", "{returns}"); err != nil {
		return nil, err
	}
	if bm.returnsNeedingReview, err = NewCounter(meter,
		"pos_returns_approval_required_total", "Returns that required manager approval", "{returns}"); err != nil {
		return nil, err
	}
	if bm.stockAdjustments, err = NewCounter(meter,
		"pos_stock_adjustments_total", "Total number of stock ledger adjustments", "{adjustments}"); err != nil {
		return nil, err
	}
	if bm.stockDepletions, err = NewCounter(meter,
		"pos_stock_depletions_total", "Stock cells that hit zero", "{cells}"); err != nil {
		return nil, err
	}
	if bm.reconciliationFlags, err = NewCounter(meter,
		"pos_reconciliation_flags_total", "Sales flagged for manual reconciliation", "{sales}"); err != nil {
		return nil, err
	}
	if bm.sessionsClosed, err = NewCounter(meter,
		"pos_cash_sessions_closed_total", "Total number of closed cash sessions", "{sessions}"); err != nil {
		return nil, err
	}

	return bm, nil
}

// Handle maps a domain event onto its counter.
func (bm *BusinessMetrics) Handle(ctx context.Context, evt shared.DomainEvent) error {
	attrs := []attribute.KeyValue{
		attribute.String("tenant_id", evt.TenantID().String()),
	}

	switch evt.EventType() {
	case sales.EventTypeSaleCommitted:
		bm.salesCommitted.Inc(ctx, attrs...)
	case sales.EventTypeReturnProcessed:
		bm.returnsProcessed.Inc(ctx, attrs...)
	case sales.EventTypeReturnApprovalRequired:
		bm.returnsNeedingReview.Inc(ctx, attrs...)
	case sales.EventTypeReconciliationNeeded:
		bm.reconciliationFlags.Inc(ctx, attrs...)
	case inventory.EventTypeStockAdjusted:
		bm.stockAdjustments.Inc(ctx, attrs...)
	case inventory.EventTypeStockDepleted:
		bm.stockDepletions.Inc(ctx, attrs...)
	case cashsession.EventTypeSessionClosed:
		bm.sessionsClosed.Inc(ctx, attrs...)
	}
	return nil
}

// EventTypes returns the event types the metrics consume.
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		sales.EventTypeSaleCommitted,
		sales.EventTypeReturnProcessed,
		sales.EventTypeReturnApprovalRequired,
		sales.EventTypeReconciliationNeeded,
		inventory.EventTypeStockAdjusted,
		inventory.EventTypeStockDepleted,
		cashsession.EventTypeSessionClosed,
	}
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
