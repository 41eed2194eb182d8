package telemetry

import (
	"context"
	"errors"

	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrEventType  = attribute.Key("event_type")
	AttrKind       = attribute.Key("kind")
	AttrOrigin     = attribute.Key("origin")
	AttrRefundType = attribute.Key("refund_type")
	AttrCollected  = attribute.Key("collected")
)

// ErrMeterNil is returned when metrics are built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerMetrics turns committed ledger events into business counters.
// It is registered on the event bus as a handler.
type LedgerMetrics struct {
	movements        metric.Int64Counter
	payments         metric.Int64Counter
	paymentAmount    metric.Float64Counter
	commissionAmount metric.Float64Counter
	refinancings     metric.Int64Counter
	cancellations    metric.Int64Counter
	refundAmount     metric.Float64Counter
	settlements      metric.Int64Counter
	settledAmount    metric.Float64Counter
}

// NewLedgerMetrics creates the ledger instruments on the given meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	var err error
	if m.movements, err = meter.Int64Counter("club_ledger_movements_total",
		metric.WithDescription("Ledger movements recorded"), metric.WithUnit("{movements}")); err != nil {
		return nil, err
	}
	if m.payments, err = meter.Int64Counter("club_ledger_payments_total",
		metric.WithDescription("Payment lifecycle events"), metric.WithUnit("{payments}")); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = meter.Float64Counter("club_ledger_payment_amount_total",
		metric.WithDescription("Money received through recorded payments")); err != nil {
		return nil, err
	}
	if m.commissionAmount, err = meter.Float64Counter("club_ledger_commission_amount_total",
		metric.WithDescription("Commission accrued by collectors on recorded payments")); err != nil {
		return nil, err
	}
	if m.refinancings, err = meter.Int64Counter("club_ledger_refinancings_total",
		metric.WithDescription("Refinancing plans created or closed"), metric.WithUnit("{plans}")); err != nil {
		return nil, err
	}
	if m.cancellations, err = meter.Int64Counter("club_ledger_cancellations_total",
		metric.WithDescription("Reservations cancelled"), metric.WithUnit("{reservations}")); err != nil {
		return nil, err
	}
	if m.refundAmount, err = meter.Float64Counter("club_ledger_refund_amount_total",
		metric.WithDescription("Money owed back to members by cancellations")); err != nil {
		return nil, err
	}
	if m.settlements, err = meter.Int64Counter("club_ledger_settlements_total",
		metric.WithDescription("Commission settlements"), metric.WithUnit("{settlements}")); err != nil {
		return nil, err
	}
	if m.settledAmount, err = meter.Float64Counter("club_ledger_settled_commission_total",
		metric.WithDescription("Commission paid out to collectors")); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes subscribes to every ledger event.
func (m *LedgerMetrics) EventTypes() []string {
	return []string{
		ledger.EventTypeMovementRecorded,
		ledger.EventTypePaymentRecorded,
		ledger.EventTypePaymentRevised,
		ledger.EventTypePaymentDeleted,
		ledger.EventTypeRefinancingCreated,
		ledger.EventTypeRefinancingClosed,
		ledger.EventTypeReservationCancelled,
		ledger.EventTypeCommissionSettled,
	}
}

// Handle records one event.
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.MovementRecordedEvent:
		m.movements.Add(ctx, 1, metric.WithAttributes(
			AttrKind.String(string(e.Kind)),
			AttrOrigin.String(string(e.Origin)),
		))
	case *ledger.PaymentEvent:
		attrs := metric.WithAttributes(
			AttrEventType.String(e.EventType()),
			AttrCollected.Bool(e.CollectorID != nil),
		)
		m.payments.Add(ctx, 1, attrs)
		if e.EventType() == ledger.EventTypePaymentRecorded {
			m.paymentAmount.Add(ctx, e.Amount.InexactFloat64(), attrs)
			m.commissionAmount.Add(ctx, e.CommissionAmount.InexactFloat64(), attrs)
		}
	case *ledger.RefinancingEvent:
		m.refinancings.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(e.EventType())))
	case *ledger.ReservationCancelledEvent:
		attrs := metric.WithAttributes(AttrRefundType.String(string(e.RefundType)))
		m.cancellations.Add(ctx, 1, attrs)
		m.refundAmount.Add(ctx, e.RefundAmount.InexactFloat64(), attrs)
	case *ledger.CommissionSettledEvent:
		m.settlements.Add(ctx, 1)
		m.settledAmount.Add(ctx, e.Amount.InexactFloat64())
	}
	return nil
}

var _ shared.EventHandler = (*LedgerMetrics)(nil)
