package telemetry

import (
	"context"
	"testing"

	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestLedgerMetrics(t *testing.T) (*LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewLedgerMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumInt(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func sumFloat(t *testing.T, data metricdata.Aggregation) float64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[float64])
	require.True(t, ok)
	var total float64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewLedgerMetrics(t *testing.T) {
	t.Run("rejects nil meter", func(t *testing.T) {
		m, err := NewLedgerMetrics(nil)
		assert.Nil(t, m)
		assert.ErrorIs(t, err, ErrMeterNil)
	})

	t.Run("works with noop meter", func(t *testing.T) {
		m, err := NewLedgerMetrics(noop.NewMeterProvider().Meter("test"))
		require.NoError(t, err)
		assert.NotEmpty(t, m.EventTypes())
	})
}

func TestLedgerMetrics_Handle(t *testing.T) {
	ctx := context.Background()
	memberID := uuid.New()
	collectorID := uuid.New()

	t.Run("counts movements and payments", func(t *testing.T) {
		m, reader := newTestLedgerMetrics(t)

		require.NoError(t, m.Handle(ctx, &ledger.MovementRecordedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeMovementRecorded, "Movement", uuid.New(), memberID),
			Kind:            ledger.KindDebit,
			Origin:          ledger.OriginService,
			Amount:          decimal.NewFromInt(100),
		}))
		require.NoError(t, m.Handle(ctx, &ledger.PaymentEvent{
			BaseDomainEvent:  shared.NewBaseDomainEvent(ledger.EventTypePaymentRecorded, "Payment", uuid.New(), memberID),
			CollectorID:      &collectorID,
			Amount:           decimal.NewFromInt(80),
			CommissionAmount: decimal.NewFromInt(8),
		}))
		require.NoError(t, m.Handle(ctx, &ledger.PaymentEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypePaymentDeleted, "Payment", uuid.New(), memberID),
			Amount:          decimal.NewFromInt(80),
		}))

		data := collect(t, reader)
		assert.Equal(t, int64(1), sumInt(t, data["club_ledger_movements_total"]))
		assert.Equal(t, int64(2), sumInt(t, data["club_ledger_payments_total"]))
		assert.InDelta(t, 80.0, sumFloat(t, data["club_ledger_payment_amount_total"]), 0.0001)
		assert.InDelta(t, 8.0, sumFloat(t, data["club_ledger_commission_amount_total"]), 0.0001)
	})

	t.Run("counts cancellations and settlements", func(t *testing.T) {
		m, reader := newTestLedgerMetrics(t)

		require.NoError(t, m.Handle(ctx, &ledger.ReservationCancelledEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeReservationCancelled, "Reservation", uuid.New(), memberID),
			RefundType:      ledger.RefundTypePartial,
			RefundAmount:    decimal.NewFromInt(30),
		}))
		require.NoError(t, m.Handle(ctx, &ledger.CommissionSettledEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeCommissionSettled, "CommissionSettlement", uuid.New(), uuid.Nil),
			CollectorID:     collectorID,
			Amount:          decimal.RequireFromString("12.5"),
		}))

		data := collect(t, reader)
		assert.Equal(t, int64(1), sumInt(t, data["club_ledger_cancellations_total"]))
		assert.InDelta(t, 30.0, sumFloat(t, data["club_ledger_refund_amount_total"]), 0.0001)
		assert.Equal(t, int64(1), sumInt(t, data["club_ledger_settlements_total"]))
		assert.InDelta(t, 12.5, sumFloat(t, data["club_ledger_settled_commission_total"]), 0.0001)
	})
}
