package ledger

import (
	"testing"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		raw  string
		want Kind
	}{
		{"DEBIT", KindDebit},
		{"debit", KindDebit},
		{"DEBE", KindDebit},
		{" debe ", KindDebit},
		{"Débito", KindDebit},
		{"CREDIT", KindCredit},
		{"HABER", KindCredit},
		{"haber", KindCredit},
		{"credito", KindCredit},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseKind(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKind_Unknown(t *testing.T) {
	_, err := ParseKind("TRANSFER")
	require.Error(t, err)
	de, ok := shared.IsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidType, de.Code)
}

func TestParseOrigin(t *testing.T) {
	tests := []struct {
		raw  string
		want Origin
	}{
		{"SERVICE", OriginService},
		{"servicio", OriginService},
		{"CUOTA", OriginQuota},
		{"pago", OriginPayment},
		{"ajuste", OriginAdjustment},
		{"Suscripción", OriginSubscription},
		{"reembolso", OriginRefund},
		{"refinanciacion", OriginRefinancing},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseOrigin(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseOrigin("GIFT")
	assert.ErrorIs(t, err, shared.NewDomainError(CodeInvalidType, ""))
}
