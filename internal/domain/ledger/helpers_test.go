package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(expected).Equal(actual), append([]any{"expected %s, got %s", expected, actual.String()}, msgAndArgs...)...)
}

func newTestDebit(t *testing.T, memberID uuid.UUID, amount string) *Movement {
	t.Helper()
	debit, err := NewDebit(memberID, OriginService, d(amount), "Court rental", time.Now(), DebitOptions{})
	require.NoError(t, err)
	return debit
}

func newTestPayment(t *testing.T, memberID uuid.UUID, amount string) (*Payment, *Movement) {
	t.Helper()
	p, err := NewPayment(memberID, d(amount), "Payment", time.Now(), nil, nil)
	require.NoError(t, err)
	credit, err := NewCredit(memberID, OriginPayment, p.Amount, p.Concept, p.Date, &p.ID)
	require.NoError(t, err)
	p.CreditMovementID = credit.ID
	return p, credit
}

var zeroTime time.Time
