package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeStatus(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		paid   string
		want   DebitStatus
	}{
		{"nothing paid", "150000", "0", DebitStatusPending},
		{"negative paid", "100", "-1", DebitStatusPending},
		{"partially paid", "150000", "100000", DebitStatusPartial},
		{"just below epsilon boundary", "100", "99.99995", DebitStatusPartial},
		{"within rounding noise", "100", "99.99996", DebitStatusSettled},
		{"exactly paid", "150000", "150000", DebitStatusSettled},
		{"overpaid", "100", "100.5", DebitStatusSettled},
		{"one cent short", "100", "99.99", DebitStatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecomputeStatus(d(tt.amount), d(tt.paid)))
		})
	}
}

func TestRecomputeStatus_IsStable(t *testing.T) {
	amount, paid := d("80"), d("30")
	first := RecomputeStatus(amount, paid)
	assert.Equal(t, first, RecomputeStatus(amount, paid))
	assertDecimal(t, "30", paid)
}

func TestLifecycle_IsSuperseded(t *testing.T) {
	assert.False(t, LifecycleActive.IsSuperseded())
	assert.True(t, LifecycleRefinanced.IsSuperseded())
	assert.True(t, LifecycleVoided.IsSuperseded())
	assert.True(t, LifecycleCancelled.IsSuperseded())
	assert.False(t, Lifecycle("X").IsValid())
}
