package ledger

import "github.com/shopspring/decimal"

// DebitStatus is the payment progress of a debit
type DebitStatus string

const (
	DebitStatusPending DebitStatus = "PENDING"
	DebitStatusPartial DebitStatus = "PARTIAL"
	DebitStatusSettled DebitStatus = "SETTLED"
)

// IsValid checks if the status is a valid DebitStatus
func (s DebitStatus) IsValid() bool {
	switch s {
	case DebitStatusPending, DebitStatusPartial, DebitStatusSettled:
		return true
	}
	return false
}

func (s DebitStatus) String() string {
	return string(s)
}

// Lifecycle tracks whether a debit is still live or has been superseded.
// It is independent from DebitStatus: a REFINANCED debit keeps whatever
// progress it had when it was restructured.
type Lifecycle string

const (
	LifecycleActive     Lifecycle = "ACTIVE"
	LifecycleCancelled  Lifecycle = "CANCELLED"
	LifecycleRefinanced Lifecycle = "REFINANCED"
	LifecycleVoided     Lifecycle = "VOIDED"
)

// IsValid checks if the lifecycle is a valid Lifecycle
func (l Lifecycle) IsValid() bool {
	switch l {
	case LifecycleActive, LifecycleCancelled, LifecycleRefinanced, LifecycleVoided:
		return true
	}
	return false
}

// IsSuperseded returns true if the debit no longer accepts allocations
func (l Lifecycle) IsSuperseded() bool {
	return l != LifecycleActive
}

func (l Lifecycle) String() string {
	return string(l)
}

// RecomputeStatus derives a debit's progress from its amount and paid amount.
// A debit is SETTLED once its outstanding balance rounds to zero at Epsilon
// precision.
func RecomputeStatus(amount, paid decimal.Decimal) DebitStatus {
	if paid.LessThanOrEqual(decimal.Zero) {
		return DebitStatusPending
	}
	outstanding := amount.Sub(paid).Round(-Epsilon.Exponent())
	if outstanding.LessThanOrEqual(decimal.Zero) {
		return DebitStatusSettled
	}
	return DebitStatusPartial
}
