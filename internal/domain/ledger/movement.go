package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation links a movement to its counterpart: on a debit the counterpart
// is the payment, on a credit it is the debit.
type Allocation struct {
	CounterpartID uuid.UUID       `json:"counterpart_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// Allocations is a slice of Allocation that implements GORM Scanner/Valuer for JSONB storage
type Allocations []Allocation

// Value implements driver.Valuer interface for GORM to store as JSONB
func (a Allocations) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (a *Allocations) Scan(value any) error {
	return scanJSON(value, a, func() { *a = Allocations{} })
}

// Total sums every allocation
func (a Allocations) Total() decimal.Decimal {
	total := decimal.Zero
	for _, al := range a {
		total = total.Add(al.Amount)
	}
	return total
}

// AmountFor sums the allocations to one counterpart
func (a Allocations) AmountFor(counterpartID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, al := range a {
		if al.CounterpartID == counterpartID {
			total = total.Add(al.Amount)
		}
	}
	return total
}

// References returns true if any allocation points at counterpartID
func (a Allocations) References(counterpartID uuid.UUID) bool {
	for _, al := range a {
		if al.CounterpartID == counterpartID {
			return true
		}
	}
	return false
}

func (a Allocations) add(counterpartID uuid.UUID, amount decimal.Decimal) Allocations {
	for i := range a {
		if a[i].CounterpartID == counterpartID {
			a[i].Amount = a[i].Amount.Add(amount)
			return a
		}
	}
	return append(a, Allocation{CounterpartID: counterpartID, Amount: amount})
}

func (a Allocations) without(counterpartID uuid.UUID) (Allocations, decimal.Decimal) {
	kept := make(Allocations, 0, len(a))
	removed := decimal.Zero
	for _, al := range a {
		if al.CounterpartID == counterpartID {
			removed = removed.Add(al.Amount)
			continue
		}
		kept = append(kept, al)
	}
	return kept, removed
}

// Debt is the debit-only part of a movement
type Debt struct {
	DueDate           *time.Time
	ServiceID         *uuid.UUID
	PaidAmount        decimal.Decimal
	Status            DebitStatus
	Lifecycle         Lifecycle
	RefinancingID     *uuid.UUID
	InstallmentNumber int
	CancellationRef   *uuid.UUID
}

// Movement is a ledger entry owned by exactly one member.
// Debits carry a Debt part, credits never do.
type Movement struct {
	shared.BaseAggregateRoot
	MemberID    uuid.UUID
	Date        time.Time
	Concept     string
	Kind        Kind
	Amount      decimal.Decimal
	Origin      Origin
	ReferenceID *uuid.UUID
	Allocations Allocations
	Debt        *Debt
}

// DebitOptions carries the optional fields of a new debit
type DebitOptions struct {
	DueDate     *time.Time
	ServiceID   *uuid.UUID
	ReferenceID *uuid.UUID
}

func newMovement(memberID uuid.UUID, kind Kind, origin Origin, amount decimal.Decimal, concept string, date time.Time) (*Movement, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBER", "Member ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !origin.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidType, fmt.Sprintf("Unknown movement origin %q", origin))
	}
	if date.IsZero() {
		date = time.Now()
	}
	return &Movement{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MemberID:          memberID,
		Date:              date,
		Concept:           concept,
		Kind:              kind,
		Amount:            amount,
		Origin:            origin,
		Allocations:       Allocations{},
	}, nil
}

// NewDebit creates a PENDING, ACTIVE debit
func NewDebit(memberID uuid.UUID, origin Origin, amount decimal.Decimal, concept string, date time.Time, opts DebitOptions) (*Movement, error) {
	m, err := newMovement(memberID, KindDebit, origin, amount, concept, date)
	if err != nil {
		return nil, err
	}
	m.ReferenceID = opts.ReferenceID
	m.Debt = &Debt{
		DueDate:    opts.DueDate,
		ServiceID:  opts.ServiceID,
		PaidAmount: decimal.Zero,
		Status:     DebitStatusPending,
		Lifecycle:  LifecycleActive,
	}
	m.AddDomainEvent(NewMovementRecordedEvent(m))
	return m, nil
}

// NewCredit creates a credit movement
func NewCredit(memberID uuid.UUID, origin Origin, amount decimal.Decimal, concept string, date time.Time, referenceID *uuid.UUID) (*Movement, error) {
	m, err := newMovement(memberID, KindCredit, origin, amount, concept, date)
	if err != nil {
		return nil, err
	}
	m.ReferenceID = referenceID
	m.AddDomainEvent(NewMovementRecordedEvent(m))
	return m, nil
}

// IsDebit returns true for debit movements
func (m *Movement) IsDebit() bool {
	return m.Kind == KindDebit && m.Debt != nil
}

// IsCredit returns true for credit movements
func (m *Movement) IsCredit() bool {
	return m.Kind == KindCredit
}

// PaidAmount returns the debit's paid amount, zero for credits
func (m *Movement) PaidAmount() decimal.Decimal {
	if !m.IsDebit() {
		return decimal.Zero
	}
	return m.Debt.PaidAmount
}

// PendingBalance returns what is still owed on a debit, or the unallocated
// part of a credit.
func (m *Movement) PendingBalance() decimal.Decimal {
	var pending decimal.Decimal
	if m.IsDebit() {
		pending = m.Amount.Sub(m.Debt.PaidAmount)
	} else {
		pending = m.Amount.Sub(m.Allocations.Total())
	}
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// EffectiveStatus collapses progress and lifecycle into the single status
// string older clients expect. Credits have no status.
func (m *Movement) EffectiveStatus() string {
	if !m.IsDebit() {
		return ""
	}
	if m.Debt.Lifecycle.IsSuperseded() {
		return m.Debt.Lifecycle.String()
	}
	return m.Debt.Status.String()
}

// CheckAllocatable verifies that a payment of memberID may allocate to this movement
func (m *Movement) CheckAllocatable(memberID uuid.UUID) error {
	if m.MemberID != memberID {
		return shared.NewDomainError(CodeMemberMismatch,
			fmt.Sprintf("Debit %s belongs to a different member", m.ID))
	}
	if !m.IsDebit() {
		return shared.NewDomainError(CodeNotAllocatable,
			fmt.Sprintf("Movement %s is not a debit", m.ID))
	}
	if m.Debt.Lifecycle.IsSuperseded() {
		return shared.NewDomainError(CodeNotAllocatable,
			fmt.Sprintf("Debit %s is %s and no longer accepts payments", m.ID, m.Debt.Lifecycle))
	}
	return nil
}

// ApplyPayment adds amount from paymentID to the debit and recomputes its status
func (m *Movement) ApplyPayment(paymentID uuid.UUID, amount decimal.Decimal) error {
	if !m.IsDebit() {
		return shared.NewDomainError(CodeNotAllocatable, "Payments can only be applied to debits")
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(m.PendingBalance().Add(Epsilon)) {
		return shared.NewDomainError(CodeInvalidAllocation,
			fmt.Sprintf("Allocation %s exceeds pending balance %s", amount, m.PendingBalance()))
	}
	m.Debt.PaidAmount = m.Debt.PaidAmount.Add(amount)
	m.Allocations = m.Allocations.add(paymentID, amount)
	m.recompute()
	return nil
}

// MirrorAllocation records on a credit that amount went to debitID
func (m *Movement) MirrorAllocation(debitID uuid.UUID, amount decimal.Decimal) error {
	if !m.IsCredit() {
		return shared.NewDomainError(CodeInvalidAllocation, "Only credits mirror allocations")
	}
	m.Allocations = m.Allocations.add(debitID, amount)
	m.Touch()
	return nil
}

// RemoveAllocation strips every allocation to counterpartID and returns the
// amount removed. On an active or refinanced debit the paid amount is
// decremented; voided debits stay fully resolved.
func (m *Movement) RemoveAllocation(counterpartID uuid.UUID) decimal.Decimal {
	var removed decimal.Decimal
	m.Allocations, removed = m.Allocations.without(counterpartID)
	if removed.IsZero() {
		return removed
	}
	if m.IsDebit() && m.Debt.Lifecycle != LifecycleVoided {
		paid := m.Debt.PaidAmount.Sub(removed)
		if paid.IsNegative() {
			paid = decimal.Zero
		}
		m.Debt.PaidAmount = paid
		m.recompute()
	} else {
		m.Touch()
	}
	return removed
}

// ReduceAmount lowers a credit's amount, used when part of a payment is
// withdrawn.
func (m *Movement) ReduceAmount(by decimal.Decimal) error {
	next := m.Amount.Sub(by)
	if !next.IsPositive() {
		return ErrInvalidAmount
	}
	m.Amount = next
	m.Touch()
	return nil
}

// SetAmount replaces a credit's amount. The new amount must still cover its allocations.
func (m *Movement) SetAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if m.IsDebit() && amount.LessThan(m.Debt.PaidAmount) {
		return shared.NewDomainError(CodeInvalidAmount, "Amount cannot be lower than the paid amount")
	}
	if m.IsCredit() && amount.LessThan(m.Allocations.Total()) {
		return shared.NewDomainError(CodeInvalidAmount, "Amount cannot be lower than the allocated amount")
	}
	m.Amount = amount
	if m.IsDebit() {
		m.recompute()
	} else {
		m.Touch()
	}
	return nil
}

// UpdateDetails patches the descriptive fields of a movement
func (m *Movement) UpdateDetails(concept *string, dueDate *time.Time) {
	if concept != nil {
		m.Concept = *concept
	}
	if dueDate != nil && m.IsDebit() {
		d := *dueDate
		m.Debt.DueDate = &d
	}
	m.Touch()
	m.IncrementVersion()
}

// MarkRefinanced supersedes an active, unsettled debit with a refinancing plan
func (m *Movement) MarkRefinanced(refinancingID uuid.UUID) error {
	if !m.IsDebit() {
		return shared.NewDomainError(CodeInvalidPlan, fmt.Sprintf("Movement %s is not a debit", m.ID))
	}
	if m.Debt.Lifecycle.IsSuperseded() {
		return shared.NewDomainError(CodeInvalidPlan,
			fmt.Sprintf("Debit %s is already %s", m.ID, m.Debt.Lifecycle))
	}
	if m.Debt.Status == DebitStatusSettled {
		return shared.NewDomainError(CodeInvalidPlan, fmt.Sprintf("Debit %s is already settled", m.ID))
	}
	m.Debt.Lifecycle = LifecycleRefinanced
	m.Debt.RefinancingID = &refinancingID
	m.Touch()
	m.IncrementVersion()
	return nil
}

// Void neutralizes a debit with a cancellation credit note: the debit reads
// as fully resolved, its allocations are replaced by the credit note share and
// the credit note is stamped as the cancellation reference.
func (m *Movement) Void(creditNoteID uuid.UUID, share decimal.Decimal) error {
	if !m.IsDebit() {
		return shared.NewDomainError(CodeNotAllocatable, fmt.Sprintf("Movement %s is not a debit", m.ID))
	}
	m.Debt.Lifecycle = LifecycleVoided
	m.Debt.PaidAmount = m.Amount
	m.Debt.Status = DebitStatusSettled
	m.Debt.CancellationRef = &creditNoteID
	m.Allocations = Allocations{{CounterpartID: creditNoteID, Amount: share}}
	m.Touch()
	m.IncrementVersion()
	return nil
}

// MarkSettled forces a debit to fully paid without allocations, used for
// penalties the club already holds the money for.
func (m *Movement) MarkSettled() {
	if !m.IsDebit() {
		return
	}
	m.Debt.PaidAmount = m.Amount
	m.Debt.Status = DebitStatusSettled
	m.Touch()
}

func (m *Movement) recompute() {
	m.Debt.Status = RecomputeStatus(m.Amount, m.Debt.PaidAmount)
	m.Touch()
}

func scanJSON(value any, dest any, empty func()) error {
	if value == nil {
		empty()
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan JSON column: unsupported type")
	}
	if len(bytes) == 0 {
		empty()
		return nil
	}
	return json.Unmarshal(bytes, dest)
}
