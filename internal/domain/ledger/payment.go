package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAllocation is the amount of a payment that was really applied to a debit
type PaymentAllocation struct {
	DebitID uuid.UUID       `json:"debit_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// PaymentAllocations is a slice of PaymentAllocation that implements GORM Scanner/Valuer for JSONB storage
type PaymentAllocations []PaymentAllocation

// Value implements driver.Valuer interface for GORM to store as JSONB
func (p PaymentAllocations) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (p *PaymentAllocations) Scan(value any) error {
	return scanJSON(value, p, func() { *p = PaymentAllocations{} })
}

// Total sums every allocation
func (p PaymentAllocations) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p {
		total = total.Add(a.Amount)
	}
	return total
}

// DebitIDs returns the allocated debit ids in allocation order
func (p PaymentAllocations) DebitIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p))
	for _, a := range p {
		ids = append(ids, a.DebitID)
	}
	return ids
}

// Payment is money received from a member, optionally through a collector
type Payment struct {
	shared.BaseAggregateRoot
	MemberID          uuid.UUID
	Date              time.Time
	Amount            decimal.Decimal
	Concept           string
	CollectorID       *uuid.UUID
	ServiceID         *uuid.UUID
	CommissionAmount  decimal.Decimal
	CommissionSettled bool
	SettlementID      *uuid.UUID
	CreditMovementID  uuid.UUID
	Allocations       PaymentAllocations
}

// NewPayment creates a payment with no allocations and an unsettled commission
func NewPayment(memberID uuid.UUID, amount decimal.Decimal, concept string, date time.Time, collectorID, serviceID *uuid.UUID) (*Payment, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBER", "Member ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if date.IsZero() {
		date = time.Now()
	}
	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MemberID:          memberID,
		Date:              date,
		Amount:            amount,
		Concept:           strings.TrimSpace(concept),
		CollectorID:       collectorID,
		ServiceID:         serviceID,
		CommissionAmount:  decimal.Zero,
		Allocations:       PaymentAllocations{},
	}, nil
}

// Unallocated returns the part of the payment not yet applied to any debit
func (p *Payment) Unallocated() decimal.Decimal {
	rest := p.Amount.Sub(p.Allocations.Total())
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// AllocatedTo returns the amount applied to one debit
func (p *Payment) AllocatedTo(debitID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		if a.DebitID == debitID {
			total = total.Add(a.Amount)
		}
	}
	return total
}

func (p *Payment) recordAllocation(debitID uuid.UUID, amount decimal.Decimal) {
	for i := range p.Allocations {
		if p.Allocations[i].DebitID == debitID {
			p.Allocations[i].Amount = p.Allocations[i].Amount.Add(amount)
			return
		}
	}
	p.Allocations = append(p.Allocations, PaymentAllocation{DebitID: debitID, Amount: amount})
}

// RemoveAllocation drops the allocation to debitID and returns its amount
func (p *Payment) RemoveAllocation(debitID uuid.UUID) decimal.Decimal {
	kept := make(PaymentAllocations, 0, len(p.Allocations))
	removed := decimal.Zero
	for _, a := range p.Allocations {
		if a.DebitID == debitID {
			removed = removed.Add(a.Amount)
			continue
		}
		kept = append(kept, a)
	}
	p.Allocations = kept
	p.Touch()
	return removed
}

// CoversOnly returns true if every allocation targets one of the given debits
func (p *Payment) CoversOnly(debitIDs map[uuid.UUID]bool) bool {
	for _, a := range p.Allocations {
		if !debitIDs[a.DebitID] {
			return false
		}
	}
	return true
}

// EnsureEditable rejects changes to a payment whose commission was liquidated
func (p *Payment) EnsureEditable() error {
	if p.CommissionSettled {
		return ErrCommissionSettled.WithDetails(map[string]any{
			"payment_id":    p.ID,
			"settlement_id": p.SettlementID,
		})
	}
	return nil
}

// Revise changes the amount and concept of a payment. Allocations must have
// been reversed before the amount shrinks below them.
func (p *Payment) Revise(amount *decimal.Decimal, concept *string) error {
	if amount != nil {
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}
		if amount.LessThan(p.Allocations.Total()) {
			return shared.NewDomainError(CodeInvalidAmount, "Amount cannot be lower than the allocated amount")
		}
		p.Amount = *amount
	}
	if concept != nil {
		p.Concept = strings.TrimSpace(*concept)
	}
	p.Touch()
	return nil
}

// Withdraw reduces the payment amount after part of it was stripped from
// cancelled debits
func (p *Payment) Withdraw(by decimal.Decimal) error {
	next := p.Amount.Sub(by)
	if !next.IsPositive() {
		return ErrInvalidAmount
	}
	p.Amount = next
	p.Touch()
	return nil
}

// SetCommission stores the commission owed to the collector for this payment
func (p *Payment) SetCommission(amount decimal.Decimal) {
	p.CommissionAmount = RoundMoney(amount)
	p.Touch()
}

// MarkCommissionSettled links the payment to the settlement that paid its commission
func (p *Payment) MarkCommissionSettled(settlementID uuid.UUID) error {
	if p.CommissionSettled {
		return ErrCommissionSettled.WithDetails(map[string]any{"payment_id": p.ID})
	}
	p.CommissionSettled = true
	p.SettlementID = &settlementID
	p.Touch()
	return nil
}
