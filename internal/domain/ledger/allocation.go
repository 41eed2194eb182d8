package ledger

import (
	"fmt"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationRequest asks for part of a payment to be applied to a debit
type AllocationRequest struct {
	DebitID uuid.UUID
	Amount  decimal.Decimal
}

// MergeRequests folds repeated debit ids into one request, keeping first-seen order
func MergeRequests(reqs []AllocationRequest) []AllocationRequest {
	merged := make([]AllocationRequest, 0, len(reqs))
	index := make(map[uuid.UUID]int, len(reqs))
	for _, r := range reqs {
		if i, ok := index[r.DebitID]; ok {
			merged[i].Amount = merged[i].Amount.Add(r.Amount)
			continue
		}
		index[r.DebitID] = len(merged)
		merged = append(merged, r)
	}
	return merged
}

// ValidateAllocations checks every request against the loaded debits without
// mutating anything.
func ValidateAllocations(memberID uuid.UUID, debits map[uuid.UUID]*Movement, reqs []AllocationRequest) error {
	for _, r := range reqs {
		if r.DebitID == uuid.Nil {
			return shared.NewDomainError(CodeInvalidAllocation, "Allocation debit ID cannot be empty")
		}
		if r.Amount.IsNegative() {
			return shared.NewDomainError(CodeInvalidAllocation,
				fmt.Sprintf("Allocation amount for debit %s cannot be negative", r.DebitID))
		}
		debit, ok := debits[r.DebitID]
		if !ok || debit == nil {
			return shared.NewDomainError(CodeDebitNotFound, fmt.Sprintf("Debit %s not found", r.DebitID))
		}
		if err := debit.CheckAllocatable(memberID); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAllocations runs the waterfall: each request is clamped to the debit's
// pending balance and to what is left of the payment, zero applications are
// skipped, and every applied amount is recorded on the debit, mirrored on the
// credit and kept on the payment. It returns the debits that changed.
func ApplyAllocations(p *Payment, credit *Movement, debits map[uuid.UUID]*Movement, reqs []AllocationRequest) ([]*Movement, error) {
	reqs = MergeRequests(reqs)
	if err := ValidateAllocations(p.MemberID, debits, reqs); err != nil {
		return nil, err
	}

	touched := make([]*Movement, 0, len(reqs))
	for _, r := range reqs {
		debit := debits[r.DebitID]
		apply := decimal.Min(r.Amount, debit.PendingBalance(), p.Unallocated())
		if apply.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if err := debit.ApplyPayment(p.ID, apply); err != nil {
			return nil, err
		}
		if err := credit.MirrorAllocation(debit.ID, apply); err != nil {
			return nil, err
		}
		p.recordAllocation(debit.ID, apply)
		touched = append(touched, debit)
	}
	p.Touch()
	return touched, nil
}

// ReverseAllocations undoes every allocation the payment holds: each debit
// loses the payment's share, the credit mirror is emptied and the payment
// allocation list is cleared. Debits missing from the map are skipped.
func ReverseAllocations(p *Payment, credit *Movement, debits map[uuid.UUID]*Movement) []*Movement {
	touched := make([]*Movement, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		debit, ok := debits[a.DebitID]
		if !ok || debit == nil {
			continue
		}
		debit.RemoveAllocation(p.ID)
		touched = append(touched, debit)
	}
	if credit != nil {
		credit.Allocations = Allocations{}
		credit.Touch()
	}
	p.Allocations = PaymentAllocations{}
	p.Touch()
	return touched
}
