package ledger

import (
	"fmt"
	"strings"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundType is the refund policy applied when a reservation is cancelled
type RefundType string

const (
	RefundTypeNone    RefundType = "NONE"
	RefundTypeFull    RefundType = "FULL"
	RefundTypePartial RefundType = "PARTIAL"
)

// ParseRefundType normalizes a refund policy name
func ParseRefundType(raw string) (RefundType, error) {
	t := RefundType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case RefundTypeNone, RefundTypeFull, RefundTypePartial:
		return t, nil
	}
	return "", shared.NewDomainError(CodeInvalidRefundType, fmt.Sprintf("Unknown refund type %q", raw))
}

// CancellationPlan is the money outcome of a cancellation
type CancellationPlan struct {
	RefundType    RefundType
	TotalPaid     decimal.Decimal
	RefundAmount  decimal.Decimal
	PenaltyAmount decimal.Decimal
}

// PlanCancellation decides the refund and penalty for a reservation given what
// was actually paid on it. NONE keeps everything as penalty, FULL refunds
// everything, PARTIAL requires refund + penalty == totalPaid.
func PlanCancellation(refundType RefundType, totalPaid decimal.Decimal, refundAmount, penaltyAmount *decimal.Decimal) (CancellationPlan, error) {
	plan := CancellationPlan{
		RefundType:    refundType,
		TotalPaid:     totalPaid,
		RefundAmount:  decimal.Zero,
		PenaltyAmount: decimal.Zero,
	}
	switch refundType {
	case RefundTypeNone:
		plan.PenaltyAmount = totalPaid
	case RefundTypeFull:
		plan.RefundAmount = totalPaid
	case RefundTypePartial:
		if !totalPaid.IsPositive() {
			return plan, shared.NewDomainError(CodeNoPriorPayment, "Partial refund requires a prior payment")
		}
		if refundAmount != nil {
			plan.RefundAmount = *refundAmount
		}
		if penaltyAmount != nil {
			plan.PenaltyAmount = *penaltyAmount
		}
		if plan.RefundAmount.IsNegative() || plan.PenaltyAmount.IsNegative() {
			return plan, shared.NewDomainError(CodeRefundMismatch, "Refund and penalty amounts cannot be negative")
		}
		if !NearlyEqual(plan.RefundAmount.Add(plan.PenaltyAmount), totalPaid) {
			return plan, shared.NewDomainError(CodeRefundMismatch,
				fmt.Sprintf("Refund %s plus penalty %s must equal the amount paid %s",
					plan.RefundAmount, plan.PenaltyAmount, totalPaid)).
				WithDetails(map[string]any{"total_paid": totalPaid.String()})
		}
	default:
		return plan, shared.NewDomainError(CodeInvalidRefundType, fmt.Sprintf("Unknown refund type %q", refundType))
	}
	return plan, nil
}

// CreditNoteShares splits the credit note evenly across the original debits,
// the last debit taking the rounding remainder
func CreditNoteShares(faceAmount decimal.Decimal, debits []*Movement) map[uuid.UUID]decimal.Decimal {
	shares := make(map[uuid.UUID]decimal.Decimal, len(debits))
	if len(debits) == 0 {
		return shares
	}
	parts := SplitEvenly(faceAmount, len(debits))
	for i, d := range debits {
		shares[d.ID] = parts[i]
	}
	return shares
}

// TotalPaidOn sums the allocations that payment credits hold against the given debits
func TotalPaidOn(credits []*Movement, debitIDs map[uuid.UUID]bool) decimal.Decimal {
	total := decimal.Zero
	for _, c := range credits {
		if !c.IsCredit() || c.Origin != OriginPayment {
			continue
		}
		for _, a := range c.Allocations {
			if debitIDs[a.CounterpartID] {
				total = total.Add(a.Amount)
			}
		}
	}
	return total
}
