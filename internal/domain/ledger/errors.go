package ledger

import "github.com/clubdesk/backend/internal/domain/shared"

// Error codes raised by the ledger
const (
	CodeInvalidType       = "INVALID_TYPE"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInvalidAllocation = "INVALID_ALLOCATION"
	CodeDebitNotFound     = "DEBIT_NOT_FOUND"
	CodeMemberMismatch    = "MEMBER_MISMATCH"
	CodeNotAllocatable    = "NOT_ALLOCATABLE"
	CodeHasPayments       = "HAS_PAYMENTS"
	CodePaymentCredit     = "PAYMENT_CREDIT"
	CodeAlreadySettled    = "ALREADY_SETTLED"
	CodeInvalidPlan       = "INVALID_PLAN"
	CodeRefundMismatch    = "REFUND_MISMATCH"
	CodeNoPriorPayment    = "NO_PRIOR_PAYMENT"
	CodeInvalidRefundType = "INVALID_REFUND_TYPE"
	CodeInvalidCommission = "INVALID_COMMISSION"
)

var (
	ErrInvalidAmount     = shared.NewDomainError(CodeInvalidAmount, "Amount must be positive")
	ErrCommissionSettled = shared.NewDomainError(CodeAlreadySettled, "Payment commission has already been settled")
)
