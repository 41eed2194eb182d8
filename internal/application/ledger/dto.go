package ledger

import (
	"time"

	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationInput is a requested allocation of a payment to a debit
type AllocationInput struct {
	DebitID uuid.UUID       `json:"debit_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

func toRequests(in []AllocationInput) []ledger.AllocationRequest {
	out := make([]ledger.AllocationRequest, 0, len(in))
	for _, a := range in {
		out = append(out, ledger.AllocationRequest{DebitID: a.DebitID, Amount: a.Amount})
	}
	return out
}

// AllocationResponse is an allocation seen from a movement
type AllocationResponse struct {
	CounterpartID uuid.UUID       `json:"counterpart_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// MovementResponse represents a ledger movement in API responses
type MovementResponse struct {
	ID                uuid.UUID            `json:"id"`
	MemberID          uuid.UUID            `json:"member_id"`
	Date              time.Time            `json:"date"`
	Concept           string               `json:"concept"`
	Kind              string               `json:"kind"`
	Amount            decimal.Decimal      `json:"amount"`
	Origin            string               `json:"origin"`
	ReferenceID       *uuid.UUID           `json:"reference_id,omitempty"`
	Allocations       []AllocationResponse `json:"allocations"`
	DueDate           *time.Time           `json:"due_date,omitempty"`
	ServiceID         *uuid.UUID           `json:"service_id,omitempty"`
	PaidAmount        *decimal.Decimal     `json:"paid_amount,omitempty"`
	PendingAmount     decimal.Decimal      `json:"pending_amount"`
	Status            string               `json:"status,omitempty"`
	ProgressStatus    string               `json:"progress_status,omitempty"`
	Lifecycle         string               `json:"lifecycle,omitempty"`
	RefinancingID     *uuid.UUID           `json:"refinancing_id,omitempty"`
	InstallmentNumber int                  `json:"installment_number,omitempty"`
	CancellationRef   *uuid.UUID           `json:"cancellation_ref,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	Version           int                  `json:"version"`
}

// ToMovementResponse converts a movement to its API shape
func ToMovementResponse(m *ledger.Movement) MovementResponse {
	resp := MovementResponse{
		ID:            m.ID,
		MemberID:      m.MemberID,
		Date:          m.Date,
		Concept:       m.Concept,
		Kind:          m.Kind.String(),
		Amount:        m.Amount,
		Origin:        m.Origin.String(),
		ReferenceID:   m.ReferenceID,
		Allocations:   make([]AllocationResponse, 0, len(m.Allocations)),
		PendingAmount: m.PendingBalance(),
		Status:        m.EffectiveStatus(),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Version:       m.Version,
	}
	for _, a := range m.Allocations {
		resp.Allocations = append(resp.Allocations, AllocationResponse{CounterpartID: a.CounterpartID, Amount: a.Amount})
	}
	if m.IsDebit() {
		paid := m.Debt.PaidAmount
		resp.PaidAmount = &paid
		resp.DueDate = m.Debt.DueDate
		resp.ServiceID = m.Debt.ServiceID
		resp.ProgressStatus = m.Debt.Status.String()
		resp.Lifecycle = m.Debt.Lifecycle.String()
		resp.RefinancingID = m.Debt.RefinancingID
		resp.InstallmentNumber = m.Debt.InstallmentNumber
		resp.CancellationRef = m.Debt.CancellationRef
	}
	return resp
}

// PaymentAllocationResponse is an applied allocation of a payment
type PaymentAllocationResponse struct {
	DebitID uuid.UUID       `json:"debit_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                uuid.UUID                   `json:"id"`
	MemberID          uuid.UUID                   `json:"member_id"`
	Date              time.Time                   `json:"date"`
	Amount            decimal.Decimal             `json:"amount"`
	Concept           string                      `json:"concept"`
	CollectorID       *uuid.UUID                  `json:"collector_id,omitempty"`
	ServiceID         *uuid.UUID                  `json:"service_id,omitempty"`
	CommissionAmount  decimal.Decimal             `json:"commission_amount"`
	CommissionSettled bool                        `json:"commission_settled"`
	SettlementID      *uuid.UUID                  `json:"settlement_id,omitempty"`
	CreditMovementID  uuid.UUID                   `json:"credit_movement_id"`
	Allocations       []PaymentAllocationResponse `json:"allocations"`
	AllocatedAmount   decimal.Decimal             `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal             `json:"unallocated_amount"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
	Version           int                         `json:"version"`
}

// ToPaymentResponse converts a payment to its API shape
func ToPaymentResponse(p *ledger.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:                p.ID,
		MemberID:          p.MemberID,
		Date:              p.Date,
		Amount:            p.Amount,
		Concept:           p.Concept,
		CollectorID:       p.CollectorID,
		ServiceID:         p.ServiceID,
		CommissionAmount:  p.CommissionAmount,
		CommissionSettled: p.CommissionSettled,
		SettlementID:      p.SettlementID,
		CreditMovementID:  p.CreditMovementID,
		Allocations:       make([]PaymentAllocationResponse, 0, len(p.Allocations)),
		AllocatedAmount:   p.Allocations.Total(),
		UnallocatedAmount: p.Unallocated(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
	for _, a := range p.Allocations {
		resp.Allocations = append(resp.Allocations, PaymentAllocationResponse{DebitID: a.DebitID, Amount: a.Amount})
	}
	return resp
}

// RefinancingResponse represents a refinancing plan in API responses
type RefinancingResponse struct {
	ID                    uuid.UUID              `json:"id"`
	MemberID              uuid.UUID              `json:"member_id"`
	OriginalDebitIDs      []uuid.UUID            `json:"original_debit_ids"`
	OriginalDebits        []ledger.DebitSnapshot `json:"original_debits_snapshot"`
	Principal             decimal.Decimal        `json:"principal"`
	DownPaymentPercent    decimal.Decimal        `json:"down_payment_percent"`
	DownPaymentAmount     decimal.Decimal        `json:"down_payment_amount"`
	DownPaymentMovementID *uuid.UUID             `json:"down_payment_movement_id,omitempty"`
	InstallmentCount      int                    `json:"installment_count"`
	Schedule              []ledger.ScheduleEntry `json:"schedule"`
	Status                string                 `json:"status"`
	AuditTrail            []ledger.AuditEntry    `json:"audit_trail"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
	Version               int                    `json:"version"`
}

// ToRefinancingResponse converts a refinancing to its API shape
func ToRefinancingResponse(r *ledger.Refinancing) RefinancingResponse {
	return RefinancingResponse{
		ID:                    r.ID,
		MemberID:              r.MemberID,
		OriginalDebitIDs:      r.OriginalDebitIDs,
		OriginalDebits:        r.Snapshot,
		Principal:             r.Principal,
		DownPaymentPercent:    r.DownPaymentPercent,
		DownPaymentAmount:     r.DownPaymentAmount,
		DownPaymentMovementID: r.DownPaymentMovementID,
		InstallmentCount:      r.InstallmentCount,
		Schedule:              r.Schedule,
		Status:                string(r.Status),
		AuditTrail:            r.AuditTrail,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		Version:               r.Version,
	}
}

// SettlementResponse represents a commission settlement in API responses
type SettlementResponse struct {
	ID            uuid.UUID       `json:"id"`
	CollectorID   uuid.UUID       `json:"collector_id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Period        string          `json:"period"`
	PaymentIDs    []uuid.UUID     `json:"payment_ids"`
	FormaPago     string          `json:"forma_pago"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToSettlementResponse converts a settlement to its API shape
func ToSettlementResponse(s *ledger.CommissionSettlement) SettlementResponse {
	return SettlementResponse{
		ID:            s.ID,
		CollectorID:   s.CollectorID,
		Date:          s.Date,
		Amount:        s.Amount,
		Period:        s.Period,
		PaymentIDs:    s.PaymentIDs,
		FormaPago:     s.PaymentMethod,
		ReceiptNumber: s.ReceiptNumber,
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt,
	}
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID                      uuid.UUID       `json:"id"`
	MemberID                uuid.UUID       `json:"member_id"`
	ServiceID               *uuid.UUID      `json:"service_id,omitempty"`
	Date                    time.Time       `json:"date"`
	FaceAmount              decimal.Decimal `json:"face_amount"`
	Status                  string          `json:"status"`
	RefundType              string          `json:"refund_type,omitempty"`
	RefundAmount            decimal.Decimal `json:"refund_amount"`
	PenaltyAmount           decimal.Decimal `json:"penalty_amount"`
	CancelReason            string          `json:"cancel_reason,omitempty"`
	CancelledAt             *time.Time      `json:"cancelled_at,omitempty"`
	CancellationMovementIDs []uuid.UUID     `json:"cancellation_movement_ids"`
}

// ToReservationResponse converts a reservation to its API shape
func ToReservationResponse(r *club.Reservation) ReservationResponse {
	ids := r.CancellationMovementIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ReservationResponse{
		ID:                      r.ID,
		MemberID:                r.MemberID,
		ServiceID:               r.ServiceID,
		Date:                    r.Date,
		FaceAmount:              r.FaceAmount,
		Status:                  string(r.Status),
		RefundType:              r.RefundType,
		RefundAmount:            r.RefundAmount,
		PenaltyAmount:           r.PenaltyAmount,
		CancelReason:            r.CancelReason,
		CancelledAt:             r.CancelledAt,
		CancellationMovementIDs: ids,
	}
}
