package ledger

import (
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeMovementRecorded     = "MovementRecorded"
	EventTypeMovementDeleted      = "MovementDeleted"
	EventTypePaymentRecorded      = "PaymentRecorded"
	EventTypePaymentRevised       = "PaymentRevised"
	EventTypePaymentDeleted       = "PaymentDeleted"
	EventTypeRefinancingCreated   = "RefinancingCreated"
	EventTypeRefinancingClosed    = "RefinancingClosed"
	EventTypeReservationCancelled = "ReservationCancelled"
	EventTypeCommissionSettled    = "CommissionSettled"
)

// MovementRecordedEvent is raised when a debit or credit is appended to a ledger
type MovementRecordedEvent struct {
	shared.BaseDomainEvent
	MovementID uuid.UUID       `json:"movement_id"`
	Kind       Kind            `json:"kind"`
	Origin     Origin          `json:"origin"`
	Amount     decimal.Decimal `json:"amount"`
}

// NewMovementRecordedEvent creates a MovementRecordedEvent
func NewMovementRecordedEvent(m *Movement) *MovementRecordedEvent {
	return &MovementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementRecorded, "Movement", m.ID, m.MemberID),
		MovementID:      m.ID,
		Kind:            m.Kind,
		Origin:          m.Origin,
		Amount:          m.Amount,
	}
}

// MovementDeletedEvent is raised after a guarded movement delete
type MovementDeletedEvent struct {
	shared.BaseDomainEvent
	MovementID      uuid.UUID `json:"movement_id"`
	Kind            Kind      `json:"kind"`
	ScrubbedRecords int       `json:"scrubbed_records"`
}

// NewMovementDeletedEvent creates a MovementDeletedEvent
func NewMovementDeletedEvent(m *Movement, scrubbed int) *MovementDeletedEvent {
	return &MovementDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementDeleted, "Movement", m.ID, m.MemberID),
		MovementID:      m.ID,
		Kind:            m.Kind,
		ScrubbedRecords: scrubbed,
	}
}

// PaymentEvent is raised when a payment is recorded, revised or deleted
type PaymentEvent struct {
	shared.BaseDomainEvent
	PaymentID        uuid.UUID       `json:"payment_id"`
	CollectorID      *uuid.UUID      `json:"collector_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	AllocatedAmount  decimal.Decimal `json:"allocated_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// NewPaymentEvent creates a PaymentEvent of the given type
func NewPaymentEvent(eventType string, p *Payment) *PaymentEvent {
	return &PaymentEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(eventType, "Payment", p.ID, p.MemberID),
		PaymentID:        p.ID,
		CollectorID:      p.CollectorID,
		Amount:           p.Amount,
		AllocatedAmount:  p.Allocations.Total(),
		CommissionAmount: p.CommissionAmount,
	}
}

// RefinancingEvent is raised when a plan is created or closed
type RefinancingEvent struct {
	shared.BaseDomainEvent
	RefinancingID    uuid.UUID       `json:"refinancing_id"`
	Principal        decimal.Decimal `json:"principal"`
	InstallmentCount int             `json:"installment_count"`
}

// NewRefinancingEvent creates a RefinancingEvent of the given type
func NewRefinancingEvent(eventType string, r *Refinancing) *RefinancingEvent {
	return &RefinancingEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(eventType, "Refinancing", r.ID, r.MemberID),
		RefinancingID:    r.ID,
		Principal:        r.Principal,
		InstallmentCount: r.InstallmentCount,
	}
}

// ReservationCancelledEvent is raised once a reservation's money was reversed
type ReservationCancelledEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID       `json:"reservation_id"`
	RefundType    RefundType      `json:"refund_type"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount"`
}

// NewReservationCancelledEvent creates a ReservationCancelledEvent
func NewReservationCancelledEvent(reservationID, memberID uuid.UUID, plan CancellationPlan) *ReservationCancelledEvent {
	return &ReservationCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationCancelled, "Reservation", reservationID, memberID),
		ReservationID:   reservationID,
		RefundType:      plan.RefundType,
		TotalPaid:       plan.TotalPaid,
		RefundAmount:    plan.RefundAmount,
		PenaltyAmount:   plan.PenaltyAmount,
	}
}

// CommissionSettledEvent is raised when a settlement is created
type CommissionSettledEvent struct {
	shared.BaseDomainEvent
	SettlementID uuid.UUID       `json:"settlement_id"`
	CollectorID  uuid.UUID       `json:"collector_id"`
	Amount       decimal.Decimal `json:"amount"`
	Period       string          `json:"period"`
	PaymentCount int             `json:"payment_count"`
}

// NewCommissionSettledEvent creates a CommissionSettledEvent. Settlements are
// not member scoped so MemberID is nil.
func NewCommissionSettledEvent(s *CommissionSettlement) *CommissionSettledEvent {
	return &CommissionSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommissionSettled, "CommissionSettlement", s.ID, uuid.Nil),
		SettlementID:    s.ID,
		CollectorID:     s.CollectorID,
		Amount:          s.Amount,
		Period:          s.Period,
		PaymentCount:    len(s.PaymentIDs),
	}
}
