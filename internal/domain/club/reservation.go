package club

import (
	"time"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus is ACTIVE until the reservation is cancelled
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation books a service for a member. Its charges are the debits whose
// reference id is the reservation id.
type Reservation struct {
	shared.BaseEntity
	MemberID                uuid.UUID
	ServiceID               *uuid.UUID
	Date                    time.Time
	FaceAmount              decimal.Decimal
	Status                  ReservationStatus
	RefundType              string
	RefundAmount            decimal.Decimal
	PenaltyAmount           decimal.Decimal
	CancelReason            string
	CancelledAt             *time.Time
	CancellationMovementIDs []uuid.UUID
}

// NewReservation creates an active reservation
func NewReservation(memberID uuid.UUID, serviceID *uuid.UUID, date time.Time, faceAmount decimal.Decimal) (*Reservation, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBER", "Member ID cannot be empty")
	}
	if !faceAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Face amount must be positive")
	}
	return &Reservation{
		BaseEntity: shared.NewBaseEntity(),
		MemberID:   memberID,
		ServiceID:  serviceID,
		Date:       date,
		FaceAmount: faceAmount,
		Status:     ReservationStatusActive,
	}, nil
}

// IsCancelled returns true once the reservation reached its terminal state
func (r *Reservation) IsCancelled() bool {
	return r.Status == ReservationStatusCancelled
}

// Cancel moves the reservation to CANCELLED and records the refund outcome
func (r *Reservation) Cancel(refundType string, refund, penalty decimal.Decimal, reason string, movementIDs []uuid.UUID) error {
	if r.IsCancelled() {
		return shared.NewDomainError("INVALID_STATE", "Reservation is already cancelled")
	}
	now := time.Now()
	r.Status = ReservationStatusCancelled
	r.RefundType = refundType
	r.RefundAmount = refund
	r.PenaltyAmount = penalty
	r.CancelReason = reason
	r.CancelledAt = &now
	r.CancellationMovementIDs = movementIDs
	r.UpdatedAt = now
	return nil
}
