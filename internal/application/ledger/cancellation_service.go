package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CancellationService cancels reservations and books the counter-entries
// their refund policy requires
type CancellationService struct {
	core
}

// NewCancellationService creates a new CancellationService
func NewCancellationService(scope TransactionScope, opts ...Option) *CancellationService {
	return &CancellationService{core: newCore(scope, opts...)}
}

// CancelReservationRequest represents a request to cancel a reservation
type CancelReservationRequest struct {
	RefundType    string           `json:"refund_type" binding:"required"`
	RefundAmount  *decimal.Decimal `json:"refund_amount"`
	PenaltyAmount *decimal.Decimal `json:"penalty_amount"`
	Reason        string           `json:"reason" binding:"max=500"`
}

// CancellationResponse reports the cancelled reservation and what was booked
type CancellationResponse struct {
	Reservation      ReservationResponse `json:"reservation"`
	TotalPaid        decimal.Decimal     `json:"total_paid"`
	CreditNoteID     *uuid.UUID          `json:"credit_note_id,omitempty"`
	MovementIDs      []uuid.UUID         `json:"movement_ids"`
	DeletedPayments  []uuid.UUID         `json:"deleted_payments"`
	AdjustedPayments []uuid.UUID         `json:"adjusted_payments"`
	VoidedDebits     []uuid.UUID         `json:"voided_debits"`
}

// CancelReservation moves an ACTIVE reservation to CANCELLED. Payments made
// against its debits are removed (or trimmed when they also cover other
// debits), a credit note for the face amount voids the debits, and penalty or
// refund debits are appended according to the refund type.
func (s *CancellationService) CancelReservation(ctx context.Context, reservationID uuid.UUID, req CancelReservationRequest) (*CancellationResponse, error) {
	refundType, err := ledger.ParseRefundType(req.RefundType)
	if err != nil {
		return nil, err
	}
	existing, err := s.findReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	resp := &CancellationResponse{
		MovementIDs:      []uuid.UUID{},
		DeletedPayments:  []uuid.UUID{},
		AdjustedPayments: []uuid.UUID{},
		VoidedDebits:     []uuid.UUID{},
	}
	err = s.inMemberTx(ctx, existing.MemberID, func(repos TransactionalRepositories, sink *eventSink) error {
		reservation, err := repos.ReservationRepo().FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation == nil {
			return shared.NewDomainError("NOT_FOUND", "Reservation not found")
		}
		if reservation.IsCancelled() {
			return shared.NewDomainError("INVALID_STATE", "Reservation is already cancelled")
		}

		debits, err := reservationDebits(ctx, repos, reservation)
		if err != nil {
			return err
		}
		debitIDs := make(map[uuid.UUID]bool, len(debits))
		for _, d := range debits {
			debitIDs[d.ID] = true
		}

		payments, credits, err := paymentsOn(ctx, repos, reservation.MemberID, debits)
		if err != nil {
			return err
		}
		paidCredits := make([]*ledger.Movement, 0, len(credits))
		for _, c := range credits {
			paidCredits = append(paidCredits, c)
		}
		totalPaid := ledger.TotalPaidOn(paidCredits, debitIDs)
		plan, err := ledger.PlanCancellation(refundType, totalPaid, req.RefundAmount, req.PenaltyAmount)
		if err != nil {
			return err
		}
		resp.TotalPaid = totalPaid

		if err := s.releasePayments(ctx, repos, sink, payments, credits, debitIDs, resp); err != nil {
			return err
		}

		now := time.Now()
		created := make([]*ledger.Movement, 0, 3)
		note, err := ledger.NewCredit(reservation.MemberID, ledger.OriginAdjustment, reservation.FaceAmount,
			"Reservation cancellation credit note", now, &reservation.ID)
		if err != nil {
			return err
		}
		shares := ledger.CreditNoteShares(reservation.FaceAmount, debits)
		for _, d := range debits {
			share := shares[d.ID]
			if err := note.MirrorAllocation(d.ID, share); err != nil {
				return err
			}
			if err := d.Void(note.ID, share); err != nil {
				return err
			}
			resp.VoidedDebits = append(resp.VoidedDebits, d.ID)
		}
		resp.CreditNoteID = &note.ID
		created = append(created, note)

		if plan.PenaltyAmount.IsPositive() {
			penalty, err := ledger.NewDebit(reservation.MemberID, ledger.OriginAdjustment, plan.PenaltyAmount,
				"Reservation cancellation penalty", now, ledger.DebitOptions{
					ServiceID:   reservation.ServiceID,
					ReferenceID: &reservation.ID,
				})
			if err != nil {
				return err
			}
			penalty.MarkSettled()
			created = append(created, penalty)
		}
		if plan.RefundAmount.IsPositive() {
			refund, err := ledger.NewDebit(reservation.MemberID, ledger.OriginRefund, plan.RefundAmount,
				"Reservation cancellation refund", now, ledger.DebitOptions{
					ServiceID:   reservation.ServiceID,
					ReferenceID: &reservation.ID,
				})
			if err != nil {
				return err
			}
			created = append(created, refund)
		}
		for _, m := range created {
			resp.MovementIDs = append(resp.MovementIDs, m.ID)
		}

		if err := reservation.Cancel(string(plan.RefundType), plan.RefundAmount, plan.PenaltyAmount,
			req.Reason, resp.MovementIDs); err != nil {
			return err
		}

		if err := repos.MovementRepo().SaveBatch(ctx, debits); err != nil {
			return fmt.Errorf("failed to save voided debits: %w", err)
		}
		if err := repos.MovementRepo().SaveBatch(ctx, created); err != nil {
			return fmt.Errorf("failed to save cancellation movements: %w", err)
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return fmt.Errorf("failed to save reservation: %w", err)
		}
		sink.collect(aggregates(created)...)
		sink.add(ledger.NewReservationCancelledEvent(reservation.ID, reservation.MemberID, plan))
		resp.Reservation = ToReservationResponse(reservation)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation cancelled",
		zap.String("reservation_id", reservationID.String()),
		zap.String("refund_type", string(refundType)),
		zap.String("total_paid", resp.TotalPaid.String()),
		zap.Int("deleted_payments", len(resp.DeletedPayments)),
		zap.Int("adjusted_payments", len(resp.AdjustedPayments)))
	return resp, nil
}

// GetReservation returns one reservation
func (s *CancellationService) GetReservation(ctx context.Context, id uuid.UUID) (*ReservationResponse, error) {
	r, err := s.findReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToReservationResponse(r)
	return &resp, nil
}

// releasePayments removes the money of the reservation from its payments.
// A payment that only covered reservation debits is deleted with its credit.
// A payment that also covered other debits, or holds unallocated credit,
// keeps the rest and shrinks by the released amount.
func (s *CancellationService) releasePayments(
	ctx context.Context,
	repos TransactionalRepositories,
	sink *eventSink,
	payments []*ledger.Payment,
	credits map[uuid.UUID]*ledger.Movement,
	debitIDs map[uuid.UUID]bool,
	resp *CancellationResponse,
) error {
	for _, p := range payments {
		if err := p.EnsureEditable(); err != nil {
			return shared.NewDomainError("CONFLICT",
				"A payment of this reservation has a settled commission").
				WithDetails(map[string]any{"payment_id": p.ID, "settlement_id": p.SettlementID})
		}
	}

	for _, p := range payments {
		credit := credits[p.ID]
		if p.CoversOnly(debitIDs) && !p.Unallocated().IsPositive() {
			if credit != nil {
				if err := repos.MovementRepo().Delete(ctx, credit.ID); err != nil {
					return fmt.Errorf("failed to delete payment credit: %w", err)
				}
			}
			if err := repos.PaymentRepo().Delete(ctx, p.ID); err != nil {
				return fmt.Errorf("failed to delete payment: %w", err)
			}
			resp.DeletedPayments = append(resp.DeletedPayments, p.ID)
			sink.add(ledger.NewPaymentEvent(ledger.EventTypePaymentDeleted, p))
			continue
		}

		released := decimal.Zero
		for id := range debitIDs {
			released = released.Add(p.RemoveAllocation(id))
			if credit != nil {
				credit.RemoveAllocation(id)
			}
		}
		if err := p.Withdraw(released); err != nil {
			return err
		}
		if credit != nil {
			if err := credit.ReduceAmount(released); err != nil {
				return err
			}
			if err := repos.MovementRepo().Save(ctx, credit); err != nil {
				return fmt.Errorf("failed to save payment credit: %w", err)
			}
		}
		others, err := loadDebits(ctx, repos.MovementRepo(), p.Allocations.DebitIDs())
		if err != nil {
			return err
		}
		if err := applyCommission(ctx, repos, p, others); err != nil {
			return err
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, p); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		resp.AdjustedPayments = append(resp.AdjustedPayments, p.ID)
		sink.add(ledger.NewPaymentEvent(ledger.EventTypePaymentRevised, p))
	}
	return nil
}

// reservationDebits returns the debits booked for a reservation. Every one
// must still be ACTIVE.
func reservationDebits(ctx context.Context, repos TransactionalRepositories, r *club.Reservation) ([]*ledger.Movement, error) {
	movements, err := repos.MovementRepo().FindByReference(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation debits: %w", err)
	}
	debits := make([]*ledger.Movement, 0, len(movements))
	for _, m := range movements {
		if !m.IsDebit() || m.MemberID != r.MemberID {
			continue
		}
		if m.Debt.Lifecycle.IsSuperseded() {
			return nil, shared.NewDomainError("CONFLICT",
				fmt.Sprintf("Reservation debit %s is %s", m.ID, m.Debt.Lifecycle)).
				WithDetails(map[string]any{"debit_id": m.ID})
		}
		debits = append(debits, m)
	}
	return debits, nil
}

// paymentsOn loads the payments allocated to any of the debits together with
// their paired credits, keyed by payment id
func paymentsOn(ctx context.Context, repos TransactionalRepositories, memberID uuid.UUID, debits []*ledger.Movement) ([]*ledger.Payment, map[uuid.UUID]*ledger.Movement, error) {
	seen := make(map[uuid.UUID]bool)
	payments := make([]*ledger.Payment, 0)
	for _, d := range debits {
		found, err := repos.PaymentRepo().FindAllocatedTo(ctx, memberID, d.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load payments: %w", err)
		}
		for _, p := range found {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			payments = append(payments, p)
		}
	}

	creditIDs := make([]uuid.UUID, 0, len(payments))
	for _, p := range payments {
		creditIDs = append(creditIDs, p.CreditMovementID)
	}
	byID, err := loadDebits(ctx, repos.MovementRepo(), creditIDs)
	if err != nil {
		return nil, nil, err
	}
	credits := make(map[uuid.UUID]*ledger.Movement, len(payments))
	for _, p := range payments {
		if c, ok := byID[p.CreditMovementID]; ok {
			credits[p.ID] = c
		}
	}
	return payments, credits, nil
}

func (s *CancellationService) findReservation(ctx context.Context, id uuid.UUID) (*club.Reservation, error) {
	var r *club.Reservation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		r, err = repos.ReservationRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Reservation not found")
	}
	return r, nil
}
