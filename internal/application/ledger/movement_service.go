package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MovementService exposes the ledger store: append, read, patch and the
// guarded cascading delete.
type MovementService struct {
	core
}

// NewMovementService creates a new MovementService
func NewMovementService(scope TransactionScope, opts ...Option) *MovementService {
	return &MovementService{core: newCore(scope, opts...)}
}

// AppendMovementRequest describes a debit or credit to record. Kind and
// origin accept legacy aliases.
type AppendMovementRequest struct {
	MemberID    uuid.UUID       `json:"member_id" binding:"required"`
	Kind        string          `json:"kind" binding:"required"`
	Origin      string          `json:"origin" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Concept     string          `json:"concept" binding:"required,max=255"`
	Date        *time.Time      `json:"date"`
	DueDate     *time.Time      `json:"due_date"`
	ServiceID   *uuid.UUID      `json:"service_id"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
}

// AppendMovement records a new movement on a member's ledger
func (s *MovementService) AppendMovement(ctx context.Context, req AppendMovementRequest) (*MovementResponse, error) {
	kind, err := ledger.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	origin, err := ledger.ParseOrigin(req.Origin)
	if err != nil {
		return nil, err
	}
	date := time.Time{}
	if req.Date != nil {
		date = *req.Date
	}

	var movement *ledger.Movement
	err = s.inMemberTx(ctx, req.MemberID, func(repos TransactionalRepositories, sink *eventSink) error {
		if req.ServiceID != nil {
			service, err := repos.ServiceRepo().FindByID(ctx, *req.ServiceID)
			if err != nil {
				return fmt.Errorf("failed to load service: %w", err)
			}
			if service == nil {
				return shared.NewDomainError("NOT_FOUND", "Service not found")
			}
		}

		var err error
		if kind == ledger.KindDebit {
			movement, err = ledger.NewDebit(req.MemberID, origin, req.Amount, req.Concept, date, ledger.DebitOptions{
				DueDate:     req.DueDate,
				ServiceID:   req.ServiceID,
				ReferenceID: req.ReferenceID,
			})
		} else {
			movement, err = ledger.NewCredit(req.MemberID, origin, req.Amount, req.Concept, date, req.ReferenceID)
		}
		if err != nil {
			return err
		}
		if err := repos.MovementRepo().Save(ctx, movement); err != nil {
			return fmt.Errorf("failed to save movement: %w", err)
		}
		sink.collect(movement)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Movement recorded",
		zap.String("movement_id", movement.ID.String()),
		zap.String("member_id", movement.MemberID.String()),
		zap.String("kind", movement.Kind.String()),
		zap.String("amount", movement.Amount.String()))
	resp := ToMovementResponse(movement)
	return &resp, nil
}

// GetMovement returns one movement
func (s *MovementService) GetMovement(ctx context.Context, id uuid.UUID) (*MovementResponse, error) {
	var resp *MovementResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.MovementRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return shared.NewDomainError("NOT_FOUND", "Movement not found")
		}
		r := ToMovementResponse(m)
		resp = &r
		return nil
	})
	return resp, err
}

// ListMovementsRequest filters a member's ledger
type ListMovementsRequest struct {
	Kind        string `form:"kind"`
	Origin      string `form:"origin"`
	OnlyPending bool   `form:"only_pending"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// ListMemberMovements returns a page of a member's movements, newest first
func (s *MovementService) ListMemberMovements(ctx context.Context, memberID uuid.UUID, req ListMovementsRequest) (*shared.Paginated[MovementResponse], error) {
	filter := ledger.MovementFilter{Filter: shared.DefaultFilter(), OnlyPending: req.OnlyPending}
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 && req.PageSize <= 100 {
		filter.PageSize = req.PageSize
	}
	if req.Kind != "" {
		kind, err := ledger.ParseKind(req.Kind)
		if err != nil {
			return nil, err
		}
		filter.Kind = &kind
	}
	if req.Origin != "" {
		origin, err := ledger.ParseOrigin(req.Origin)
		if err != nil {
			return nil, err
		}
		filter.Origin = &origin
	}

	var page shared.Paginated[MovementResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		member, err := repos.MemberRepo().FindByID(ctx, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return shared.NewDomainError("NOT_FOUND", "Member not found")
		}
		movements, err := repos.MovementRepo().FindByMember(ctx, memberID, filter)
		if err != nil {
			return err
		}
		total, err := repos.MovementRepo().CountByMember(ctx, memberID, filter)
		if err != nil {
			return err
		}
		items := make([]MovementResponse, 0, len(movements))
		for _, m := range movements {
			items = append(items, ToMovementResponse(m))
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// BalanceResponse summarizes a member's ledger
type BalanceResponse struct {
	MemberID          uuid.UUID       `json:"member_id"`
	TotalDebits       decimal.Decimal `json:"total_debits"`
	TotalCredits      decimal.Decimal `json:"total_credits"`
	OutstandingDebt   decimal.Decimal `json:"outstanding_debt"`
	UnallocatedCredit decimal.Decimal `json:"unallocated_credit"`
	Balance           decimal.Decimal `json:"balance"`
	PendingDebits     int             `json:"pending_debits"`
}

// GetMemberBalance totals a member's ledger. Superseded debits are excluded
// from the outstanding debt; Balance is debits minus credits.
func (s *MovementService) GetMemberBalance(ctx context.Context, memberID uuid.UUID) (*BalanceResponse, error) {
	resp := &BalanceResponse{
		MemberID:          memberID,
		TotalDebits:       decimal.Zero,
		TotalCredits:      decimal.Zero,
		OutstandingDebt:   decimal.Zero,
		UnallocatedCredit: decimal.Zero,
	}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		member, err := repos.MemberRepo().FindByID(ctx, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return shared.NewDomainError("NOT_FOUND", "Member not found")
		}
		movements, err := repos.MovementRepo().FindByMember(ctx, memberID, ledger.MovementFilter{})
		if err != nil {
			return err
		}
		for _, m := range movements {
			if m.IsDebit() {
				resp.TotalDebits = resp.TotalDebits.Add(m.Amount)
				if m.Debt.Lifecycle == ledger.LifecycleActive && m.Debt.Status != ledger.DebitStatusSettled {
					resp.OutstandingDebt = resp.OutstandingDebt.Add(m.PendingBalance())
					resp.PendingDebits++
				}
				continue
			}
			resp.TotalCredits = resp.TotalCredits.Add(m.Amount)
			resp.UnallocatedCredit = resp.UnallocatedCredit.Add(m.PendingBalance())
		}
		resp.Balance = resp.TotalDebits.Sub(resp.TotalCredits)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateMovementRequest patches descriptive fields only; money fields change
// through payments, refinancing and cancellation.
type UpdateMovementRequest struct {
	Concept *string    `json:"concept" binding:"omitempty,max=255"`
	DueDate *time.Time `json:"due_date"`
}

// UpdateMovement patches a movement's concept or due date
func (s *MovementService) UpdateMovement(ctx context.Context, id uuid.UUID, req UpdateMovementRequest) (*MovementResponse, error) {
	existing, err := s.findMovement(ctx, id)
	if err != nil {
		return nil, err
	}

	var resp MovementResponse
	err = s.inMemberTx(ctx, existing.MemberID, func(repos TransactionalRepositories, _ *eventSink) error {
		m, err := repos.MovementRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return shared.NewDomainError("NOT_FOUND", "Movement not found")
		}
		m.UpdateDetails(req.Concept, req.DueDate)
		if err := repos.MovementRepo().Save(ctx, m); err != nil {
			return fmt.Errorf("failed to save movement: %w", err)
		}
		resp = ToMovementResponse(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMovementResult reports what the cascading delete touched
type DeleteMovementResult struct {
	MovementID        uuid.UUID   `json:"movement_id"`
	ScrubbedMovements []uuid.UUID `json:"scrubbed_movements"`
	ScrubbedPayments  []uuid.UUID `json:"scrubbed_payments"`
}

// DeleteMovement removes a movement and every allocation that references it.
// A debit paid by payments needs cascade=true; a payment's own credit must be
// removed through DeletePayment; debits tied to a refinancing plan cannot be
// removed.
func (s *MovementService) DeleteMovement(ctx context.Context, id uuid.UUID, cascade bool) (*DeleteMovementResult, error) {
	existing, err := s.findMovement(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &DeleteMovementResult{MovementID: id, ScrubbedMovements: []uuid.UUID{}, ScrubbedPayments: []uuid.UUID{}}
	err = s.inMemberTx(ctx, existing.MemberID, func(repos TransactionalRepositories, sink *eventSink) error {
		m, err := repos.MovementRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return shared.NewDomainError("NOT_FOUND", "Movement not found")
		}

		if m.IsCredit() {
			owner, err := repos.PaymentRepo().FindByCreditMovement(ctx, m.ID)
			if err != nil {
				return err
			}
			if owner != nil {
				return shared.NewDomainError(ledger.CodePaymentCredit,
					"Movement is the credit of a payment; delete the payment instead").
					WithDetails(map[string]any{"payment_id": owner.ID})
			}
		}

		if m.IsDebit() {
			if m.Debt.RefinancingID != nil {
				return shared.NewDomainError("CONFLICT", "Debit belongs to a refinancing plan").
					WithDetails(map[string]any{"refinancing_id": m.Debt.RefinancingID})
			}
			payments, err := repos.PaymentRepo().FindAllocatedTo(ctx, m.MemberID, m.ID)
			if err != nil {
				return err
			}
			if len(payments) > 0 && !cascade {
				ids := make([]uuid.UUID, 0, len(payments))
				for _, p := range payments {
					ids = append(ids, p.ID)
				}
				return shared.NewDomainError(ledger.CodeHasPayments,
					"Debit has payments allocated; retry with cascade=true to remove them").
					WithDetails(map[string]any{"payment_ids": ids})
			}
			for _, p := range payments {
				p.RemoveAllocation(m.ID)
				if err := repos.PaymentRepo().SaveWithLock(ctx, p); err != nil {
					return fmt.Errorf("failed to save payment: %w", err)
				}
				result.ScrubbedPayments = append(result.ScrubbedPayments, p.ID)
			}
		}

		referencing, err := repos.MovementRepo().FindAllocatedTo(ctx, m.MemberID, m.ID)
		if err != nil {
			return err
		}
		touched := make([]*ledger.Movement, 0, len(referencing))
		for _, other := range referencing {
			if other.ID == m.ID {
				continue
			}
			other.RemoveAllocation(m.ID)
			touched = append(touched, other)
			result.ScrubbedMovements = append(result.ScrubbedMovements, other.ID)
		}
		if err := repos.MovementRepo().SaveBatch(ctx, touched); err != nil {
			return fmt.Errorf("failed to save movements: %w", err)
		}
		if err := syncRefinancings(ctx, repos, touched, sink); err != nil {
			return err
		}
		if err := repos.MovementRepo().Delete(ctx, m.ID); err != nil {
			return fmt.Errorf("failed to delete movement: %w", err)
		}
		sink.add(ledger.NewMovementDeletedEvent(m, len(touched)+len(result.ScrubbedPayments)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Movement deleted",
		zap.String("movement_id", id.String()),
		zap.Int("scrubbed_movements", len(result.ScrubbedMovements)),
		zap.Int("scrubbed_payments", len(result.ScrubbedPayments)))
	return result, nil
}

func (s *MovementService) findMovement(ctx context.Context, id uuid.UUID) (*ledger.Movement, error) {
	var m *ledger.Movement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		m, err = repos.MovementRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Movement not found")
	}
	return m, nil
}
