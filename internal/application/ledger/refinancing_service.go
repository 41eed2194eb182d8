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

// RefinancingService restructures debt into installment plans
type RefinancingService struct {
	core
}

// NewRefinancingService creates a new RefinancingService
func NewRefinancingService(scope TransactionScope, opts ...Option) *RefinancingService {
	return &RefinancingService{core: newCore(scope, opts...)}
}

// CreateRefinancingRequest represents a request to refinance a set of debits
type CreateRefinancingRequest struct {
	MemberID           uuid.UUID       `json:"member_id" binding:"required"`
	DebitIDs           []uuid.UUID     `json:"debit_ids" binding:"required,min=1"`
	Principal          decimal.Decimal `json:"principal" binding:"required"`
	Installments       int             `json:"installments" binding:"required,min=1,max=120"`
	DownPaymentPercent decimal.Decimal `json:"down_payment_percent"`
	StartDueDate       time.Time       `json:"start_due_date" binding:"required"`
}

// CreateRefinancing supersedes the original debits and appends the plan's
// installment debits and down payment credit in one transaction
func (s *RefinancingService) CreateRefinancing(ctx context.Context, req CreateRefinancingRequest) (*RefinancingResponse, error) {
	var plan *ledger.Refinancing
	err := s.inMemberTx(ctx, req.MemberID, func(repos TransactionalRepositories, sink *eventSink) error {
		if len(req.DebitIDs) == 0 {
			return shared.NewDomainError(ledger.CodeInvalidPlan, "At least one debit is required")
		}
		loaded, err := loadDebits(ctx, repos.MovementRepo(), req.DebitIDs)
		if err != nil {
			return err
		}
		originals := make([]*ledger.Movement, 0, len(req.DebitIDs))
		for _, id := range req.DebitIDs {
			d, ok := loaded[id]
			if !ok {
				return shared.NewDomainError(ledger.CodeDebitNotFound, fmt.Sprintf("Debit %s not found", id))
			}
			originals = append(originals, d)
		}

		plan, err = ledger.NewRefinancing(req.MemberID, originals, req.Principal, req.DownPaymentPercent,
			req.Installments, req.StartDueDate)
		if err != nil {
			return err
		}
		for _, d := range originals {
			if err := d.MarkRefinanced(plan.ID); err != nil {
				return err
			}
		}

		serviceID := ledger.SharedServiceID(originals)
		created := make([]*ledger.Movement, 0, plan.InstallmentCount+1)
		for n := 1; n <= plan.InstallmentCount; n++ {
			debit, err := plan.InstallmentDebit(n, serviceID)
			if err != nil {
				return err
			}
			created = append(created, debit)
		}
		downPayment, err := plan.DownPaymentCredit()
		if err != nil {
			return err
		}
		if downPayment != nil {
			created = append(created, downPayment)
		}
		if err := plan.CheckConservation(); err != nil {
			return err
		}

		if err := repos.MovementRepo().SaveBatch(ctx, originals); err != nil {
			return fmt.Errorf("failed to save original debits: %w", err)
		}
		if err := repos.MovementRepo().SaveBatch(ctx, created); err != nil {
			return fmt.Errorf("failed to save plan movements: %w", err)
		}
		if err := repos.RefinancingRepo().Save(ctx, plan); err != nil {
			return fmt.Errorf("failed to save refinancing: %w", err)
		}
		sink.collect(aggregates(created)...)
		sink.collect(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Refinancing created",
		zap.String("refinancing_id", plan.ID.String()),
		zap.String("member_id", plan.MemberID.String()),
		zap.String("principal", plan.Principal.String()),
		zap.Int("installments", plan.InstallmentCount),
		zap.Int("original_debits", len(plan.OriginalDebitIDs)))
	resp := ToRefinancingResponse(plan)
	return &resp, nil
}

// GetRefinancing returns one plan
func (s *RefinancingService) GetRefinancing(ctx context.Context, id uuid.UUID) (*RefinancingResponse, error) {
	var resp *RefinancingResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.RefinancingRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return shared.NewDomainError("NOT_FOUND", "Refinancing not found")
		}
		out := ToRefinancingResponse(r)
		resp = &out
		return nil
	})
	return resp, err
}

// ListMemberRefinancings returns every plan of a member
func (s *RefinancingService) ListMemberRefinancings(ctx context.Context, memberID uuid.UUID) ([]RefinancingResponse, error) {
	out := make([]RefinancingResponse, 0)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		plans, err := repos.RefinancingRepo().FindByMember(ctx, memberID)
		if err != nil {
			return err
		}
		for _, r := range plans {
			out = append(out, ToRefinancingResponse(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
