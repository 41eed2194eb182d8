package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementService liquidates collector commissions
type SettlementService struct {
	core
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(scope TransactionScope, opts ...Option) *SettlementService {
	return &SettlementService{core: newCore(scope, opts...)}
}

// CreateSettlementRequest represents a request to settle a batch of commissions
type CreateSettlementRequest struct {
	CollectorID   uuid.UUID   `json:"collector_id" binding:"required"`
	PaymentIDs    []uuid.UUID `json:"payment_ids" binding:"required,min=1"`
	FormaPago     string      `json:"forma_pago" binding:"required,max=50"`
	Date          *time.Time  `json:"date"`
	ReceiptNumber string      `json:"receipt_number" binding:"max=100"`
	Notes         string      `json:"notes" binding:"max=500"`
}

// CreateSettlement marks the payments' commissions as paid to the collector
// and records the settlement. Either every payment is settled or none is.
func (s *SettlementService) CreateSettlement(ctx context.Context, req CreateSettlementRequest) (*SettlementResponse, error) {
	date := time.Time{}
	if req.Date != nil {
		date = *req.Date
	}

	unlockCollector := s.locker.Lock(req.CollectorID)
	defer unlockCollector()

	memberIDs, err := s.paymentMembers(ctx, req.PaymentIDs)
	if err != nil {
		return nil, err
	}
	unlockMembers := s.locker.LockAll(memberIDs)
	defer unlockMembers()

	sink := &eventSink{}
	var settlement *ledger.CommissionSettlement
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		collector, err := repos.CollectorRepo().LockByID(ctx, req.CollectorID)
		if err != nil {
			return fmt.Errorf("failed to lock collector: %w", err)
		}
		if collector == nil {
			return shared.NewDomainError("NOT_FOUND", "Collector not found")
		}
		// Member rows serialize with payment edits running in other processes
		for _, memberID := range SortedUnique(memberIDs) {
			if _, err := repos.MemberRepo().LockByID(ctx, memberID); err != nil {
				return fmt.Errorf("failed to lock member: %w", err)
			}
		}

		found, err := repos.PaymentRepo().FindByIDs(ctx, req.PaymentIDs)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		byID := make(map[uuid.UUID]*ledger.Payment, len(found))
		for _, p := range found {
			byID[p.ID] = p
		}
		payments := make([]*ledger.Payment, 0, len(req.PaymentIDs))
		for _, id := range req.PaymentIDs {
			p, ok := byID[id]
			if !ok {
				return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Payment %s not found", id))
			}
			payments = append(payments, p)
		}

		for _, p := range payments {
			if !p.CommissionAmount.IsZero() || p.CommissionSettled {
				continue
			}
			debits, err := loadDebits(ctx, repos.MovementRepo(), p.Allocations.DebitIDs())
			if err != nil {
				return err
			}
			if err := applyCommission(ctx, repos, p, debits); err != nil {
				return err
			}
		}

		settlement, err = ledger.NewCommissionSettlement(req.CollectorID, payments, req.FormaPago, date,
			req.ReceiptNumber, req.Notes)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if err := repos.PaymentRepo().SaveWithLock(ctx, p); err != nil {
				return fmt.Errorf("failed to save payment: %w", err)
			}
		}
		if err := repos.SettlementRepo().Save(ctx, settlement); err != nil {
			return fmt.Errorf("failed to save settlement: %w", err)
		}
		sink.collect(settlement)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sink.events)

	s.logger.Info("Commissions settled",
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("collector_id", settlement.CollectorID.String()),
		zap.String("amount", settlement.Amount.String()),
		zap.Int("payments", len(settlement.PaymentIDs)))
	resp := ToSettlementResponse(settlement)
	return &resp, nil
}

// GetCollectorCommissions summarizes a collector's pending and settled commissions
func (s *SettlementService) GetCollectorCommissions(ctx context.Context, collectorID uuid.UUID) (*ledger.CommissionSummary, error) {
	var summary ledger.CommissionSummary
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		collector, err := repos.CollectorRepo().FindByID(ctx, collectorID)
		if err != nil {
			return err
		}
		if collector == nil {
			return shared.NewDomainError("NOT_FOUND", "Collector not found")
		}
		payments, err := repos.PaymentRepo().FindAll(ctx, ledger.PaymentFilter{CollectorID: &collectorID})
		if err != nil {
			return err
		}
		summary = ledger.SummarizeCommissions(collectorID, payments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetSettlement returns one settlement
func (s *SettlementService) GetSettlement(ctx context.Context, id uuid.UUID) (*SettlementResponse, error) {
	var resp *SettlementResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		settlement, err := repos.SettlementRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if settlement == nil {
			return shared.NewDomainError("NOT_FOUND", "Settlement not found")
		}
		out := ToSettlementResponse(settlement)
		resp = &out
		return nil
	})
	return resp, err
}

// ListCollectorSettlements returns the settlements of a collector, newest first
func (s *SettlementService) ListCollectorSettlements(ctx context.Context, collectorID uuid.UUID) ([]SettlementResponse, error) {
	out := make([]SettlementResponse, 0)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		settlements, err := repos.SettlementRepo().FindByCollector(ctx, collectorID)
		if err != nil {
			return err
		}
		for _, st := range settlements {
			out = append(out, ToSettlementResponse(st))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SettlementService) paymentMembers(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	members := make([]uuid.UUID, 0, len(ids))
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payments, err := repos.PaymentRepo().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, p := range payments {
			members = append(members, p.MemberID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}
