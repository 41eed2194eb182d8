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

// PaymentService records payments and keeps their allocations, paired credit
// and commission consistent across edits and deletes.
type PaymentService struct {
	core
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope, opts ...Option) *PaymentService {
	return &PaymentService{core: newCore(scope, opts...)}
}

// CreatePaymentRequest represents a request to record a payment
type CreatePaymentRequest struct {
	MemberID    uuid.UUID         `json:"member_id" binding:"required"`
	Amount      decimal.Decimal   `json:"amount" binding:"required"`
	Concept     string            `json:"concept" binding:"max=255"`
	CollectorID *uuid.UUID        `json:"collector_id"`
	ServiceID   *uuid.UUID        `json:"service_id"`
	Date        *time.Time        `json:"date"`
	Allocations []AllocationInput `json:"allocations" binding:"omitempty,dive"`
}

// UpdatePaymentRequest represents a request to revise a payment. A nil
// Allocations keeps the current targets.
type UpdatePaymentRequest struct {
	Amount      *decimal.Decimal   `json:"amount"`
	Concept     *string            `json:"concept" binding:"omitempty,max=255"`
	Allocations *[]AllocationInput `json:"allocations" binding:"omitempty,dive"`
}

// ListPaymentsRequest filters payments
type ListPaymentsRequest struct {
	MemberID    *uuid.UUID `form:"member_id"`
	CollectorID *uuid.UUID `form:"collector_id"`
	Settled     *bool      `form:"settled"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size"`
}

// CreatePayment persists a payment with its paired credit and runs the
// allocation waterfall over the requested debits
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error) {
	date := time.Time{}
	if req.Date != nil {
		date = *req.Date
	}

	var payment *ledger.Payment
	err := s.inMemberTx(ctx, req.MemberID, func(repos TransactionalRepositories, sink *eventSink) error {
		if req.CollectorID != nil {
			collector, err := repos.CollectorRepo().FindByID(ctx, *req.CollectorID)
			if err != nil {
				return fmt.Errorf("failed to load collector: %w", err)
			}
			if collector == nil {
				return shared.NewDomainError("NOT_FOUND", "Collector not found")
			}
		}
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
		payment, err = ledger.NewPayment(req.MemberID, req.Amount, req.Concept, date, req.CollectorID, req.ServiceID)
		if err != nil {
			return err
		}
		credit, err := ledger.NewCredit(req.MemberID, ledger.OriginPayment, payment.Amount,
			creditConcept(payment), payment.Date, &payment.ID)
		if err != nil {
			return err
		}
		payment.CreditMovementID = credit.ID

		reqs := toRequests(req.Allocations)
		debits, err := loadDebits(ctx, repos.MovementRepo(), requestIDs(reqs))
		if err != nil {
			return err
		}
		touched, err := ledger.ApplyAllocations(payment, credit, debits, reqs)
		if err != nil {
			return err
		}
		if err := applyCommission(ctx, repos, payment, debits); err != nil {
			return err
		}

		if err := repos.MovementRepo().Save(ctx, credit); err != nil {
			return fmt.Errorf("failed to save payment credit: %w", err)
		}
		if err := repos.MovementRepo().SaveBatch(ctx, touched); err != nil {
			return fmt.Errorf("failed to save debits: %w", err)
		}
		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := syncRefinancings(ctx, repos, touched, sink); err != nil {
			return err
		}
		sink.collect(credit)
		sink.add(ledger.NewPaymentEvent(ledger.EventTypePaymentRecorded, payment))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("member_id", payment.MemberID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("allocated", payment.Allocations.Total().String()),
		zap.String("commission", payment.CommissionAmount.String()))
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// UpdatePayment revises a payment. Any change of amount or allocations fully
// reverses the previous allocations before applying the new set.
func (s *PaymentService) UpdatePayment(ctx context.Context, id uuid.UUID, req UpdatePaymentRequest) (*PaymentResponse, error) {
	existing, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	var payment *ledger.Payment
	err = s.inMemberTx(ctx, existing.MemberID, func(repos TransactionalRepositories, sink *eventSink) error {
		var err error
		payment, err = repos.PaymentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if payment == nil {
			return shared.NewDomainError("NOT_FOUND", "Payment not found")
		}
		credit, err := repos.MovementRepo().FindByID(ctx, payment.CreditMovementID)
		if err != nil {
			return err
		}
		if credit == nil {
			return shared.NewDomainError("INTERNAL_ERROR", "Payment credit movement is missing")
		}

		amountChanged := req.Amount != nil && !req.Amount.Equal(payment.Amount)
		if !amountChanged && req.Allocations == nil {
			if err := payment.Revise(nil, req.Concept); err != nil {
				return err
			}
			credit.UpdateDetails(req.Concept, nil)
			if err := repos.MovementRepo().Save(ctx, credit); err != nil {
				return fmt.Errorf("failed to save payment credit: %w", err)
			}
			if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
				return fmt.Errorf("failed to save payment: %w", err)
			}
			sink.add(ledger.NewPaymentEvent(ledger.EventTypePaymentRevised, payment))
			return nil
		}

		if err := payment.EnsureEditable(); err != nil {
			return err
		}
		current, err := loadDebits(ctx, repos.MovementRepo(), payment.Allocations.DebitIDs())
		if err != nil {
			return err
		}
		if err := ensureTargetsActive(current); err != nil {
			return err
		}

		var reqs []ledger.AllocationRequest
		if req.Allocations != nil {
			reqs = toRequests(*req.Allocations)
		} else {
			for _, a := range payment.Allocations {
				reqs = append(reqs, ledger.AllocationRequest{DebitID: a.DebitID, Amount: a.Amount})
			}
		}

		reversed := ledger.ReverseAllocations(payment, credit, current)
		if err := payment.Revise(req.Amount, req.Concept); err != nil {
			return err
		}
		if err := credit.SetAmount(payment.Amount); err != nil {
			return err
		}
		credit.UpdateDetails(req.Concept, nil)

		missing := make([]uuid.UUID, 0)
		for _, r := range reqs {
			if _, ok := current[r.DebitID]; !ok {
				missing = append(missing, r.DebitID)
			}
		}
		extra, err := loadDebits(ctx, repos.MovementRepo(), missing)
		if err != nil {
			return err
		}
		for k, v := range extra {
			current[k] = v
		}
		applied, err := ledger.ApplyAllocations(payment, credit, current, reqs)
		if err != nil {
			return err
		}
		if err := applyCommission(ctx, repos, payment, current); err != nil {
			return err
		}

		touched := mergeTouched(reversed, applied)
		if err := repos.MovementRepo().SaveBatch(ctx, touched); err != nil {
			return fmt.Errorf("failed to save debits: %w", err)
		}
		if err := repos.MovementRepo().Save(ctx, credit); err != nil {
			return fmt.Errorf("failed to save payment credit: %w", err)
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := syncRefinancings(ctx, repos, touched, sink); err != nil {
			return err
		}
		sink.add(ledger.NewPaymentEvent(ledger.EventTypePaymentRevised, payment))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment revised",
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("allocated", payment.Allocations.Total().String()))
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// DeletePayment reverses every allocation of the payment, then removes the
// payment and its paired credit
func (s *PaymentService) DeletePayment(ctx context.Context, id uuid.UUID) error {
	existing, err := s.findPayment(ctx, id)
	if err != nil {
		return err
	}

	err = s.inMemberTx(ctx, existing.MemberID, func(repos TransactionalRepositories, sink *eventSink) error {
		payment, err := repos.PaymentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if payment == nil {
			return shared.NewDomainError("NOT_FOUND", "Payment not found")
		}
		if err := payment.EnsureEditable(); err != nil {
			return err
		}
		credit, err := repos.MovementRepo().FindByID(ctx, payment.CreditMovementID)
		if err != nil {
			return err
		}
		debits, err := loadDebits(ctx, repos.MovementRepo(), payment.Allocations.DebitIDs())
		if err != nil {
			return err
		}
		if err := ensureTargetsActive(debits); err != nil {
			return err
		}

		reversed := ledger.ReverseAllocations(payment, credit, debits)
		if err := repos.MovementRepo().SaveBatch(ctx, reversed); err != nil {
			return fmt.Errorf("failed to save debits: %w", err)
		}
		if err := syncRefinancings(ctx, repos, reversed, sink); err != nil {
			return err
		}
		if credit != nil {
			if err := repos.MovementRepo().Delete(ctx, credit.ID); err != nil {
				return fmt.Errorf("failed to delete payment credit: %w", err)
			}
		}
		if err := repos.PaymentRepo().Delete(ctx, payment.ID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		sink.add(ledger.NewPaymentEvent(ledger.EventTypePaymentDeleted, payment))
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Payment deleted", zap.String("payment_id", id.String()))
	return nil
}

// GetPayment returns one payment
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	p, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// ListPayments returns a page of payments filtered by member, collector or settlement state
func (s *PaymentService) ListPayments(ctx context.Context, req ListPaymentsRequest) (*shared.Paginated[PaymentResponse], error) {
	filter := ledger.PaymentFilter{
		Filter:      shared.DefaultFilter(),
		MemberID:    req.MemberID,
		CollectorID: req.CollectorID,
		Settled:     req.Settled,
	}
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 && req.PageSize <= 100 {
		filter.PageSize = req.PageSize
	}

	var page shared.Paginated[PaymentResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payments, err := repos.PaymentRepo().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		total, err := repos.PaymentRepo().Count(ctx, filter)
		if err != nil {
			return err
		}
		items := make([]PaymentResponse, 0, len(payments))
		for _, p := range payments {
			items = append(items, ToPaymentResponse(p))
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *PaymentService) findPayment(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	var p *ledger.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		p, err = repos.PaymentRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return p, nil
}

func requestIDs(reqs []ledger.AllocationRequest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		if r.DebitID != uuid.Nil {
			ids = append(ids, r.DebitID)
		}
	}
	return ids
}

func creditConcept(p *ledger.Payment) string {
	if p.Concept != "" {
		return p.Concept
	}
	return "Payment"
}
