package ledger

import (
	"context"
	"fmt"

	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Option is a functional option shared by the ledger services
type Option func(*core)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *core) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventPublisher publishes domain events after each committed operation
func WithEventPublisher(publisher shared.EventPublisher) Option {
	return func(c *core) {
		c.publisher = publisher
	}
}

// WithLocker shares one locker between services so they serialize on the same keys
func WithLocker(locker *KeyedLocker) Option {
	return func(c *core) {
		if locker != nil {
			c.locker = locker
		}
	}
}

// core holds what every ledger service needs: the transaction scope, the
// per-member locker, the event publisher and the logger.
type core struct {
	scope     TransactionScope
	locker    *KeyedLocker
	publisher shared.EventPublisher
	logger    *zap.Logger
}

func newCore(scope TransactionScope, opts ...Option) core {
	c := core{
		scope:  scope,
		locker: NewKeyedLocker(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// eventSink gathers the events raised by aggregates during a transaction so
// they are only published after commit.
type eventSink struct {
	events []shared.DomainEvent
}

func (s *eventSink) collect(aggregates ...shared.AggregateRoot) {
	for _, a := range aggregates {
		if a == nil {
			continue
		}
		s.events = append(s.events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
}

func (s *eventSink) add(events ...shared.DomainEvent) {
	s.events = append(s.events, events...)
}

// inMemberTx runs fn in a transaction while holding the member lock, both
// in-process and as a row lock on the member record. A missing member is
// reported as NOT_FOUND before fn runs.
func (c *core) inMemberTx(ctx context.Context, memberID uuid.UUID, fn func(repos TransactionalRepositories, sink *eventSink) error) error {
	unlock := c.locker.Lock(memberID)
	defer unlock()

	sink := &eventSink{}
	err := c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		member, err := repos.MemberRepo().LockByID(ctx, memberID)
		if err != nil {
			return fmt.Errorf("failed to lock member: %w", err)
		}
		if member == nil {
			return shared.NewDomainError("NOT_FOUND", "Member not found")
		}
		return fn(repos, sink)
	})
	if err != nil {
		return err
	}
	c.publish(ctx, sink.events)
	return nil
}

func (c *core) publish(ctx context.Context, events []shared.DomainEvent) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.logger.Error("Failed to publish ledger events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}

// loadDebits fetches movements by id into a map; missing ids are simply absent
func loadDebits(ctx context.Context, repo ledger.MovementRepository, ids []uuid.UUID) (map[uuid.UUID]*ledger.Movement, error) {
	out := make(map[uuid.UUID]*ledger.Movement, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	movements, err := repo.FindByIDs(ctx, SortedUnique(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load debits: %w", err)
	}
	for _, m := range movements {
		out[m.ID] = m
	}
	return out, nil
}

// syncRefinancings pushes the progress of installment debits into their plans
func syncRefinancings(ctx context.Context, repos TransactionalRepositories, debits []*ledger.Movement, sink *eventSink) error {
	byPlan := make(map[uuid.UUID][]*ledger.Movement)
	order := make([]uuid.UUID, 0)
	for _, d := range debits {
		if d == nil || !d.IsDebit() || d.Debt.RefinancingID == nil || d.Debt.InstallmentNumber == 0 {
			continue
		}
		id := *d.Debt.RefinancingID
		if _, ok := byPlan[id]; !ok {
			order = append(order, id)
		}
		byPlan[id] = append(byPlan[id], d)
	}
	for _, id := range order {
		plan, err := repos.RefinancingRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load refinancing: %w", err)
		}
		if plan == nil {
			continue
		}
		changed := false
		for _, d := range byPlan[id] {
			if plan.SyncInstallment(d) {
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := repos.RefinancingRepo().Save(ctx, plan); err != nil {
			return fmt.Errorf("failed to save refinancing: %w", err)
		}
		sink.collect(plan)
	}
	return nil
}

// ensureTargetsActive rejects reversing a payment whose debits were refinanced
// or voided; their paid amounts are frozen.
func ensureTargetsActive(debits map[uuid.UUID]*ledger.Movement) error {
	for _, d := range debits {
		if d.IsDebit() && d.Debt.Lifecycle.IsSuperseded() {
			return shared.NewDomainError("CONFLICT",
				fmt.Sprintf("Payment is allocated to debit %s which is %s", d.ID, d.Debt.Lifecycle)).
				WithDetails(map[string]any{"debit_id": d.ID})
		}
	}
	return nil
}

// resolveCommissionService picks the explicit service or, failing that, the
// service of the first allocated debit that names one.
func resolveCommissionService(ctx context.Context, repos TransactionalRepositories, p *ledger.Payment, debits map[uuid.UUID]*ledger.Movement) (*club.Service, error) {
	serviceID := p.ServiceID
	if serviceID == nil {
		for _, a := range p.Allocations {
			if d, ok := debits[a.DebitID]; ok && d.IsDebit() && d.Debt.ServiceID != nil {
				serviceID = d.Debt.ServiceID
				break
			}
		}
	}
	if serviceID == nil {
		return nil, nil
	}
	service, err := repos.ServiceRepo().FindByID(ctx, *serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	return service, nil
}

// applyCommission recomputes the collector commission of a payment from its
// current amount and allocations
func applyCommission(ctx context.Context, repos TransactionalRepositories, p *ledger.Payment, debits map[uuid.UUID]*ledger.Movement) error {
	if p.CollectorID == nil {
		p.SetCommission(decimal.Zero)
		return nil
	}
	collector, err := repos.CollectorRepo().FindByID(ctx, *p.CollectorID)
	if err != nil {
		return fmt.Errorf("failed to load collector: %w", err)
	}
	if collector == nil {
		return shared.NewDomainError("NOT_FOUND", "Collector not found")
	}
	service, err := resolveCommissionService(ctx, repos, p, debits)
	if err != nil {
		return err
	}
	p.SetCommission(ledger.ComputeCommission(p.Amount, collector, service))
	return nil
}

// mergeTouched concatenates movement slices keeping one entry per id
func mergeTouched(groups ...[]*ledger.Movement) []*ledger.Movement {
	seen := make(map[uuid.UUID]bool)
	out := make([]*ledger.Movement, 0)
	for _, g := range groups {
		for _, m := range g {
			if m == nil || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	return out
}

func aggregates[T shared.AggregateRoot](items []T) []shared.AggregateRoot {
	out := make([]shared.AggregateRoot, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return out
}
