package ledger

import (
	"context"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MovementFilter defines filtering options for ledger queries
type MovementFilter struct {
	shared.Filter
	Kind        *Kind
	Origin      *Origin
	OnlyPending bool // debits still ACTIVE and not SETTLED
}

// MovementRepository is the ledger store
type MovementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Movement, error)
	FindByMember(ctx context.Context, memberID uuid.UUID, filter MovementFilter) ([]*Movement, error)
	CountByMember(ctx context.Context, memberID uuid.UUID, filter MovementFilter) (int64, error)
	// FindByReference returns the movements whose reference id is referenceID
	FindByReference(ctx context.Context, referenceID uuid.UUID) ([]*Movement, error)
	// FindAllocatedTo returns the movements holding an allocation to counterpartID
	FindAllocatedTo(ctx context.Context, memberID, counterpartID uuid.UUID) ([]*Movement, error)
	Save(ctx context.Context, movement *Movement) error
	SaveBatch(ctx context.Context, movements []*Movement) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	MemberID    *uuid.UUID
	CollectorID *uuid.UUID
	Settled     *bool
}

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Payment, error)
	FindAll(ctx context.Context, filter PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter PaymentFilter) (int64, error)
	// FindAllocatedTo returns the payments of memberID with an allocation to debitID
	FindAllocatedTo(ctx context.Context, memberID, debitID uuid.UUID) ([]*Payment, error)
	FindByCreditMovement(ctx context.Context, movementID uuid.UUID) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	// SaveWithLock updates a loaded payment, failing with CONCURRENCY_CONFLICT
	// when it changed since it was read
	SaveWithLock(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RefinancingRepository persists refinancing plans
type RefinancingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Refinancing, error)
	FindByMember(ctx context.Context, memberID uuid.UUID) ([]*Refinancing, error)
	Save(ctx context.Context, refinancing *Refinancing) error
}

// SettlementRepository persists commission settlements
type SettlementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CommissionSettlement, error)
	FindByCollector(ctx context.Context, collectorID uuid.UUID) ([]*CommissionSettlement, error)
	Save(ctx context.Context, settlement *CommissionSettlement) error
}
