package club

import (
	"context"

	"github.com/google/uuid"
)

// MemberRepository reads members
type MemberRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Member, error)
	// LockByID loads the member and holds a row lock until the transaction ends
	LockByID(ctx context.Context, id uuid.UUID) (*Member, error)
	Save(ctx context.Context, member *Member) error
}

// ServiceRepository reads services
type ServiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Service, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Service, error)
	Save(ctx context.Context, service *Service) error
}

// CollectorRepository reads collectors
type CollectorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Collector, error)
	// LockByID loads the collector and holds a row lock until the transaction ends
	LockByID(ctx context.Context, id uuid.UUID) (*Collector, error)
	Save(ctx context.Context, collector *Collector) error
}

// ReservationRepository reads reservations and stores their cancellation outcome
type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	Save(ctx context.Context, reservation *Reservation) error
}
