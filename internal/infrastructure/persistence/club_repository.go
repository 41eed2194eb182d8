package persistence

import (
	"context"
	"errors"

	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate is the row lock taken on the member or collector that serializes
// ledger writers. Dialects without row locks (SQLite) drop the clause.
var forUpdate = clause.Locking{Strength: "UPDATE"}

// GormMemberRepository implements club.MemberRepository using GORM
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a new GormMemberRepository
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// FindByID finds a member by its ID, nil when absent
func (r *GormMemberRepository) FindByID(ctx context.Context, id uuid.UUID) (*club.Member, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// LockByID loads a member with SELECT ... FOR UPDATE
func (r *GormMemberRepository) LockByID(ctx context.Context, id uuid.UUID) (*club.Member, error) {
	return r.find(r.db.WithContext(ctx).Clauses(forUpdate), id)
}

func (r *GormMemberRepository) find(db *gorm.DB, id uuid.UUID) (*club.Member, error) {
	var model models.MemberModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a member
func (r *GormMemberRepository) Save(ctx context.Context, member *club.Member) error {
	return r.db.WithContext(ctx).Save(models.MemberModelFromDomain(member)).Error
}

// GormServiceRepository implements club.ServiceRepository using GORM
type GormServiceRepository struct {
	db *gorm.DB
}

// NewGormServiceRepository creates a new GormServiceRepository
func NewGormServiceRepository(db *gorm.DB) *GormServiceRepository {
	return &GormServiceRepository{db: db}
}

// FindByID finds a service by its ID, nil when absent
func (r *GormServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*club.Service, error) {
	var model models.ServiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple services by their IDs
func (r *GormServiceRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]club.Service, error) {
	if len(ids) == 0 {
		return []club.Service{}, nil
	}
	var rows []models.ServiceModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]club.Service, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a service
func (r *GormServiceRepository) Save(ctx context.Context, service *club.Service) error {
	return r.db.WithContext(ctx).Save(models.ServiceModelFromDomain(service)).Error
}

// GormCollectorRepository implements club.CollectorRepository using GORM
type GormCollectorRepository struct {
	db *gorm.DB
}

// NewGormCollectorRepository creates a new GormCollectorRepository
func NewGormCollectorRepository(db *gorm.DB) *GormCollectorRepository {
	return &GormCollectorRepository{db: db}
}

// FindByID finds a collector by its ID, nil when absent
func (r *GormCollectorRepository) FindByID(ctx context.Context, id uuid.UUID) (*club.Collector, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// LockByID loads a collector with SELECT ... FOR UPDATE
func (r *GormCollectorRepository) LockByID(ctx context.Context, id uuid.UUID) (*club.Collector, error) {
	return r.find(r.db.WithContext(ctx).Clauses(forUpdate), id)
}

func (r *GormCollectorRepository) find(db *gorm.DB, id uuid.UUID) (*club.Collector, error) {
	var model models.CollectorModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a collector
func (r *GormCollectorRepository) Save(ctx context.Context, collector *club.Collector) error {
	return r.db.WithContext(ctx).Save(models.CollectorModelFromDomain(collector)).Error
}

// GormReservationRepository implements club.ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation by its ID, nil when absent
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*club.Reservation, error) {
	var model models.ReservationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a reservation
func (r *GormReservationRepository) Save(ctx context.Context, reservation *club.Reservation) error {
	return r.db.WithContext(ctx).Save(models.ReservationModelFromDomain(reservation)).Error
}

var (
	_ club.MemberRepository      = (*GormMemberRepository)(nil)
	_ club.ServiceRepository     = (*GormServiceRepository)(nil)
	_ club.CollectorRepository   = (*GormCollectorRepository)(nil)
	_ club.ReservationRepository = (*GormReservationRepository)(nil)
)
