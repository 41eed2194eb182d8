package persistence

import (
	"context"
	"errors"

	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRefinancingRepository implements ledger.RefinancingRepository using GORM
type GormRefinancingRepository struct {
	db *gorm.DB
}

// NewGormRefinancingRepository creates a new GormRefinancingRepository
func NewGormRefinancingRepository(db *gorm.DB) *GormRefinancingRepository {
	return &GormRefinancingRepository{db: db}
}

// FindByID finds a refinancing plan by its ID, nil when absent
func (r *GormRefinancingRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Refinancing, error) {
	var model models.RefinancingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByMember returns every plan of a member, newest first
func (r *GormRefinancingRepository) FindByMember(ctx context.Context, memberID uuid.UUID) ([]*ledger.Refinancing, error) {
	var rows []models.RefinancingModel
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Refinancing, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a refinancing plan
func (r *GormRefinancingRepository) Save(ctx context.Context, refinancing *ledger.Refinancing) error {
	return r.db.WithContext(ctx).Save(models.RefinancingModelFromDomain(refinancing)).Error
}

// Ensure GormRefinancingRepository implements ledger.RefinancingRepository
var _ ledger.RefinancingRepository = (*GormRefinancingRepository)(nil)
