package persistence

import (
	"context"
	"errors"

	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSettlementRepository implements ledger.SettlementRepository using GORM
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewGormSettlementRepository creates a new GormSettlementRepository
func NewGormSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// FindByID finds a settlement by its ID, nil when absent
func (r *GormSettlementRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CommissionSettlement, error) {
	var model models.CommissionSettlementModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCollector returns the settlements of a collector, newest first
func (r *GormSettlementRepository) FindByCollector(ctx context.Context, collectorID uuid.UUID) ([]*ledger.CommissionSettlement, error) {
	var rows []models.CommissionSettlementModel
	if err := r.db.WithContext(ctx).
		Where("collector_id = ?", collectorID).
		Order("date DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.CommissionSettlement, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a settlement
func (r *GormSettlementRepository) Save(ctx context.Context, settlement *ledger.CommissionSettlement) error {
	return r.db.WithContext(ctx).Save(models.CommissionSettlementModelFromDomain(settlement)).Error
}

// Ensure GormSettlementRepository implements ledger.SettlementRepository
var _ ledger.SettlementRepository = (*GormSettlementRepository)(nil)
