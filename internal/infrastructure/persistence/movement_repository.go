package persistence

import (
	"context"
	"errors"

	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/clubdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementRepository implements ledger.MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByID finds a movement by its ID, nil when absent
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Movement, error) {
	var model models.MovementModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple movements by their IDs
func (r *GormMovementRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ledger.Movement, error) {
	if len(ids) == 0 {
		return []*ledger.Movement{}, nil
	}
	var rows []models.MovementModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// FindByMember returns the movements of a member. A zero page size returns every row.
func (r *GormMovementRepository) FindByMember(ctx context.Context, memberID uuid.UUID, filter ledger.MovementFilter) ([]*ledger.Movement, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.MovementModel{}).Where("member_id = ?", memberID), filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	orderBy := ValidateSortField(filter.OrderBy, MovementSortFields, "date")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)).Order("created_at ASC")

	var rows []models.MovementModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// CountByMember counts the movements of a member matching the filter
func (r *GormMovementRepository) CountByMember(ctx context.Context, memberID uuid.UUID, filter ledger.MovementFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.MovementModel{}).Where("member_id = ?", memberID), filter).
		Count(&count).Error
	return count, err
}

// FindByReference returns the movements pointing at a business reference (reservation, plan, payment)
func (r *GormMovementRepository) FindByReference(ctx context.Context, referenceID uuid.UUID) ([]*ledger.Movement, error) {
	var rows []models.MovementModel
	if err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// FindAllocatedTo returns the member's movements that hold an allocation to
// counterpartID, confirmed on the decoded allocations
func (r *GormMovementRepository) FindAllocatedTo(ctx context.Context, memberID, counterpartID uuid.UUID) ([]*ledger.Movement, error) {
	var rows []models.MovementModel
	query := r.db.WithContext(ctx).Where("member_id = ?", memberID)
	if err := whereAllocationRefers(query, "counterpart_id", counterpartID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Movement, 0, len(rows))
	for _, m := range toMovements(rows) {
		if m.Allocations.References(counterpartID) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Save creates or updates a movement
func (r *GormMovementRepository) Save(ctx context.Context, movement *ledger.Movement) error {
	return r.db.WithContext(ctx).Save(models.MovementModelFromDomain(movement)).Error
}

// SaveBatch creates or updates multiple movements
func (r *GormMovementRepository) SaveBatch(ctx context.Context, movements []*ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	rows := make([]*models.MovementModel, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, models.MovementModelFromDomain(m))
	}
	return r.db.WithContext(ctx).Save(rows).Error
}

// Delete removes a movement
func (r *GormMovementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MovementModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormMovementRepository) applyFilter(query *gorm.DB, filter ledger.MovementFilter) *gorm.DB {
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Origin != nil {
		query = query.Where("origin = ?", *filter.Origin)
	}
	if filter.OnlyPending {
		query = query.Where("kind = ? AND lifecycle = ? AND status <> ?",
			ledger.KindDebit, ledger.LifecycleActive, ledger.DebitStatusSettled)
	}
	return query
}

func toMovements(rows []models.MovementModel) []*ledger.Movement {
	out := make([]*ledger.Movement, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// Ensure GormMovementRepository implements ledger.MovementRepository
var _ ledger.MovementRepository = (*GormMovementRepository)(nil)
