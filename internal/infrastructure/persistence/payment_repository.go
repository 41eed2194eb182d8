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

// GormPaymentRepository implements ledger.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID, nil when absent
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple payments by their IDs
func (r *GormPaymentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ledger.Payment, error) {
	if len(ids) == 0 {
		return []*ledger.Payment{}, nil
	}
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toPayments(rows), nil
}

// FindAll returns the payments matching the filter. A zero page size returns every row.
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter ledger.PaymentFilter) ([]*ledger.Payment, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "date")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	var rows []models.PaymentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toPayments(rows), nil
}

// Count counts the payments matching the filter
func (r *GormPaymentRepository) Count(ctx context.Context, filter ledger.PaymentFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter).Count(&count).Error
	return count, err
}

// FindAllocatedTo returns the member's payments with an allocation to debitID
func (r *GormPaymentRepository) FindAllocatedTo(ctx context.Context, memberID, debitID uuid.UUID) ([]*ledger.Payment, error) {
	var rows []models.PaymentModel
	query := r.db.WithContext(ctx).Where("member_id = ?", memberID)
	if err := whereAllocationRefers(query, "debit_id", debitID).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Payment, 0, len(rows))
	for _, p := range toPayments(rows) {
		if p.AllocatedTo(debitID).IsPositive() {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindByCreditMovement returns the payment paired with a credit movement, nil when none
func (r *GormPaymentRepository) FindByCreditMovement(ctx context.Context, movementID uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "credit_movement_id = ?", movementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	return r.db.WithContext(ctx).Save(models.PaymentModelFromDomain(payment)).Error
}

// SaveWithLock updates an existing payment only when its stored version still
// matches the one it was loaded with. The version is bumped on success.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *ledger.Payment) error {
	var currentVersion int
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ?", payment.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return err
	}
	if currentVersion != payment.Version {
		return paymentModified(payment.ID)
	}

	model := models.PaymentModelFromDomain(payment)
	model.Version = currentVersion + 1
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", payment.ID, currentVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return paymentModified(payment.ID)
	}
	payment.Version = model.Version
	return nil
}

func paymentModified(id uuid.UUID) error {
	return shared.ErrConcurrencyConflict.WithDetails(map[string]any{"payment_id": id})
}

// Delete removes a payment
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter ledger.PaymentFilter) *gorm.DB {
	if filter.MemberID != nil {
		query = query.Where("member_id = ?", *filter.MemberID)
	}
	if filter.CollectorID != nil {
		query = query.Where("collector_id = ?", *filter.CollectorID)
	}
	if filter.Settled != nil {
		query = query.Where("commission_settled = ?", *filter.Settled)
	}
	return query
}

func toPayments(rows []models.PaymentModel) []*ledger.Payment {
	out := make([]*ledger.Payment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// Ensure GormPaymentRepository implements ledger.PaymentRepository
var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
