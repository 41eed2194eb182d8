package persistence

import (
	"context"

	appledger "github.com/clubdesk/backend/internal/application/ledger"
	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) MemberRepo() club.MemberRepository {
	return NewGormMemberRepository(r.tx)
}

func (r *gormTransactionalRepositories) ServiceRepo() club.ServiceRepository {
	return NewGormServiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) CollectorRepo() club.CollectorRepository {
	return NewGormCollectorRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReservationRepo() club.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

// MovementRepo returns the ledger store scoped to the current transaction.
func (r *gormTransactionalRepositories) MovementRepo() ledger.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() ledger.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) RefinancingRepo() ledger.RefinancingRepository {
	return NewGormRefinancingRepository(r.tx)
}

func (r *gormTransactionalRepositories) SettlementRepo() ledger.SettlementRepository {
	return NewGormSettlementRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
