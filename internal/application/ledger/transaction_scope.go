package ledger

import (
	"context"

	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to every repository the ledger
// touches. All repositories returned share the same underlying transaction.
type TransactionalRepositories interface {
	MemberRepo() club.MemberRepository
	ServiceRepo() club.ServiceRepository
	CollectorRepo() club.CollectorRepository
	ReservationRepo() club.ReservationRepository
	MovementRepo() ledger.MovementRepository
	PaymentRepo() ledger.PaymentRepository
	RefinancingRepo() ledger.RefinancingRepository
	SettlementRepo() ledger.SettlementRepository
}
