package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appledger "github.com/clubdesk/backend/internal/application/ledger"
	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedMember(t *testing.T, repo *GormMemberRepository) *club.Member {
	t.Helper()
	m, err := club.NewMember("Ana Socia", "ana@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), m))
	return m
}

func newDebit(t *testing.T, memberID uuid.UUID, amount string, date time.Time) *ledger.Movement {
	t.Helper()
	d, err := ledger.NewDebit(memberID, ledger.OriginQuota, dec(amount), "Monthly fee", date, ledger.DebitOptions{})
	require.NoError(t, err)
	return d
}

func TestGormMovementRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	members := NewGormMemberRepository(db)
	repo := NewGormMovementRepository(db)
	member := seedMember(t, members)

	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	first := newDebit(t, member.ID, "100", day(1))
	second := newDebit(t, member.ID, "50.25", day(5))
	reservationID := uuid.New()
	credit, err := ledger.NewCredit(member.ID, ledger.OriginAdjustment, dec("20"), "Goodwill", day(3), &reservationID)
	require.NoError(t, err)

	require.NoError(t, repo.SaveBatch(ctx, []*ledger.Movement{first, second, credit}))

	t.Run("round trips a debit", func(t *testing.T) {
		got, err := repo.FindByID(ctx, second.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.True(t, got.IsDebit())
		assert.True(t, got.Amount.Equal(dec("50.25")))
		assert.Equal(t, ledger.DebitStatusPending, got.Debt.Status)
		assert.Equal(t, ledger.LifecycleActive, got.Debt.Lifecycle)
		assert.NotNil(t, got.Allocations)
	})

	t.Run("credits have no debt part", func(t *testing.T) {
		got, err := repo.FindByID(ctx, credit.ID)
		require.NoError(t, err)
		assert.True(t, got.IsCredit())
		assert.Nil(t, got.Debt)
	})

	t.Run("missing movement is nil without error", func(t *testing.T) {
		got, err := repo.FindByID(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("lists newest first and paginates", func(t *testing.T) {
		all, err := repo.FindByMember(ctx, member.ID, ledger.MovementFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[2].ID)

		page, err := repo.FindByMember(ctx, member.ID, ledger.MovementFilter{
			Filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "date", OrderDir: "asc"},
		})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, second.ID, page[0].ID)
	})

	t.Run("filters by kind and pending", func(t *testing.T) {
		kind := ledger.KindCredit
		count, err := repo.CountByMember(ctx, member.ID, ledger.MovementFilter{Kind: &kind})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		paymentID := uuid.New()
		require.NoError(t, first.ApplyPayment(paymentID, dec("100")))
		require.NoError(t, repo.Save(ctx, first))

		pending, err := repo.FindByMember(ctx, member.ID, ledger.MovementFilter{OnlyPending: true})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)

		allocated, err := repo.FindAllocatedTo(ctx, member.ID, paymentID)
		require.NoError(t, err)
		require.Len(t, allocated, 1)
		assert.Equal(t, first.ID, allocated[0].ID)
		assert.True(t, allocated[0].PaidAmount().Equal(dec("100")))
	})

	t.Run("finds by reference", func(t *testing.T) {
		refs, err := repo.FindByReference(ctx, reservationID)
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, credit.ID, refs[0].ID)
	})

	t.Run("delete reports missing rows", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, credit.ID))
		err := repo.Delete(ctx, credit.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormPaymentRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	member := seedMember(t, NewGormMemberRepository(db))
	repo := NewGormPaymentRepository(db)

	collectorID := uuid.New()
	debitID := uuid.New()
	payment, err := ledger.NewPayment(member.ID, dec("80"), "Cash", time.Now(), &collectorID, nil)
	require.NoError(t, err)
	payment.CreditMovementID = uuid.New()
	payment.Allocations = ledger.PaymentAllocations{{DebitID: debitID, Amount: dec("80")}}
	payment.SetCommission(dec("8"))
	require.NoError(t, repo.Save(ctx, payment))

	other, err := ledger.NewPayment(member.ID, dec("15"), "", time.Now(), nil, nil)
	require.NoError(t, err)
	other.CreditMovementID = uuid.New()
	require.NoError(t, repo.Save(ctx, other))

	t.Run("round trips allocations and commission", func(t *testing.T) {
		got, err := repo.FindByID(ctx, payment.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.AllocatedTo(debitID).Equal(dec("80")))
		assert.True(t, got.CommissionAmount.Equal(dec("8")))
		assert.Equal(t, collectorID, *got.CollectorID)
	})

	t.Run("finds payments allocated to a debit", func(t *testing.T) {
		got, err := repo.FindAllocatedTo(ctx, member.ID, debitID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, payment.ID, got[0].ID)
	})

	t.Run("finds by credit movement", func(t *testing.T) {
		got, err := repo.FindByCreditMovement(ctx, other.CreditMovementID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, other.ID, got.ID)

		none, err := repo.FindByCreditMovement(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("filters by collector and settlement", func(t *testing.T) {
		unsettled := false
		got, err := repo.FindAll(ctx, ledger.PaymentFilter{CollectorID: &collectorID, Settled: &unsettled})
		require.NoError(t, err)
		require.Len(t, got, 1)

		count, err := repo.Count(ctx, ledger.PaymentFilter{MemberID: &member.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("save with lock rejects a stale copy", func(t *testing.T) {
		first, err := repo.FindByID(ctx, payment.ID)
		require.NoError(t, err)
		stale, err := repo.FindByID(ctx, payment.ID)
		require.NoError(t, err)

		first.SetCommission(dec("5"))
		require.NoError(t, repo.SaveWithLock(ctx, first))
		assert.Equal(t, stale.Version+1, first.Version)

		require.NoError(t, stale.MarkCommissionSettled(uuid.New()))
		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		got, err := repo.FindByID(ctx, payment.ID)
		require.NoError(t, err)
		assert.True(t, got.CommissionAmount.Equal(dec("5")))
		assert.False(t, got.CommissionSettled)
		assert.Nil(t, got.SettlementID)
		assert.Equal(t, first.Version, got.Version)

		first.SetCommission(dec("6"))
		assert.NoError(t, repo.SaveWithLock(ctx, first), "version follows successive saves")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, other.ID))
		assert.ErrorIs(t, repo.Delete(ctx, other.ID), shared.ErrNotFound)
	})
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	scope := NewGormTransactionScope(db)
	member := seedMember(t, NewGormMemberRepository(db))

	t.Run("commits", func(t *testing.T) {
		debit := newDebit(t, member.ID, "30", time.Now())
		err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
			locked, err := repos.MemberRepo().LockByID(ctx, member.ID)
			require.NoError(t, err)
			require.NotNil(t, locked)
			return repos.MovementRepo().Save(ctx, debit)
		})
		require.NoError(t, err)

		got, err := NewGormMovementRepository(db).FindByID(ctx, debit.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		debit := newDebit(t, member.ID, "40", time.Now())
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
			require.NoError(t, repos.MovementRepo().Save(ctx, debit))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := NewGormMovementRepository(db).FindByID(ctx, debit.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestGormRefinancingAndSettlementRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	member := seedMember(t, NewGormMemberRepository(db))

	t.Run("refinancing keeps schedule and snapshot", func(t *testing.T) {
		repo := NewGormRefinancingRepository(db)
		original := newDebit(t, member.ID, "300", time.Now())
		plan, err := ledger.NewRefinancing(member.ID, []*ledger.Movement{original}, dec("300"), dec("0"), 3,
			time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, plan))

		got, err := repo.FindByID(ctx, plan.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Len(t, got.Schedule, 3)
		assert.True(t, got.Schedule.Total().Equal(dec("300")))
		assert.True(t, got.OriginalDebitIDs.Contains(original.ID))

		list, err := repo.FindByMember(ctx, member.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("settlement by collector", func(t *testing.T) {
		repo := NewGormSettlementRepository(db)
		collectorID := uuid.New()
		p, err := ledger.NewPayment(member.ID, dec("100"), "", time.Now(), &collectorID, nil)
		require.NoError(t, err)
		p.SetCommission(dec("10"))

		s, err := ledger.NewCommissionSettlement(collectorID, []*ledger.Payment{p}, "CASH", time.Now(), "R-1", "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, s))

		got, err := repo.FindByCollector(ctx, collectorID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Amount.Equal(dec("10")))
		assert.Equal(t, "CASH", got[0].PaymentMethod)
	})
}

func TestGormMemberRepository_LockByIDUsesRowLock(t *testing.T) {
	database, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "members" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "active"}).
			AddRow(id.String(), "Ana", "ana@example.com", true))

	member, err := NewGormMemberRepository(database.DB).LockByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, "Ana", member.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAllocatedToUsesJSONBContainmentOnPostgres(t *testing.T) {
	ctx := context.Background()
	memberID := uuid.New()
	debitID := uuid.New()

	t.Run("payments", func(t *testing.T) {
		database, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "payments" WHERE member_id = \$1 AND allocations @> CAST\(\$2 AS jsonb\) ORDER BY date ASC`).
			WithArgs(sqlmock.AnyArg(), `[{"debit_id":"`+debitID.String()+`"}]`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "amount", "allocations"}).
				AddRow(uuid.New().String(), memberID.String(), "80",
					`[{"debit_id":"`+debitID.String()+`","amount":"80"}]`))

		got, err := NewGormPaymentRepository(database.DB).FindAllocatedTo(ctx, memberID, debitID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].AllocatedTo(debitID).Equal(dec("80")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("movements", func(t *testing.T) {
		database, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "movements" WHERE member_id = \$1 AND allocations @> CAST\(\$2 AS jsonb\)`).
			WithArgs(sqlmock.AnyArg(), `[{"counterpart_id":"`+debitID.String()+`"}]`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "kind", "amount", "allocations"}).
				AddRow(uuid.New().String(), memberID.String(), string(ledger.KindCredit), "80",
					`[{"counterpart_id":"`+debitID.String()+`","amount":"80"}]`))

		got, err := NewGormMovementRepository(database.DB).FindAllocatedTo(ctx, memberID, debitID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Allocations.References(debitID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentRepository_SaveWithLockDetectsLostRace(t *testing.T) {
	database, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	payment, err := ledger.NewPayment(uuid.New(), dec("50"), "", time.Now(), nil, nil)
	require.NoError(t, err)
	payment.Version = 3

	mock.ExpectQuery(`SELECT version FROM "payments" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))
	mock.ExpectExec(`UPDATE "payments" SET .* WHERE .*version = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewGormPaymentRepository(database.DB).SaveWithLock(context.Background(), payment)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Equal(t, 3, payment.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
