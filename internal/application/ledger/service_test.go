package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appledger "github.com/clubdesk/backend/internal/application/ledger"
	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/clubdesk/backend/internal/infrastructure/persistence"
	"github.com/clubdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	de, ok := shared.IsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	assert.Equal(t, code, de.Code)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	ctx           context.Context
	db            *gorm.DB
	publisher     *recordingPublisher
	payments      *appledger.PaymentService
	movements     *appledger.MovementService
	refinancings  *appledger.RefinancingService
	cancellations *appledger.CancellationService
	settlements   *appledger.SettlementService
	member        *club.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.LedgerModels()...))

	scope := persistence.NewGormTransactionScope(db)
	publisher := &recordingPublisher{}
	opts := []appledger.Option{
		appledger.WithLocker(appledger.NewKeyedLocker()),
		appledger.WithEventPublisher(publisher),
	}

	f := &fixture{
		ctx:           context.Background(),
		db:            db,
		publisher:     publisher,
		payments:      appledger.NewPaymentService(scope, opts...),
		movements:     appledger.NewMovementService(scope, opts...),
		refinancings:  appledger.NewRefinancingService(scope, opts...),
		cancellations: appledger.NewCancellationService(scope, opts...),
		settlements:   appledger.NewSettlementService(scope, opts...),
	}
	f.member = f.newMember(t, "Ana Socia")
	return f
}

func (f *fixture) newMember(t *testing.T, name string) *club.Member {
	t.Helper()
	m, err := club.NewMember(name, "")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormMemberRepository(f.db).Save(f.ctx, m))
	return m
}

func (f *fixture) newCollector(t *testing.T, kind club.CollectorType, rate *decimal.Decimal) *club.Collector {
	t.Helper()
	c, err := club.NewCollector("Cobrador", kind, rate)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormCollectorRepository(f.db).Save(f.ctx, c))
	return c
}

func (f *fixture) newService(t *testing.T, rate *decimal.Decimal) *club.Service {
	t.Helper()
	s, err := club.NewService("Tennis", rate)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormServiceRepository(f.db).Save(f.ctx, s))
	return s
}

func (f *fixture) debit(t *testing.T, memberID uuid.UUID, amount string, opts ledger.DebitOptions) *ledger.Movement {
	t.Helper()
	d, err := ledger.NewDebit(memberID, ledger.OriginQuota, dec(amount), "Monthly fee", time.Now(), opts)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormMovementRepository(f.db).Save(f.ctx, d))
	return d
}

func (f *fixture) movement(t *testing.T, id uuid.UUID) *ledger.Movement {
	t.Helper()
	m, err := persistence.NewGormMovementRepository(f.db).FindByID(f.ctx, id)
	require.NoError(t, err)
	return m
}

func (f *fixture) pay(t *testing.T, amount string, collectorID *uuid.UUID, allocations ...appledger.AllocationInput) *appledger.PaymentResponse {
	t.Helper()
	resp, err := f.payments.CreatePayment(f.ctx, appledger.CreatePaymentRequest{
		MemberID:    f.member.ID,
		Amount:      dec(amount),
		Concept:     "Cash at desk",
		CollectorID: collectorID,
		Allocations: allocations,
	})
	require.NoError(t, err)
	return resp
}

func alloc(id uuid.UUID, amount string) appledger.AllocationInput {
	return appledger.AllocationInput{DebitID: id, Amount: dec(amount)}
}

func TestPaymentService_CreatePayment(t *testing.T) {
	t.Run("waterfall across debits", func(t *testing.T) {
		f := newFixture(t)
		first := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		second := f.debit(t, f.member.ID, "50", ledger.DebitOptions{})

		resp := f.pay(t, "120", nil, alloc(first.ID, "100"), alloc(second.ID, "50"))

		assertDecimal(t, "120", resp.AllocatedAmount)
		assertDecimal(t, "0", resp.UnallocatedAmount)
		require.Len(t, resp.Allocations, 2)
		assertDecimal(t, "100", resp.Allocations[0].Amount)
		assertDecimal(t, "20", resp.Allocations[1].Amount)

		d1 := f.movement(t, first.ID)
		assert.Equal(t, ledger.DebitStatusSettled, d1.Debt.Status)
		d2 := f.movement(t, second.ID)
		assert.Equal(t, ledger.DebitStatusPartial, d2.Debt.Status)
		assertDecimal(t, "30", d2.PendingBalance())

		credit := f.movement(t, resp.CreditMovementID)
		require.NotNil(t, credit)
		assert.True(t, credit.IsCredit())
		assert.Equal(t, ledger.OriginPayment, credit.Origin)
		assertDecimal(t, "120", credit.Allocations.Total())
		assert.Equal(t, resp.ID, *credit.ReferenceID)

		assert.Contains(t, f.publisher.types(), ledger.EventTypePaymentRecorded)
	})

	t.Run("clamps to pending and leaves the rest unallocated", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "40", ledger.DebitOptions{})

		resp := f.pay(t, "100", nil, alloc(debit.ID, "100"))

		assertDecimal(t, "40", resp.AllocatedAmount)
		assertDecimal(t, "60", resp.UnallocatedAmount)
		assertDecimal(t, "60", f.movement(t, resp.CreditMovementID).PendingBalance())
	})

	t.Run("merges repeated debits", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})

		resp := f.pay(t, "50", nil, alloc(debit.ID, "20"), alloc(debit.ID, "30"))

		require.Len(t, resp.Allocations, 1)
		assertDecimal(t, "50", resp.Allocations[0].Amount)
	})

	t.Run("rejects debits of another member", func(t *testing.T) {
		f := newFixture(t)
		other := f.newMember(t, "Otro Socio")
		foreign := f.debit(t, other.ID, "100", ledger.DebitOptions{})

		_, err := f.payments.CreatePayment(f.ctx, appledger.CreatePaymentRequest{
			MemberID:    f.member.ID,
			Amount:      dec("50"),
			Allocations: []appledger.AllocationInput{alloc(foreign.ID, "50")},
		})
		assertCode(t, err, ledger.CodeMemberMismatch)

		count, err := persistence.NewGormPaymentRepository(f.db).Count(f.ctx, ledger.PaymentFilter{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("rejects unknown debit and member", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payments.CreatePayment(f.ctx, appledger.CreatePaymentRequest{
			MemberID:    f.member.ID,
			Amount:      dec("50"),
			Allocations: []appledger.AllocationInput{alloc(uuid.New(), "50")},
		})
		assertCode(t, err, ledger.CodeDebitNotFound)

		_, err = f.payments.CreatePayment(f.ctx, appledger.CreatePaymentRequest{MemberID: uuid.New(), Amount: dec("5")})
		assertCode(t, err, "NOT_FOUND")
	})

	t.Run("rejects non positive amount", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payments.CreatePayment(f.ctx, appledger.CreatePaymentRequest{MemberID: f.member.ID, Amount: dec("0")})
		assertCode(t, err, ledger.CodeInvalidAmount)
	})

	t.Run("rejects unknown collector", func(t *testing.T) {
		f := newFixture(t)
		missing := uuid.New()
		_, err := f.payments.CreatePayment(f.ctx, appledger.CreatePaymentRequest{
			MemberID: f.member.ID, Amount: dec("10"), CollectorID: &missing,
		})
		assertCode(t, err, "NOT_FOUND")
	})
}

func TestPaymentService_Commission(t *testing.T) {
	f := newFixture(t)

	teacher := f.newCollector(t, club.CollectorTypeTeacher, nil)
	resp := f.pay(t, "80", &teacher.ID)
	assertDecimal(t, "40", resp.CommissionAmount)

	staff := f.newCollector(t, club.CollectorTypeInternalStaff, nil)
	resp = f.pay(t, "80", &staff.ID)
	assertDecimal(t, "0", resp.CommissionAmount)

	serviceRate := dec("15")
	defaultRate := dec("10")
	service := f.newService(t, &serviceRate)
	external := f.newCollector(t, club.CollectorTypeExternal, &defaultRate)
	debit := f.debit(t, f.member.ID, "200", ledger.DebitOptions{ServiceID: &service.ID})

	resp = f.pay(t, "100", &external.ID, alloc(debit.ID, "100"))
	assertDecimal(t, "15", resp.CommissionAmount)

	resp = f.pay(t, "100", &external.ID)
	assertDecimal(t, "10", resp.CommissionAmount)
}

func TestPaymentService_UpdatePayment(t *testing.T) {
	t.Run("reapplies previous targets with the new amount", func(t *testing.T) {
		f := newFixture(t)
		first := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		second := f.debit(t, f.member.ID, "50", ledger.DebitOptions{})
		created := f.pay(t, "120", nil, alloc(first.ID, "100"), alloc(second.ID, "50"))

		amount := dec("60")
		resp, err := f.payments.UpdatePayment(f.ctx, created.ID, appledger.UpdatePaymentRequest{Amount: &amount})
		require.NoError(t, err)

		assertDecimal(t, "60", resp.Amount)
		assertDecimal(t, "60", resp.AllocatedAmount)
		d1 := f.movement(t, first.ID)
		assertDecimal(t, "60", d1.Debt.PaidAmount)
		assert.Equal(t, ledger.DebitStatusPartial, d1.Debt.Status)
		d2 := f.movement(t, second.ID)
		assertDecimal(t, "0", d2.Debt.PaidAmount)
		assert.Equal(t, ledger.DebitStatusPending, d2.Debt.Status)
		assert.Empty(t, d2.Allocations)

		credit := f.movement(t, created.CreditMovementID)
		assertDecimal(t, "60", credit.Amount)
		assertDecimal(t, "60", credit.Allocations.Total())
	})

	t.Run("moves allocations to new targets", func(t *testing.T) {
		f := newFixture(t)
		first := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		second := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		created := f.pay(t, "70", nil, alloc(first.ID, "70"))

		targets := []appledger.AllocationInput{alloc(second.ID, "70")}
		resp, err := f.payments.UpdatePayment(f.ctx, created.ID, appledger.UpdatePaymentRequest{Allocations: &targets})
		require.NoError(t, err)

		require.Len(t, resp.Allocations, 1)
		assert.Equal(t, second.ID, resp.Allocations[0].DebitID)
		assertDecimal(t, "0", f.movement(t, first.ID).Debt.PaidAmount)
		assertDecimal(t, "70", f.movement(t, second.ID).Debt.PaidAmount)
	})

	t.Run("concept only edit keeps allocations", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		created := f.pay(t, "30", nil, alloc(debit.ID, "30"))

		concept := "Transfer"
		resp, err := f.payments.UpdatePayment(f.ctx, created.ID, appledger.UpdatePaymentRequest{Concept: &concept})
		require.NoError(t, err)
		assert.Equal(t, "Transfer", resp.Concept)
		assertDecimal(t, "30", resp.AllocatedAmount)
		assertDecimal(t, "30", f.movement(t, debit.ID).Debt.PaidAmount)
	})

	t.Run("missing payment", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payments.UpdatePayment(f.ctx, uuid.New(), appledger.UpdatePaymentRequest{})
		assertCode(t, err, "NOT_FOUND")
	})
}

func TestPaymentService_DeletePayment(t *testing.T) {
	f := newFixture(t)
	debit := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
	created := f.pay(t, "100", nil, alloc(debit.ID, "100"))
	require.Equal(t, ledger.DebitStatusSettled, f.movement(t, debit.ID).Debt.Status)

	require.NoError(t, f.payments.DeletePayment(f.ctx, created.ID))

	d := f.movement(t, debit.ID)
	assertDecimal(t, "0", d.Debt.PaidAmount)
	assert.Equal(t, ledger.DebitStatusPending, d.Debt.Status)
	assert.Empty(t, d.Allocations)
	assert.Nil(t, f.movement(t, created.CreditMovementID))

	_, err := f.payments.GetPayment(f.ctx, created.ID)
	assertCode(t, err, "NOT_FOUND")
	assert.Contains(t, f.publisher.types(), ledger.EventTypePaymentDeleted)
}

func TestPaymentService_ListPayments(t *testing.T) {
	f := newFixture(t)
	teacher := f.newCollector(t, club.CollectorTypeTeacher, nil)
	f.pay(t, "10", nil)
	f.pay(t, "20", &teacher.ID)
	f.pay(t, "30", &teacher.ID)

	page, err := f.payments.ListPayments(f.ctx, appledger.ListPaymentsRequest{CollectorID: &teacher.ID, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 1)

	page, err = f.payments.ListPayments(f.ctx, appledger.ListPaymentsRequest{MemberID: &f.member.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}

func TestMovementService(t *testing.T) {
	t.Run("appends with aliases and totals the balance", func(t *testing.T) {
		f := newFixture(t)
		debit, err := f.movements.AppendMovement(f.ctx, appledger.AppendMovementRequest{
			MemberID: f.member.ID, Kind: "debito", Origin: "cuota", Amount: dec("100"), Concept: "March fee",
		})
		require.NoError(t, err)
		assert.Equal(t, "DEBIT", debit.Kind)
		assert.Equal(t, "PENDING", debit.Status)

		f.pay(t, "130", nil, alloc(debit.ID, "100"))

		balance, err := f.movements.GetMemberBalance(f.ctx, f.member.ID)
		require.NoError(t, err)
		assertDecimal(t, "100", balance.TotalDebits)
		assertDecimal(t, "130", balance.TotalCredits)
		assertDecimal(t, "0", balance.OutstandingDebt)
		assertDecimal(t, "30", balance.UnallocatedCredit)
		assertDecimal(t, "-30", balance.Balance)
		assert.Zero(t, balance.PendingDebits)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.movements.AppendMovement(f.ctx, appledger.AppendMovementRequest{
			MemberID: f.member.ID, Kind: "sideways", Origin: "QUOTA", Amount: dec("1"), Concept: "x",
		})
		assertCode(t, err, ledger.CodeInvalidType)

		_, err = f.movements.AppendMovement(f.ctx, appledger.AppendMovementRequest{
			MemberID: f.member.ID, Kind: "DEBIT", Origin: "QUOTA", Amount: dec("-5"), Concept: "x",
		})
		assertCode(t, err, ledger.CodeInvalidAmount)

		_, err = f.movements.AppendMovement(f.ctx, appledger.AppendMovementRequest{
			MemberID: uuid.New(), Kind: "DEBIT", Origin: "QUOTA", Amount: dec("5"), Concept: "x",
		})
		assertCode(t, err, "NOT_FOUND")
	})

	t.Run("lists pending only", func(t *testing.T) {
		f := newFixture(t)
		paid := f.debit(t, f.member.ID, "10", ledger.DebitOptions{})
		open := f.debit(t, f.member.ID, "20", ledger.DebitOptions{})
		f.pay(t, "10", nil, alloc(paid.ID, "10"))

		page, err := f.movements.ListMemberMovements(f.ctx, f.member.ID, appledger.ListMovementsRequest{Kind: "DEBIT", OnlyPending: true})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, open.ID, page.Items[0].ID)
	})

	t.Run("updates descriptive fields", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "10", ledger.DebitOptions{})
		concept := "April fee"
		due := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)

		resp, err := f.movements.UpdateMovement(f.ctx, debit.ID, appledger.UpdateMovementRequest{Concept: &concept, DueDate: &due})
		require.NoError(t, err)
		assert.Equal(t, "April fee", resp.Concept)
		require.NotNil(t, resp.DueDate)
		assertDecimal(t, "10", resp.Amount)
	})
}

func TestMovementService_DeleteMovement(t *testing.T) {
	t.Run("debit with payments needs cascade", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		payment := f.pay(t, "60", nil, alloc(debit.ID, "60"))

		_, err := f.movements.DeleteMovement(f.ctx, debit.ID, false)
		assertCode(t, err, ledger.CodeHasPayments)
		de, _ := shared.IsDomainError(err)
		assert.Equal(t, []uuid.UUID{payment.ID}, de.Details["payment_ids"])
		require.NotNil(t, f.movement(t, debit.ID))

		result, err := f.movements.DeleteMovement(f.ctx, debit.ID, true)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{payment.ID}, result.ScrubbedPayments)
		assert.Equal(t, []uuid.UUID{payment.CreditMovementID}, result.ScrubbedMovements)

		assert.Nil(t, f.movement(t, debit.ID))
		p, err := f.payments.GetPayment(f.ctx, payment.ID)
		require.NoError(t, err)
		assert.Empty(t, p.Allocations)
		assertDecimal(t, "60", p.UnallocatedAmount)
		assertDecimal(t, "60", f.movement(t, payment.CreditMovementID).PendingBalance())
	})

	t.Run("payment credit is protected", func(t *testing.T) {
		f := newFixture(t)
		payment := f.pay(t, "10", nil)

		_, err := f.movements.DeleteMovement(f.ctx, payment.CreditMovementID, true)
		assertCode(t, err, ledger.CodePaymentCredit)
	})

	t.Run("plain debit", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "10", ledger.DebitOptions{})

		_, err := f.movements.DeleteMovement(f.ctx, debit.ID, false)
		require.NoError(t, err)
		_, err = f.movements.DeleteMovement(f.ctx, debit.ID, false)
		assertCode(t, err, "NOT_FOUND")
	})
}

func TestRefinancingService(t *testing.T) {
	start := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	t.Run("supersedes originals and books the plan", func(t *testing.T) {
		f := newFixture(t)
		first := f.debit(t, f.member.ID, "200", ledger.DebitOptions{})
		second := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})

		plan, err := f.refinancings.CreateRefinancing(f.ctx, appledger.CreateRefinancingRequest{
			MemberID:           f.member.ID,
			DebitIDs:           []uuid.UUID{first.ID, second.ID},
			Principal:          dec("300"),
			Installments:       3,
			DownPaymentPercent: dec("10"),
			StartDueDate:       start,
		})
		require.NoError(t, err)

		assertDecimal(t, "30", plan.DownPaymentAmount)
		require.Len(t, plan.Schedule, 3)
		total := plan.DownPaymentAmount
		for _, e := range plan.Schedule {
			total = total.Add(e.Amount)
			assert.NotEqual(t, uuid.Nil, e.DebitID)
		}
		assertDecimal(t, "300", total)
		assertDecimal(t, "90", plan.Schedule[0].Amount)
		assert.Equal(t, "ACTIVE", plan.Status)
		require.NotNil(t, plan.DownPaymentMovementID)

		for _, id := range []uuid.UUID{first.ID, second.ID} {
			original := f.movement(t, id)
			assert.Equal(t, ledger.LifecycleRefinanced, original.Debt.Lifecycle)
			assert.Equal(t, plan.ID, *original.Debt.RefinancingID)
		}
		installment := f.movement(t, plan.Schedule[1].DebitID)
		assert.Equal(t, ledger.OriginRefinancing, installment.Origin)
		assert.Equal(t, 2, installment.Debt.InstallmentNumber)
		assert.True(t, installment.Debt.DueDate.Equal(start.AddDate(0, 1, 0)))

		_, err = f.payments.CreatePayment(f.ctx, appledger.CreatePaymentRequest{
			MemberID: f.member.ID, Amount: dec("10"),
			Allocations: []appledger.AllocationInput{alloc(first.ID, "10")},
		})
		assertCode(t, err, ledger.CodeNotAllocatable)
	})

	t.Run("paying every installment closes the plan", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		plan, err := f.refinancings.CreateRefinancing(f.ctx, appledger.CreateRefinancingRequest{
			MemberID: f.member.ID, DebitIDs: []uuid.UUID{debit.ID}, Principal: dec("100"),
			Installments: 2, StartDueDate: start,
		})
		require.NoError(t, err)

		f.pay(t, "50", nil, alloc(plan.Schedule[0].DebitID, "50"))
		got, err := f.refinancings.GetRefinancing(f.ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.InstallmentStatusPaid, got.Schedule[0].Status)
		assert.Equal(t, "ACTIVE", got.Status)

		last := f.pay(t, "50", nil, alloc(plan.Schedule[1].DebitID, "50"))
		got, err = f.refinancings.GetRefinancing(f.ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, "CLOSED", got.Status)
		assert.Contains(t, f.publisher.types(), ledger.EventTypeRefinancingClosed)

		require.NoError(t, f.payments.DeletePayment(f.ctx, last.ID))
		got, err = f.refinancings.GetRefinancing(f.ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, "ACTIVE", got.Status)
		assert.Equal(t, ledger.InstallmentStatusPending, got.Schedule[1].Status)
	})

	t.Run("rejects superseded and unknown debits", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		req := appledger.CreateRefinancingRequest{
			MemberID: f.member.ID, DebitIDs: []uuid.UUID{debit.ID}, Principal: dec("100"),
			Installments: 1, StartDueDate: start,
		}
		_, err := f.refinancings.CreateRefinancing(f.ctx, req)
		require.NoError(t, err)

		_, err = f.refinancings.CreateRefinancing(f.ctx, req)
		assertCode(t, err, ledger.CodeInvalidPlan)

		req.DebitIDs = []uuid.UUID{uuid.New()}
		_, err = f.refinancings.CreateRefinancing(f.ctx, req)
		assertCode(t, err, ledger.CodeDebitNotFound)
	})

	t.Run("payments on refinanced debits are frozen", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "1000", ledger.DebitOptions{})
		payment := f.pay(t, "400", nil, alloc(debit.ID, "400"))
		_, err := f.refinancings.CreateRefinancing(f.ctx, appledger.CreateRefinancingRequest{
			MemberID: f.member.ID, DebitIDs: []uuid.UUID{debit.ID}, Principal: dec("600"),
			Installments: 2, StartDueDate: start,
		})
		require.NoError(t, err)

		amount := dec("300")
		_, err = f.payments.UpdatePayment(f.ctx, payment.ID, appledger.UpdatePaymentRequest{Amount: &amount})
		assertCode(t, err, "CONFLICT")

		err = f.payments.DeletePayment(f.ctx, payment.ID)
		assertCode(t, err, "CONFLICT")

		original := f.movement(t, debit.ID)
		assert.Equal(t, ledger.LifecycleRefinanced, original.Debt.Lifecycle)
		assertDecimal(t, "400", original.Debt.PaidAmount)
		_, err = f.payments.GetPayment(f.ctx, payment.ID)
		require.NoError(t, err)
		assert.NotNil(t, f.movement(t, payment.CreditMovementID))
	})

	t.Run("debit inside a plan cannot be deleted", func(t *testing.T) {
		f := newFixture(t)
		debit := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})
		_, err := f.refinancings.CreateRefinancing(f.ctx, appledger.CreateRefinancingRequest{
			MemberID: f.member.ID, DebitIDs: []uuid.UUID{debit.ID}, Principal: dec("100"),
			Installments: 1, StartDueDate: start,
		})
		require.NoError(t, err)

		_, err = f.movements.DeleteMovement(f.ctx, debit.ID, true)
		assertCode(t, err, "CONFLICT")
	})
}

func newReservation(t *testing.T, f *fixture, face string) (*club.Reservation, *ledger.Movement) {
	t.Helper()
	r, err := club.NewReservation(f.member.ID, nil, time.Now(), dec(face))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormReservationRepository(f.db).Save(f.ctx, r))
	debit := f.debit(t, f.member.ID, face, ledger.DebitOptions{ReferenceID: &r.ID})
	return r, debit
}

func TestCancellationService(t *testing.T) {
	t.Run("full refund removes the payment", func(t *testing.T) {
		f := newFixture(t)
		r, debit := newReservation(t, f, "200")
		payment := f.pay(t, "150", nil, alloc(debit.ID, "150"))

		resp, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{RefundType: "full"})
		require.NoError(t, err)

		assertDecimal(t, "150", resp.TotalPaid)
		assert.Equal(t, []uuid.UUID{payment.ID}, resp.DeletedPayments)
		assert.Equal(t, "CANCELLED", resp.Reservation.Status)
		assertDecimal(t, "150", resp.Reservation.RefundAmount)
		require.NotNil(t, resp.CreditNoteID)
		require.Len(t, resp.MovementIDs, 2)

		voided := f.movement(t, debit.ID)
		assert.Equal(t, ledger.LifecycleVoided, voided.Debt.Lifecycle)
		assert.Equal(t, *resp.CreditNoteID, *voided.Debt.CancellationRef)
		note := f.movement(t, *resp.CreditNoteID)
		assertDecimal(t, "200", note.Amount)
		refund := f.movement(t, resp.MovementIDs[1])
		assert.Equal(t, ledger.OriginRefund, refund.Origin)
		assertDecimal(t, "150", refund.Amount)

		assert.Nil(t, f.movement(t, payment.CreditMovementID))
		assert.Contains(t, f.publisher.types(), ledger.EventTypeReservationCancelled)

		_, err = f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{RefundType: "FULL"})
		assertCode(t, err, "INVALID_STATE")
	})

	t.Run("no refund keeps the money as a settled penalty", func(t *testing.T) {
		f := newFixture(t)
		r, debit := newReservation(t, f, "100")
		f.pay(t, "100", nil, alloc(debit.ID, "100"))

		resp, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{RefundType: "NONE"})
		require.NoError(t, err)
		assertDecimal(t, "100", resp.Reservation.PenaltyAmount)
		require.Len(t, resp.MovementIDs, 2)
		penalty := f.movement(t, resp.MovementIDs[1])
		assert.Equal(t, ledger.DebitStatusSettled, penalty.Debt.Status)
	})

	t.Run("partial refund must add up", func(t *testing.T) {
		f := newFixture(t)
		r, debit := newReservation(t, f, "100")
		f.pay(t, "80", nil, alloc(debit.ID, "80"))

		refund, penalty := dec("50"), dec("20")
		_, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{
			RefundType: "PARTIAL", RefundAmount: &refund, PenaltyAmount: &penalty,
		})
		assertCode(t, err, ledger.CodeRefundMismatch)

		penalty = dec("30")
		resp, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{
			RefundType: "PARTIAL", RefundAmount: &refund, PenaltyAmount: &penalty, Reason: "rain",
		})
		require.NoError(t, err)
		assert.Len(t, resp.MovementIDs, 3)
		assert.Equal(t, "rain", resp.Reservation.CancelReason)
	})

	t.Run("partial refund needs a prior payment", func(t *testing.T) {
		f := newFixture(t)
		r, _ := newReservation(t, f, "100")
		refund := dec("0")
		_, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{
			RefundType: "PARTIAL", RefundAmount: &refund, PenaltyAmount: &refund,
		})
		assertCode(t, err, ledger.CodeNoPriorPayment)
	})

	t.Run("shared payment is trimmed", func(t *testing.T) {
		f := newFixture(t)
		r, debit := newReservation(t, f, "100")
		other := f.debit(t, f.member.ID, "40", ledger.DebitOptions{})
		payment := f.pay(t, "140", nil, alloc(debit.ID, "100"), alloc(other.ID, "40"))

		resp, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{RefundType: "NONE"})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{payment.ID}, resp.AdjustedPayments)

		p, err := f.payments.GetPayment(f.ctx, payment.ID)
		require.NoError(t, err)
		assertDecimal(t, "40", p.Amount)
		require.Len(t, p.Allocations, 1)
		assert.Equal(t, other.ID, p.Allocations[0].DebitID)
		assertDecimal(t, "40", f.movement(t, payment.CreditMovementID).Amount)
		assertDecimal(t, "40", f.movement(t, other.ID).Debt.PaidAmount)
	})

	t.Run("partial refund of a fully paid reservation", func(t *testing.T) {
		f := newFixture(t)
		r, debit := newReservation(t, f, "100000")
		f.pay(t, "100000", nil, alloc(debit.ID, "100000"))

		refund, penalty := dec("60000"), dec("40000")
		resp, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{
			RefundType: "PARTIAL", RefundAmount: &refund, PenaltyAmount: &penalty,
		})
		require.NoError(t, err)
		assertDecimal(t, "100000", resp.TotalPaid)
		require.Len(t, resp.MovementIDs, 3)

		note := f.movement(t, resp.MovementIDs[0])
		assert.Equal(t, *resp.CreditNoteID, note.ID)
		assert.True(t, note.IsCredit())
		assertDecimal(t, "100000", note.Amount)

		penaltyDebit := f.movement(t, resp.MovementIDs[1])
		assert.True(t, penaltyDebit.IsDebit())
		assertDecimal(t, "40000", penaltyDebit.Amount)
		assert.Equal(t, ledger.DebitStatusSettled, penaltyDebit.Debt.Status)

		refundDebit := f.movement(t, resp.MovementIDs[2])
		assert.Equal(t, ledger.OriginRefund, refundDebit.Origin)
		assertDecimal(t, "60000", refundDebit.Amount)
		assert.Equal(t, ledger.DebitStatusPending, refundDebit.Debt.Status)

		voided := f.movement(t, debit.ID)
		assert.Equal(t, ledger.LifecycleVoided, voided.Debt.Lifecycle)
		assertDecimal(t, "100000", voided.Debt.PaidAmount)
	})

	t.Run("overpayment credit survives cancellation", func(t *testing.T) {
		f := newFixture(t)
		r, debit := newReservation(t, f, "100")
		payment := f.pay(t, "150", nil, alloc(debit.ID, "100"))

		before, err := f.movements.GetMemberBalance(f.ctx, f.member.ID)
		require.NoError(t, err)
		assertDecimal(t, "50", before.UnallocatedCredit)

		resp, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{RefundType: "FULL"})
		require.NoError(t, err)
		assertDecimal(t, "100", resp.TotalPaid)
		assertDecimal(t, "100", resp.Reservation.RefundAmount)
		assert.Empty(t, resp.DeletedPayments)
		assert.Equal(t, []uuid.UUID{payment.ID}, resp.AdjustedPayments)

		p, err := f.payments.GetPayment(f.ctx, payment.ID)
		require.NoError(t, err)
		assertDecimal(t, "50", p.Amount)
		assert.Empty(t, p.Allocations)
		assertDecimal(t, "50", f.movement(t, payment.CreditMovementID).Amount)

		after, err := f.movements.GetMemberBalance(f.ctx, f.member.ID)
		require.NoError(t, err)
		assertDecimal(t, "50", after.UnallocatedCredit)
	})

	t.Run("credit note is split evenly across debits", func(t *testing.T) {
		f := newFixture(t)
		r, err := club.NewReservation(f.member.ID, nil, time.Now(), dec("100"))
		require.NoError(t, err)
		require.NoError(t, persistence.NewGormReservationRepository(f.db).Save(f.ctx, r))
		court := f.debit(t, f.member.ID, "70", ledger.DebitOptions{ReferenceID: &r.ID})
		lights := f.debit(t, f.member.ID, "30", ledger.DebitOptions{ReferenceID: &r.ID})

		resp, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{RefundType: "NONE"})
		require.NoError(t, err)
		require.NotNil(t, resp.CreditNoteID)

		note := f.movement(t, *resp.CreditNoteID)
		assertDecimal(t, "100", note.Amount)
		require.Len(t, note.Allocations, 2)
		for _, a := range note.Allocations {
			assertDecimal(t, "50", a.Amount)
		}
		for _, id := range []uuid.UUID{court.ID, lights.ID} {
			voided := f.movement(t, id)
			assert.Equal(t, ledger.LifecycleVoided, voided.Debt.Lifecycle)
			assert.True(t, voided.Amount.Equal(voided.Debt.PaidAmount))
		}
	})

	t.Run("reservation without debits still gets a credit note", func(t *testing.T) {
		f := newFixture(t)
		r, err := club.NewReservation(f.member.ID, nil, time.Now(), dec("100"))
		require.NoError(t, err)
		require.NoError(t, persistence.NewGormReservationRepository(f.db).Save(f.ctx, r))

		resp, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{RefundType: "NONE"})
		require.NoError(t, err)
		require.NotNil(t, resp.CreditNoteID)
		assert.Equal(t, []uuid.UUID{*resp.CreditNoteID}, resp.MovementIDs)
		assert.Empty(t, resp.VoidedDebits)

		note := f.movement(t, *resp.CreditNoteID)
		assertDecimal(t, "100", note.Amount)
		assert.Empty(t, note.Allocations)
	})

	t.Run("unknown refund type and reservation", func(t *testing.T) {
		f := newFixture(t)
		r, _ := newReservation(t, f, "100")
		_, err := f.cancellations.CancelReservation(f.ctx, r.ID, appledger.CancelReservationRequest{RefundType: "SOME"})
		assertCode(t, err, ledger.CodeInvalidRefundType)

		_, err = f.cancellations.CancelReservation(f.ctx, uuid.New(), appledger.CancelReservationRequest{RefundType: "FULL"})
		assertCode(t, err, "NOT_FOUND")
	})
}

func TestSettlementService(t *testing.T) {
	t.Run("settles commissions and locks the payments", func(t *testing.T) {
		f := newFixture(t)
		teacher := f.newCollector(t, club.CollectorTypeTeacher, nil)
		first := f.pay(t, "100", &teacher.ID)
		second := f.pay(t, "40", &teacher.ID)

		settlement, err := f.settlements.CreateSettlement(f.ctx, appledger.CreateSettlementRequest{
			CollectorID: teacher.ID,
			PaymentIDs:  []uuid.UUID{first.ID, second.ID},
			FormaPago:   "TRANSFER",
		})
		require.NoError(t, err)
		assertDecimal(t, "70", settlement.Amount)
		assert.Equal(t, "TRANSFER", settlement.FormaPago)
		assert.Equal(t, ledger.PeriodOf(settlement.Date), settlement.Period)

		p, err := f.payments.GetPayment(f.ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, p.CommissionSettled)
		assert.Equal(t, settlement.ID, *p.SettlementID)

		amount := dec("90")
		_, err = f.payments.UpdatePayment(f.ctx, first.ID, appledger.UpdatePaymentRequest{Amount: &amount})
		assertCode(t, err, ledger.CodeAlreadySettled)
		assertCode(t, f.payments.DeletePayment(f.ctx, first.ID), ledger.CodeAlreadySettled)

		concept := "Receipt 12"
		_, err = f.payments.UpdatePayment(f.ctx, first.ID, appledger.UpdatePaymentRequest{Concept: &concept})
		assert.NoError(t, err)

		summary, err := f.settlements.GetCollectorCommissions(f.ctx, teacher.ID)
		require.NoError(t, err)
		assertDecimal(t, "70", summary.SettledTotal)
		assert.Equal(t, 2, summary.SettledCount)
		assert.Zero(t, summary.PendingCount)

		list, err := f.settlements.ListCollectorSettlements(f.ctx, teacher.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("all or nothing", func(t *testing.T) {
		f := newFixture(t)
		teacher := f.newCollector(t, club.CollectorTypeTeacher, nil)
		settled := f.pay(t, "10", &teacher.ID)
		open := f.pay(t, "20", &teacher.ID)
		_, err := f.settlements.CreateSettlement(f.ctx, appledger.CreateSettlementRequest{
			CollectorID: teacher.ID, PaymentIDs: []uuid.UUID{settled.ID}, FormaPago: "CASH",
		})
		require.NoError(t, err)

		_, err = f.settlements.CreateSettlement(f.ctx, appledger.CreateSettlementRequest{
			CollectorID: teacher.ID, PaymentIDs: []uuid.UUID{open.ID, settled.ID}, FormaPago: "CASH",
		})
		assertCode(t, err, ledger.CodeAlreadySettled)

		p, err := f.payments.GetPayment(f.ctx, open.ID)
		require.NoError(t, err)
		assert.False(t, p.CommissionSettled)
		assert.Nil(t, p.SettlementID)
	})

	t.Run("rejects foreign and commission free payments", func(t *testing.T) {
		f := newFixture(t)
		teacher := f.newCollector(t, club.CollectorTypeTeacher, nil)
		staff := f.newCollector(t, club.CollectorTypeInternalStaff, nil)
		foreign := f.pay(t, "10", &staff.ID)

		_, err := f.settlements.CreateSettlement(f.ctx, appledger.CreateSettlementRequest{
			CollectorID: teacher.ID, PaymentIDs: []uuid.UUID{foreign.ID}, FormaPago: "CASH",
		})
		assertCode(t, err, "INVALID_INPUT")

		_, err = f.settlements.CreateSettlement(f.ctx, appledger.CreateSettlementRequest{
			CollectorID: staff.ID, PaymentIDs: []uuid.UUID{foreign.ID}, FormaPago: "CASH",
		})
		assertCode(t, err, ledger.CodeInvalidCommission)

		_, err = f.settlements.CreateSettlement(f.ctx, appledger.CreateSettlementRequest{
			CollectorID: teacher.ID, PaymentIDs: []uuid.UUID{uuid.New()}, FormaPago: "CASH",
		})
		assertCode(t, err, "NOT_FOUND")

		_, err = f.settlements.CreateSettlement(f.ctx, appledger.CreateSettlementRequest{
			CollectorID: uuid.New(), PaymentIDs: []uuid.UUID{foreign.ID}, FormaPago: "CASH",
		})
		assertCode(t, err, "NOT_FOUND")
	})
}

func TestServices_ConcurrentPaymentsNeverOverAllocate(t *testing.T) {
	f := newFixture(t)
	debit := f.debit(t, f.member.ID, "100", ledger.DebitOptions{})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.payments.CreatePayment(f.ctx, appledger.CreatePaymentRequest{
				MemberID:    f.member.ID,
				Amount:      dec("30"),
				Allocations: []appledger.AllocationInput{alloc(debit.ID, "30")},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	d := f.movement(t, debit.ID)
	assertDecimal(t, "100", d.Debt.PaidAmount)
	assert.Equal(t, ledger.DebitStatusSettled, d.Debt.Status)
	assertDecimal(t, "100", d.Allocations.Total())
}
