package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxInstallments caps the length of a refinancing plan
const MaxInstallments = 120

// RefinancingStatus is ACTIVE while installments remain unpaid
type RefinancingStatus string

const (
	RefinancingStatusActive RefinancingStatus = "ACTIVE"
	RefinancingStatusClosed RefinancingStatus = "CLOSED"
)

// InstallmentStatus mirrors the progress of an installment's debit
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPartial InstallmentStatus = "PARTIAL"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
)

func installmentStatusOf(s DebitStatus) InstallmentStatus {
	switch s {
	case DebitStatusSettled:
		return InstallmentStatusPaid
	case DebitStatusPartial:
		return InstallmentStatusPartial
	default:
		return InstallmentStatusPending
	}
}

// Audit actions
const (
	AuditActionCreated  = "CREATED"
	AuditActionPayment  = "PAYMENT_SYNCED"
	AuditActionClosed   = "CLOSED"
	AuditActionReopened = "REOPENED"
)

// DebitSnapshot is the state of an original debit when it was refinanced
type DebitSnapshot struct {
	DebitID    uuid.UUID       `json:"debit_id"`
	Concept    string          `json:"concept"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
}

// ScheduleEntry is one installment of a plan
type ScheduleEntry struct {
	Number     int               `json:"number"`
	Amount     decimal.Decimal   `json:"amount"`
	DueDate    time.Time         `json:"due_date"`
	PaidAmount decimal.Decimal   `json:"paid_amount"`
	Status     InstallmentStatus `json:"status"`
	DebitID    uuid.UUID         `json:"debit_id"`
}

// AuditEntry is a line of the refinancing audit trail
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// DebitSnapshots is stored as JSONB
type DebitSnapshots []DebitSnapshot

// Schedule is stored as JSONB
type Schedule []ScheduleEntry

// AuditTrail is stored as JSONB
type AuditTrail []AuditEntry

// UUIDList is stored as a JSON array
type UUIDList []uuid.UUID

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Value implements driver.Valuer
func (s DebitSnapshots) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonValue(s)
}

// Scan implements sql.Scanner
func (s *DebitSnapshots) Scan(value any) error {
	return scanJSON(value, s, func() { *s = DebitSnapshots{} })
}

// Value implements driver.Valuer
func (s Schedule) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonValue(s)
}

// Scan implements sql.Scanner
func (s *Schedule) Scan(value any) error {
	return scanJSON(value, s, func() { *s = Schedule{} })
}

// Total sums the installment amounts
func (s Schedule) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s {
		total = total.Add(e.Amount)
	}
	return total
}

// Value implements driver.Valuer
func (a AuditTrail) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return jsonValue(a)
}

// Scan implements sql.Scanner
func (a *AuditTrail) Scan(value any) error {
	return scanJSON(value, a, func() { *a = AuditTrail{} })
}

// Value implements driver.Valuer
func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue(l)
}

// Scan implements sql.Scanner
func (l *UUIDList) Scan(value any) error {
	return scanJSON(value, l, func() { *l = UUIDList{} })
}

// Contains reports whether id is in the list
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// InstallmentPlan is the arithmetic of a refinancing before any debit exists
type InstallmentPlan struct {
	DownPaymentAmount decimal.Decimal
	Amounts           []decimal.Decimal
	DueDates          []time.Time
}

// PlanInstallments splits principal into a down payment and n installments.
// Installments are whole currency units; the last one absorbs the remainder.
func PlanInstallments(principal, downPaymentPercent decimal.Decimal, n int, start time.Time) (InstallmentPlan, error) {
	if !principal.IsPositive() {
		return InstallmentPlan{}, shared.NewDomainError(CodeInvalidPlan, "Principal must be positive")
	}
	if n < 1 || n > MaxInstallments {
		return InstallmentPlan{}, shared.NewDomainError(CodeInvalidPlan,
			fmt.Sprintf("Installment count must be between 1 and %d", MaxInstallments))
	}
	if downPaymentPercent.IsNegative() || downPaymentPercent.GreaterThanOrEqual(hundred) {
		return InstallmentPlan{}, shared.NewDomainError(CodeInvalidPlan, "Down payment percent must be in [0, 100)")
	}
	if start.IsZero() {
		return InstallmentPlan{}, shared.NewDomainError(CodeInvalidPlan, "Start due date is required")
	}

	down := RoundMoney(principal.Mul(downPaymentPercent).Div(hundred))
	remaining := principal.Sub(down)
	count := decimal.NewFromInt(int64(n))
	installment := remaining.Div(count).Floor()
	if n > 1 && !installment.IsPositive() {
		return InstallmentPlan{}, shared.NewDomainError(CodeInvalidPlan,
			fmt.Sprintf("Remaining %s is too small for %d installments", remaining, n))
	}
	last := remaining.Sub(installment.Mul(count.Sub(decimal.NewFromInt(1))))
	if !last.IsPositive() {
		return InstallmentPlan{}, shared.NewDomainError(CodeInvalidPlan, "Nothing left to refinance after the down payment")
	}

	plan := InstallmentPlan{
		DownPaymentAmount: down,
		Amounts:           make([]decimal.Decimal, n),
		DueDates:          make([]time.Time, n),
	}
	for i := 0; i < n; i++ {
		plan.Amounts[i] = installment
		plan.DueDates[i] = AddMonths(start, i)
	}
	plan.Amounts[n-1] = last
	return plan, nil
}

// Refinancing replaces a set of original debits with an installment plan
type Refinancing struct {
	shared.BaseAggregateRoot
	MemberID              uuid.UUID
	OriginalDebitIDs      UUIDList
	Snapshot              DebitSnapshots
	Principal             decimal.Decimal
	DownPaymentPercent    decimal.Decimal
	DownPaymentAmount     decimal.Decimal
	DownPaymentMovementID *uuid.UUID
	InstallmentCount      int
	Schedule              Schedule
	Status                RefinancingStatus
	AuditTrail            AuditTrail
}

// NewRefinancing validates the originals, snapshots them and lays out the
// schedule. Installment debits are minted afterwards with InstallmentDebit.
func NewRefinancing(memberID uuid.UUID, originals []*Movement, principal, downPaymentPercent decimal.Decimal, n int, start time.Time) (*Refinancing, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBER", "Member ID cannot be empty")
	}
	if len(originals) == 0 {
		return nil, shared.NewDomainError(CodeInvalidPlan, "At least one debit is required")
	}
	plan, err := PlanInstallments(principal, downPaymentPercent, n, start)
	if err != nil {
		return nil, err
	}

	ids := make(UUIDList, 0, len(originals))
	snapshot := make(DebitSnapshots, 0, len(originals))
	seen := make(map[uuid.UUID]bool, len(originals))
	for _, d := range originals {
		if seen[d.ID] {
			return nil, shared.NewDomainError(CodeInvalidPlan, fmt.Sprintf("Debit %s is listed twice", d.ID))
		}
		seen[d.ID] = true
		if d.MemberID != memberID {
			return nil, shared.NewDomainError(CodeMemberMismatch,
				fmt.Sprintf("Debit %s belongs to a different member", d.ID))
		}
		if !d.IsDebit() {
			return nil, shared.NewDomainError(CodeInvalidPlan, fmt.Sprintf("Movement %s is not a debit", d.ID))
		}
		if d.Debt.Lifecycle.IsSuperseded() {
			return nil, shared.NewDomainError(CodeInvalidPlan,
				fmt.Sprintf("Debit %s is already %s", d.ID, d.Debt.Lifecycle))
		}
		if d.Debt.Status == DebitStatusSettled {
			return nil, shared.NewDomainError(CodeInvalidPlan, fmt.Sprintf("Debit %s is already settled", d.ID))
		}
		ids = append(ids, d.ID)
		snapshot = append(snapshot, DebitSnapshot{
			DebitID:    d.ID,
			Concept:    d.Concept,
			Amount:     d.Amount,
			PaidAmount: d.Debt.PaidAmount,
			DueDate:    d.Debt.DueDate,
		})
	}

	r := &Refinancing{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		MemberID:           memberID,
		OriginalDebitIDs:   ids,
		Snapshot:           snapshot,
		Principal:          principal,
		DownPaymentPercent: downPaymentPercent,
		DownPaymentAmount:  plan.DownPaymentAmount,
		InstallmentCount:   n,
		Schedule:           make(Schedule, n),
		Status:             RefinancingStatusActive,
		AuditTrail:         AuditTrail{},
	}
	for i := range plan.Amounts {
		r.Schedule[i] = ScheduleEntry{
			Number:     i + 1,
			Amount:     plan.Amounts[i],
			DueDate:    plan.DueDates[i],
			PaidAmount: decimal.Zero,
			Status:     InstallmentStatusPending,
		}
	}
	r.audit(AuditActionCreated, fmt.Sprintf("principal=%s down_payment=%s installments=%d debits=%d",
		principal, plan.DownPaymentAmount, n, len(ids)))
	r.AddDomainEvent(NewRefinancingEvent(EventTypeRefinancingCreated, r))
	return r, nil
}

// SharedServiceID returns the service every original debit points at, if they agree
func SharedServiceID(originals []*Movement) *uuid.UUID {
	var common *uuid.UUID
	for _, d := range originals {
		if !d.IsDebit() || d.Debt.ServiceID == nil {
			return nil
		}
		if common == nil {
			id := *d.Debt.ServiceID
			common = &id
			continue
		}
		if *common != *d.Debt.ServiceID {
			return nil
		}
	}
	return common
}

// InstallmentDebit builds the debit for schedule entry number (1-based)
func (r *Refinancing) InstallmentDebit(number int, serviceID *uuid.UUID) (*Movement, error) {
	if number < 1 || number > len(r.Schedule) {
		return nil, shared.NewDomainError(CodeInvalidPlan, fmt.Sprintf("Installment %d does not exist", number))
	}
	entry := r.Schedule[number-1]
	due := entry.DueDate
	refID := r.ID
	debit, err := NewDebit(r.MemberID, OriginRefinancing, entry.Amount,
		fmt.Sprintf("Refinancing installment %d/%d", number, r.InstallmentCount),
		time.Now(), DebitOptions{DueDate: &due, ServiceID: serviceID, ReferenceID: &refID})
	if err != nil {
		return nil, err
	}
	debit.Debt.RefinancingID = &refID
	debit.Debt.InstallmentNumber = number
	r.Schedule[number-1].DebitID = debit.ID
	return debit, nil
}

// DownPaymentCredit builds the credit for the down payment, nil when there is none
func (r *Refinancing) DownPaymentCredit() (*Movement, error) {
	if !r.DownPaymentAmount.IsPositive() {
		return nil, nil
	}
	refID := r.ID
	credit, err := NewCredit(r.MemberID, OriginRefinancing, r.DownPaymentAmount,
		"Refinancing down payment", time.Now(), &refID)
	if err != nil {
		return nil, err
	}
	r.DownPaymentMovementID = &credit.ID
	return credit, nil
}

// CheckConservation verifies principal == down payment + sum(schedule)
func (r *Refinancing) CheckConservation() error {
	total := r.DownPaymentAmount.Add(r.Schedule.Total())
	if !total.Equal(r.Principal) {
		return shared.NewDomainError(CodeInvalidPlan,
			fmt.Sprintf("Plan total %s does not match principal %s", total, r.Principal))
	}
	return nil
}

// SyncInstallment copies the linked debit's progress into the schedule and
// closes or reopens the plan. It returns false when the debit is not part of
// this plan.
func (r *Refinancing) SyncInstallment(debit *Movement) bool {
	if !debit.IsDebit() {
		return false
	}
	idx := -1
	for i := range r.Schedule {
		if r.Schedule[i].DebitID == debit.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	entry := &r.Schedule[idx]
	status := installmentStatusOf(debit.Debt.Status)
	if entry.PaidAmount.Equal(debit.Debt.PaidAmount) && entry.Status == status {
		return true
	}
	entry.PaidAmount = debit.Debt.PaidAmount
	entry.Status = status
	r.audit(AuditActionPayment, fmt.Sprintf("installment=%d paid=%s status=%s", entry.Number, entry.PaidAmount, status))

	allPaid := true
	for _, e := range r.Schedule {
		if e.Status != InstallmentStatusPaid {
			allPaid = false
			break
		}
	}
	switch {
	case allPaid && r.Status == RefinancingStatusActive:
		r.Status = RefinancingStatusClosed
		r.audit(AuditActionClosed, "all installments paid")
		r.AddDomainEvent(NewRefinancingEvent(EventTypeRefinancingClosed, r))
	case !allPaid && r.Status == RefinancingStatusClosed:
		r.Status = RefinancingStatusActive
		r.audit(AuditActionReopened, fmt.Sprintf("installment %d no longer paid", entry.Number))
	}
	r.Touch()
	r.IncrementVersion()
	return true
}

func (r *Refinancing) audit(action, details string) {
	r.AuditTrail = append(r.AuditTrail, AuditEntry{
		Timestamp: time.Now(),
		Action:    action,
		Details:   details,
	})
}
