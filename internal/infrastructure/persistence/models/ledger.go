package models

import (
	"time"

	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementModel is the persistence model for the Movement aggregate root.
// Debit-only columns are zero for credits.
type MovementModel struct {
	AggregateModel
	MemberID          uuid.UUID          `gorm:"type:uuid;not null;index:idx_movement_member_date,priority:1"`
	Date              time.Time          `gorm:"not null;index:idx_movement_member_date,priority:2"`
	Concept           string             `gorm:"type:varchar(255);not null"`
	Kind              ledger.Kind        `gorm:"type:varchar(10);not null;index"`
	Amount            decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Origin            ledger.Origin      `gorm:"type:varchar(20);not null"`
	ReferenceID       *uuid.UUID         `gorm:"type:uuid;index"`
	Allocations       ledger.Allocations `gorm:"type:jsonb;default:'[]'"`
	DueDate           *time.Time
	ServiceID         *uuid.UUID         `gorm:"type:uuid;index"`
	PaidAmount        decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Status            ledger.DebitStatus `gorm:"type:varchar(20);index"`
	Lifecycle         ledger.Lifecycle   `gorm:"type:varchar(20);index"`
	RefinancingID     *uuid.UUID         `gorm:"type:uuid;index"`
	InstallmentNumber int                `gorm:"not null;default:0"`
	CancellationRef   *uuid.UUID         `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (MovementModel) TableName() string {
	return "movements"
}

// ToDomain converts the persistence model to a domain Movement
func (m *MovementModel) ToDomain() *ledger.Movement {
	movement := &ledger.Movement{
		BaseAggregateRoot: m.ToAggregateRoot(),
		MemberID:          m.MemberID,
		Date:              m.Date,
		Concept:           m.Concept,
		Kind:              m.Kind,
		Amount:            m.Amount,
		Origin:            m.Origin,
		ReferenceID:       m.ReferenceID,
		Allocations:       m.Allocations,
	}
	if movement.Allocations == nil {
		movement.Allocations = ledger.Allocations{}
	}
	if m.Kind == ledger.KindDebit {
		movement.Debt = &ledger.Debt{
			DueDate:           m.DueDate,
			ServiceID:         m.ServiceID,
			PaidAmount:        m.PaidAmount,
			Status:            m.Status,
			Lifecycle:         m.Lifecycle,
			RefinancingID:     m.RefinancingID,
			InstallmentNumber: m.InstallmentNumber,
			CancellationRef:   m.CancellationRef,
		}
	}
	return movement
}

// FromDomain populates the persistence model from a domain Movement
func (m *MovementModel) FromDomain(movement *ledger.Movement) {
	m.FromDomainAggregateRoot(movement.BaseAggregateRoot)
	m.MemberID = movement.MemberID
	m.Date = movement.Date
	m.Concept = movement.Concept
	m.Kind = movement.Kind
	m.Amount = movement.Amount
	m.Origin = movement.Origin
	m.ReferenceID = movement.ReferenceID
	m.Allocations = movement.Allocations
	m.PaidAmount = decimal.Zero
	if d := movement.Debt; d != nil {
		m.DueDate = d.DueDate
		m.ServiceID = d.ServiceID
		m.PaidAmount = d.PaidAmount
		m.Status = d.Status
		m.Lifecycle = d.Lifecycle
		m.RefinancingID = d.RefinancingID
		m.InstallmentNumber = d.InstallmentNumber
		m.CancellationRef = d.CancellationRef
	}
}

// MovementModelFromDomain creates a new persistence model from a domain Movement
func MovementModelFromDomain(movement *ledger.Movement) *MovementModel {
	m := &MovementModel{}
	m.FromDomain(movement)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root
type PaymentModel struct {
	AggregateModel
	MemberID          uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Date              time.Time                 `gorm:"not null;index"`
	Amount            decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	Concept           string                    `gorm:"type:varchar(255)"`
	CollectorID       *uuid.UUID                `gorm:"type:uuid;index"`
	ServiceID         *uuid.UUID                `gorm:"type:uuid"`
	CommissionAmount  decimal.Decimal           `gorm:"type:decimal(18,4);not null;default:0"`
	CommissionSettled bool                      `gorm:"not null;default:false;index"`
	SettlementID      *uuid.UUID                `gorm:"type:uuid;index"`
	CreditMovementID  uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex"`
	Allocations       ledger.PaymentAllocations `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *ledger.Payment {
	p := &ledger.Payment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		MemberID:          m.MemberID,
		Date:              m.Date,
		Amount:            m.Amount,
		Concept:           m.Concept,
		CollectorID:       m.CollectorID,
		ServiceID:         m.ServiceID,
		CommissionAmount:  m.CommissionAmount,
		CommissionSettled: m.CommissionSettled,
		SettlementID:      m.SettlementID,
		CreditMovementID:  m.CreditMovementID,
		Allocations:       m.Allocations,
	}
	if p.Allocations == nil {
		p.Allocations = ledger.PaymentAllocations{}
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.MemberID = p.MemberID
	m.Date = p.Date
	m.Amount = p.Amount
	m.Concept = p.Concept
	m.CollectorID = p.CollectorID
	m.ServiceID = p.ServiceID
	m.CommissionAmount = p.CommissionAmount
	m.CommissionSettled = p.CommissionSettled
	m.SettlementID = p.SettlementID
	m.CreditMovementID = p.CreditMovementID
	m.Allocations = p.Allocations
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// RefinancingModel is the persistence model for the Refinancing aggregate root
type RefinancingModel struct {
	AggregateModel
	MemberID              uuid.UUID                `gorm:"type:uuid;not null;index"`
	OriginalDebitIDs      ledger.UUIDList          `gorm:"type:jsonb;default:'[]'"`
	Snapshot              ledger.DebitSnapshots    `gorm:"column:original_debits_snapshot;type:jsonb;default:'[]'"`
	Principal             decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	DownPaymentPercent    decimal.Decimal          `gorm:"type:decimal(5,2);not null;default:0"`
	DownPaymentAmount     decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	DownPaymentMovementID *uuid.UUID               `gorm:"type:uuid"`
	InstallmentCount      int                      `gorm:"not null"`
	Schedule              ledger.Schedule          `gorm:"type:jsonb;default:'[]'"`
	Status                ledger.RefinancingStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	AuditTrail            ledger.AuditTrail        `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (RefinancingModel) TableName() string {
	return "refinancings"
}

// ToDomain converts the persistence model to a domain Refinancing
func (m *RefinancingModel) ToDomain() *ledger.Refinancing {
	return &ledger.Refinancing{
		BaseAggregateRoot:     m.ToAggregateRoot(),
		MemberID:              m.MemberID,
		OriginalDebitIDs:      m.OriginalDebitIDs,
		Snapshot:              m.Snapshot,
		Principal:             m.Principal,
		DownPaymentPercent:    m.DownPaymentPercent,
		DownPaymentAmount:     m.DownPaymentAmount,
		DownPaymentMovementID: m.DownPaymentMovementID,
		InstallmentCount:      m.InstallmentCount,
		Schedule:              m.Schedule,
		Status:                m.Status,
		AuditTrail:            m.AuditTrail,
	}
}

// FromDomain populates the persistence model from a domain Refinancing
func (m *RefinancingModel) FromDomain(r *ledger.Refinancing) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.MemberID = r.MemberID
	m.OriginalDebitIDs = r.OriginalDebitIDs
	m.Snapshot = r.Snapshot
	m.Principal = r.Principal
	m.DownPaymentPercent = r.DownPaymentPercent
	m.DownPaymentAmount = r.DownPaymentAmount
	m.DownPaymentMovementID = r.DownPaymentMovementID
	m.InstallmentCount = r.InstallmentCount
	m.Schedule = r.Schedule
	m.Status = r.Status
	m.AuditTrail = r.AuditTrail
}

// RefinancingModelFromDomain creates a new persistence model from a domain Refinancing
func RefinancingModelFromDomain(r *ledger.Refinancing) *RefinancingModel {
	m := &RefinancingModel{}
	m.FromDomain(r)
	return m
}

// CommissionSettlementModel is the persistence model for commission settlements
type CommissionSettlementModel struct {
	AggregateModel
	CollectorID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Date          time.Time       `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Period        string          `gorm:"type:varchar(7);not null;index"`
	PaymentIDs    ledger.UUIDList `gorm:"type:jsonb;default:'[]'"`
	PaymentMethod string          `gorm:"type:varchar(50);not null"`
	ReceiptNumber string          `gorm:"type:varchar(100)"`
	Notes         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CommissionSettlementModel) TableName() string {
	return "commission_settlements"
}

// ToDomain converts the persistence model to a domain CommissionSettlement
func (m *CommissionSettlementModel) ToDomain() *ledger.CommissionSettlement {
	return &ledger.CommissionSettlement{
		BaseAggregateRoot: m.ToAggregateRoot(),
		CollectorID:       m.CollectorID,
		Date:              m.Date,
		Amount:            m.Amount,
		Period:            m.Period,
		PaymentIDs:        m.PaymentIDs,
		PaymentMethod:     m.PaymentMethod,
		ReceiptNumber:     m.ReceiptNumber,
		Notes:             m.Notes,
	}
}

// FromDomain populates the persistence model from a domain CommissionSettlement
func (m *CommissionSettlementModel) FromDomain(s *ledger.CommissionSettlement) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.CollectorID = s.CollectorID
	m.Date = s.Date
	m.Amount = s.Amount
	m.Period = s.Period
	m.PaymentIDs = s.PaymentIDs
	m.PaymentMethod = s.PaymentMethod
	m.ReceiptNumber = s.ReceiptNumber
	m.Notes = s.Notes
}

// CommissionSettlementModelFromDomain creates a new persistence model from a domain CommissionSettlement
func CommissionSettlementModelFromDomain(s *ledger.CommissionSettlement) *CommissionSettlementModel {
	m := &CommissionSettlementModel{}
	m.FromDomain(s)
	return m
}

// LedgerModels lists every model for AutoMigrate in tests and local SQLite runs
func LedgerModels() []any {
	return []any{
		&MemberModel{},
		&ServiceModel{},
		&CollectorModel{},
		&ReservationModel{},
		&MovementModel{},
		&PaymentModel{},
		&RefinancingModel{},
		&CommissionSettlementModel{},
	}
}
