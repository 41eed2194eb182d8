package models

import (
	"time"

	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/clubdesk/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemberModel is the persistence model for club members
type MemberModel struct {
	BaseModel
	Name   string `gorm:"type:varchar(200);not null"`
	Email  string `gorm:"type:varchar(200);index"`
	Active bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (MemberModel) TableName() string {
	return "members"
}

// ToDomain converts the persistence model to a domain Member
func (m *MemberModel) ToDomain() *club.Member {
	return &club.Member{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Email:      m.Email,
		Active:     m.Active,
	}
}

// FromDomain populates the persistence model from a domain Member
func (m *MemberModel) FromDomain(member *club.Member) {
	m.FromDomainBaseEntity(member.BaseEntity)
	m.Name = member.Name
	m.Email = member.Email
	m.Active = member.Active
}

// MemberModelFromDomain creates a new persistence model from a domain Member
func MemberModelFromDomain(member *club.Member) *MemberModel {
	m := &MemberModel{}
	m.FromDomain(member)
	return m
}

// ServiceModel is the persistence model for chargeable services
type ServiceModel struct {
	BaseModel
	Name           string           `gorm:"type:varchar(200);not null"`
	CommissionRate *decimal.Decimal `gorm:"type:decimal(5,2)"`
}

// TableName returns the table name for GORM
func (ServiceModel) TableName() string {
	return "services"
}

// ToDomain converts the persistence model to a domain Service
func (m *ServiceModel) ToDomain() *club.Service {
	return &club.Service{
		BaseEntity:     m.BaseModel.ToDomain(),
		Name:           m.Name,
		CommissionRate: m.CommissionRate,
	}
}

// FromDomain populates the persistence model from a domain Service
func (m *ServiceModel) FromDomain(s *club.Service) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.Name = s.Name
	m.CommissionRate = s.CommissionRate
}

// ServiceModelFromDomain creates a new persistence model from a domain Service
func ServiceModelFromDomain(s *club.Service) *ServiceModel {
	m := &ServiceModel{}
	m.FromDomain(s)
	return m
}

// CollectorModel is the persistence model for payment collectors
type CollectorModel struct {
	BaseModel
	Name                  string             `gorm:"type:varchar(200);not null"`
	Type                  club.CollectorType `gorm:"type:varchar(20);not null"`
	DefaultCommissionRate *decimal.Decimal   `gorm:"type:decimal(5,2)"`
}

// TableName returns the table name for GORM
func (CollectorModel) TableName() string {
	return "collectors"
}

// ToDomain converts the persistence model to a domain Collector
func (m *CollectorModel) ToDomain() *club.Collector {
	return &club.Collector{
		BaseEntity:            m.BaseModel.ToDomain(),
		Name:                  m.Name,
		Type:                  m.Type,
		DefaultCommissionRate: m.DefaultCommissionRate,
	}
}

// FromDomain populates the persistence model from a domain Collector
func (m *CollectorModel) FromDomain(c *club.Collector) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.Type = c.Type
	m.DefaultCommissionRate = c.DefaultCommissionRate
}

// CollectorModelFromDomain creates a new persistence model from a domain Collector
func CollectorModelFromDomain(c *club.Collector) *CollectorModel {
	m := &CollectorModel{}
	m.FromDomain(c)
	return m
}

// ReservationModel is the persistence model for reservations
type ReservationModel struct {
	BaseModel
	MemberID                uuid.UUID              `gorm:"type:uuid;not null;index"`
	ServiceID               *uuid.UUID             `gorm:"type:uuid"`
	Date                    time.Time              `gorm:"not null"`
	FaceAmount              decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Status                  club.ReservationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	RefundType              string                 `gorm:"type:varchar(20)"`
	RefundAmount            decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	PenaltyAmount           decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	CancelReason            string                 `gorm:"type:varchar(500)"`
	CancelledAt             *time.Time
	CancellationMovementIDs ledger.UUIDList `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (ReservationModel) TableName() string {
	return "reservations"
}

// ToDomain converts the persistence model to a domain Reservation
func (m *ReservationModel) ToDomain() *club.Reservation {
	return &club.Reservation{
		BaseEntity:              m.BaseModel.ToDomain(),
		MemberID:                m.MemberID,
		ServiceID:               m.ServiceID,
		Date:                    m.Date,
		FaceAmount:              m.FaceAmount,
		Status:                  m.Status,
		RefundType:              m.RefundType,
		RefundAmount:            m.RefundAmount,
		PenaltyAmount:           m.PenaltyAmount,
		CancelReason:            m.CancelReason,
		CancelledAt:             m.CancelledAt,
		CancellationMovementIDs: []uuid.UUID(m.CancellationMovementIDs),
	}
}

// FromDomain populates the persistence model from a domain Reservation
func (m *ReservationModel) FromDomain(r *club.Reservation) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.MemberID = r.MemberID
	m.ServiceID = r.ServiceID
	m.Date = r.Date
	m.FaceAmount = r.FaceAmount
	m.Status = r.Status
	m.RefundType = r.RefundType
	m.RefundAmount = r.RefundAmount
	m.PenaltyAmount = r.PenaltyAmount
	m.CancelReason = r.CancelReason
	m.CancelledAt = r.CancelledAt
	m.CancellationMovementIDs = ledger.UUIDList(r.CancellationMovementIDs)
}

// ReservationModelFromDomain creates a new persistence model from a domain Reservation
func ReservationModelFromDomain(r *club.Reservation) *ReservationModel {
	m := &ReservationModel{}
	m.FromDomain(r)
	return m
}
