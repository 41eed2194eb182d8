package club

import (
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CollectorType decides how a collector is paid for the money they bring in
type CollectorType string

const (
	CollectorTypeInternalStaff CollectorType = "INTERNAL_STAFF"
	CollectorTypeTeacher       CollectorType = "TEACHER"
	CollectorTypeExternal      CollectorType = "EXTERNAL"
)

// IsValid checks if the collector type is valid
func (t CollectorType) IsValid() bool {
	switch t {
	case CollectorTypeInternalStaff, CollectorTypeTeacher, CollectorTypeExternal:
		return true
	}
	return false
}

func (t CollectorType) String() string {
	return string(t)
}

// Collector receives payments on behalf of the club
type Collector struct {
	shared.BaseEntity
	Name                  string
	Type                  CollectorType
	DefaultCommissionRate *decimal.Decimal
}

// NewCollector creates a collector
func NewCollector(name string, collectorType CollectorType, defaultRate *decimal.Decimal) (*Collector, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Collector name cannot be empty")
	}
	if !collectorType.IsValid() {
		return nil, shared.NewDomainError("INVALID_COLLECTOR_TYPE", "Collector type is not valid")
	}
	return &Collector{
		BaseEntity:            shared.NewBaseEntity(),
		Name:                  name,
		Type:                  collectorType,
		DefaultCommissionRate: defaultRate,
	}, nil
}
