package club

import (
	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Service is something the club charges for (classes, court rental, quotas).
// CommissionRate is a percentage and overrides the collector default when set.
type Service struct {
	shared.BaseEntity
	Name           string
	CommissionRate *decimal.Decimal
}

// NewService creates a service
func NewService(name string, commissionRate *decimal.Decimal) (*Service, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Service name cannot be empty")
	}
	if commissionRate != nil && (commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(100))) {
		return nil, shared.NewDomainError("INVALID_RATE", "Commission rate must be between 0 and 100")
	}
	return &Service{
		BaseEntity:     shared.NewBaseEntity(),
		Name:           name,
		CommissionRate: commissionRate,
	}, nil
}
