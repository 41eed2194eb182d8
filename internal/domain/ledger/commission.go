package ledger

import (
	"github.com/clubdesk/backend/internal/domain/club"
	"github.com/shopspring/decimal"
)

var (
	teacherShare = decimal.NewFromFloat(0.5)
	hundred      = decimal.NewFromInt(100)
)

// ComputeCommission returns what a collector earns on amount.
// TEACHER collectors get half, INTERNAL_STAFF nothing, EXTERNAL the service
// rate, else their own default rate, else nothing. A nil collector earns nothing.
func ComputeCommission(amount decimal.Decimal, collector *club.Collector, service *club.Service) decimal.Decimal {
	if collector == nil || !amount.IsPositive() {
		return decimal.Zero
	}
	switch collector.Type {
	case club.CollectorTypeTeacher:
		return RoundMoney(amount.Mul(teacherShare))
	case club.CollectorTypeExternal:
		rate := decimal.Zero
		switch {
		case service != nil && service.CommissionRate != nil:
			rate = *service.CommissionRate
		case collector.DefaultCommissionRate != nil:
			rate = *collector.DefaultCommissionRate
		}
		return RoundMoney(amount.Mul(rate).Div(hundred))
	default:
		return decimal.Zero
	}
}
