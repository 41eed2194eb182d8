package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Epsilon is the rounding tolerance used when comparing money amounts
var Epsilon = decimal.New(1, -4)

// MinorUnitPlaces is the number of decimals money amounts are rounded to
const MinorUnitPlaces int32 = 2

// RoundMoney rounds an amount half away from zero to the currency minor unit
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitPlaces)
}

// NearlyEqual reports whether two amounts differ by less than Epsilon
func NearlyEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// SplitEvenly divides total into n parts truncated to the minor unit.
// The last part absorbs the remainder so the parts always add up to total.
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	parts := make([]decimal.Decimal, n)
	base := total.Div(decimal.NewFromInt(int64(n))).Truncate(MinorUnitPlaces)
	for i := 0; i < n-1; i++ {
		parts[i] = base
	}
	parts[n-1] = total.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}

// AddMonths advances t by the given number of calendar months, clamping the
// day to the end of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
