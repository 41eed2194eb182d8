package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clubdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodLayout formats settlement periods as year-month
const PeriodLayout = "2006-01"

// PeriodOf returns the YYYY-MM period of t
func PeriodOf(t time.Time) string {
	return t.Format(PeriodLayout)
}

// CommissionSettlement liquidates a batch of a collector's commissions
type CommissionSettlement struct {
	shared.BaseAggregateRoot
	CollectorID   uuid.UUID
	Date          time.Time
	Amount        decimal.Decimal
	Period        string
	PaymentIDs    UUIDList
	PaymentMethod string
	ReceiptNumber string
	Notes         string
}

// NewCommissionSettlement sums the payments' commissions and marks every
// payment settled against the new record. Payments must already carry a
// positive commission and belong to the collector.
func NewCommissionSettlement(collectorID uuid.UUID, payments []*Payment, paymentMethod string, date time.Time, receiptNumber, notes string) (*CommissionSettlement, error) {
	if collectorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COLLECTOR", "Collector ID cannot be empty")
	}
	if len(payments) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one payment is required")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is required")
	}
	if date.IsZero() {
		date = time.Now()
	}

	amount := decimal.Zero
	ids := make(UUIDList, 0, len(payments))
	seen := make(map[uuid.UUID]bool, len(payments))
	for _, p := range payments {
		if seen[p.ID] {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Payment %s is listed twice", p.ID))
		}
		seen[p.ID] = true
		if p.CollectorID == nil || *p.CollectorID != collectorID {
			return nil, shared.NewDomainError("INVALID_INPUT",
				fmt.Sprintf("Payment %s was not collected by %s", p.ID, collectorID))
		}
		if p.CommissionSettled {
			return nil, ErrCommissionSettled.WithDetails(map[string]any{"payment_id": p.ID})
		}
		if !p.CommissionAmount.IsPositive() {
			return nil, shared.NewDomainError(CodeInvalidCommission,
				fmt.Sprintf("Payment %s has no commission to settle", p.ID))
		}
		amount = amount.Add(p.CommissionAmount)
		ids = append(ids, p.ID)
	}

	s := &CommissionSettlement{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CollectorID:       collectorID,
		Date:              date,
		Amount:            amount,
		Period:            PeriodOf(date),
		PaymentIDs:        ids,
		PaymentMethod:     strings.TrimSpace(paymentMethod),
		ReceiptNumber:     receiptNumber,
		Notes:             notes,
	}
	for _, p := range payments {
		if err := p.MarkCommissionSettled(s.ID); err != nil {
			return nil, err
		}
	}
	s.AddDomainEvent(NewCommissionSettledEvent(s))
	return s, nil
}

// MonthlyCommission is one line of a collector's commission breakdown
type MonthlyCommission struct {
	Period  string          `json:"period"`
	Pending decimal.Decimal `json:"pending"`
	Settled decimal.Decimal `json:"settled"`
}

// CommissionSummary aggregates a collector's commissions
type CommissionSummary struct {
	CollectorID  uuid.UUID           `json:"collector_id"`
	PendingTotal decimal.Decimal     `json:"pending_total"`
	SettledTotal decimal.Decimal     `json:"settled_total"`
	PendingCount int                 `json:"pending_count"`
	SettledCount int                 `json:"settled_count"`
	Months       []MonthlyCommission `json:"months"`
}

// SummarizeCommissions derives pending and settled totals with a monthly
// breakdown, newest month first. Payments without commission are ignored.
func SummarizeCommissions(collectorID uuid.UUID, payments []*Payment) CommissionSummary {
	summary := CommissionSummary{
		CollectorID:  collectorID,
		PendingTotal: decimal.Zero,
		SettledTotal: decimal.Zero,
		Months:       []MonthlyCommission{},
	}
	byPeriod := make(map[string]*MonthlyCommission)
	for _, p := range payments {
		if !p.CommissionAmount.IsPositive() {
			continue
		}
		period := PeriodOf(p.Date)
		month, ok := byPeriod[period]
		if !ok {
			month = &MonthlyCommission{Period: period, Pending: decimal.Zero, Settled: decimal.Zero}
			byPeriod[period] = month
		}
		if p.CommissionSettled {
			summary.SettledTotal = summary.SettledTotal.Add(p.CommissionAmount)
			summary.SettledCount++
			month.Settled = month.Settled.Add(p.CommissionAmount)
		} else {
			summary.PendingTotal = summary.PendingTotal.Add(p.CommissionAmount)
			summary.PendingCount++
			month.Pending = month.Pending.Add(p.CommissionAmount)
		}
	}
	for _, m := range byPeriod {
		summary.Months = append(summary.Months, *m)
	}
	sort.Slice(summary.Months, func(i, j int) bool {
		return summary.Months[i].Period > summary.Months[j].Period
	})
	return summary
}
