package ledger

import (
	"fmt"
	"strings"

	"github.com/clubdesk/backend/internal/domain/shared"
)

// Kind discriminates debit and credit movements
type Kind string

const (
	KindDebit  Kind = "DEBIT"
	KindCredit Kind = "CREDIT"
)

// IsValid checks if the kind is a canonical value
func (k Kind) IsValid() bool {
	return k == KindDebit || k == KindCredit
}

func (k Kind) String() string {
	return string(k)
}

// Origin records which process produced a movement
type Origin string

const (
	OriginService      Origin = "SERVICE"
	OriginQuota        Origin = "QUOTA"
	OriginPayment      Origin = "PAYMENT"
	OriginAdjustment   Origin = "ADJUSTMENT"
	OriginSubscription Origin = "SUBSCRIPTION"
	OriginRefund       Origin = "REFUND"
	OriginRefinancing  Origin = "REFINANCING"
)

// IsValid checks if the origin is a canonical value
func (o Origin) IsValid() bool {
	switch o {
	case OriginService, OriginQuota, OriginPayment, OriginAdjustment,
		OriginSubscription, OriginRefund, OriginRefinancing:
		return true
	}
	return false
}

func (o Origin) String() string {
	return string(o)
}

// Legacy records used Spanish accounting terms for the type tags.
var kindAliases = map[string]Kind{
	"DEBIT":   KindDebit,
	"DEBE":    KindDebit,
	"DEBITO":  KindDebit,
	"DÉBITO":  KindDebit,
	"CARGO":   KindDebit,
	"D":       KindDebit,
	"CREDIT":  KindCredit,
	"HABER":   KindCredit,
	"CREDITO": KindCredit,
	"CRÉDITO": KindCredit,
	"ABONO":   KindCredit,
	"C":       KindCredit,
	"H":       KindCredit,
}

var originAliases = map[string]Origin{
	"SERVICE":        OriginService,
	"SERVICIO":       OriginService,
	"QUOTA":          OriginQuota,
	"CUOTA":          OriginQuota,
	"PAYMENT":        OriginPayment,
	"PAGO":           OriginPayment,
	"ADJUSTMENT":     OriginAdjustment,
	"AJUSTE":         OriginAdjustment,
	"SUBSCRIPTION":   OriginSubscription,
	"SUSCRIPCION":    OriginSubscription,
	"SUSCRIPCIÓN":    OriginSubscription,
	"REFUND":         OriginRefund,
	"REEMBOLSO":      OriginRefund,
	"DEVOLUCION":     OriginRefund,
	"DEVOLUCIÓN":     OriginRefund,
	"REFINANCING":    OriginRefinancing,
	"REFINANCIACION": OriginRefinancing,
	"REFINANCIACIÓN": OriginRefinancing,
}

func normalizeTag(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.ReplaceAll(s, " ", "_")
}

// ParseKind normalizes a movement type tag, accepting legacy aliases
func ParseKind(raw string) (Kind, error) {
	if k, ok := kindAliases[normalizeTag(raw)]; ok {
		return k, nil
	}
	return "", shared.NewDomainError(CodeInvalidType, fmt.Sprintf("Unknown movement type %q", raw))
}

// ParseOrigin normalizes a movement origin tag, accepting legacy aliases
func ParseOrigin(raw string) (Origin, error) {
	if o, ok := originAliases[normalizeTag(raw)]; ok {
		return o, nil
	}
	return "", shared.NewDomainError(CodeInvalidType, fmt.Sprintf("Unknown movement origin %q", raw))
}
