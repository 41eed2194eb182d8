package router

import (
	"github.com/clubdesk/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// LedgerHandlers bundles the handlers served under the versioned API
type LedgerHandlers struct {
	Payments     *handler.PaymentHandler
	Movements    *handler.MovementHandler
	Refinancings *handler.RefinancingHandler
	Reservations *handler.ReservationHandler
	Settlements  *handler.SettlementHandler
	System       *handler.SystemHandler
}

// LedgerRoutes builds the route groups of the club ledger API. idempotent
// guards the POST endpoints that move money (payments, refinancings and
// commission settlements); pass nil to leave them unguarded.
func LedgerRoutes(h LedgerHandlers, idempotent gin.HandlerFunc) []RouteRegistrar {
	guarded := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if idempotent == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{idempotent, fn}
	}

	payments := NewDomainGroup("payments", "/payments")
	payments.POST("", guarded(h.Payments.Create)...)
	payments.GET("", h.Payments.List)
	payments.GET("/:id", h.Payments.GetByID)
	payments.PATCH("/:id", h.Payments.Update)
	payments.DELETE("/:id", h.Payments.Delete)

	movements := NewDomainGroup("movements", "/movements")
	movements.POST("", h.Movements.Append)
	movements.GET("/:id", h.Movements.GetByID)
	movements.PATCH("/:id", h.Movements.Update)
	movements.DELETE("/:id", h.Movements.Delete)

	members := NewDomainGroup("members", "/members")
	members.GET("/:id/movements", h.Movements.ListByMember)
	members.GET("/:id/balance", h.Movements.Balance)
	members.GET("/:id/payments", h.Payments.ListByMember)
	members.GET("/:id/refinancings", h.Refinancings.ListByMember)

	refinancings := NewDomainGroup("refinancings", "/refinancings")
	refinancings.POST("", guarded(h.Refinancings.Create)...)
	refinancings.GET("/:id", h.Refinancings.GetByID)

	reservations := NewDomainGroup("reservations", "/reservations")
	reservations.GET("/:id", h.Reservations.GetByID)
	reservations.PATCH("/:id/cancel", h.Reservations.Cancel)

	settlements := NewDomainGroup("commission-settlements", "/commission-settlements")
	settlements.POST("", guarded(h.Settlements.Create)...)
	settlements.GET("/:id", h.Settlements.GetByID)

	collectors := NewDomainGroup("collectors", "/collectors")
	collectors.GET("/:id/commissions", h.Settlements.Commissions)
	collectors.GET("/:id/settlements", h.Settlements.ListByCollector)

	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)

	return []RouteRegistrar{payments, movements, members, refinancings, reservations, settlements, collectors, system}
}
