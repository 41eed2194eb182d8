package handler

import (
	ledgerapp "github.com/clubdesk/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// SettlementHandler handles collector commission endpoints
type SettlementHandler struct {
	BaseHandler
	settlementService *ledgerapp.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlementService *ledgerapp.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
	}
}

// Create godoc
// @Summary      Settle commissions
// @Description  Pay a collector the commissions of the listed payments. Either every payment is settled or none is.
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client key making the request safe to retry"
// @Param        request body ledgerapp.CreateSettlementRequest true "Settlement"
// @Success      201 {object} APIResponse[ledgerapp.SettlementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /commission-settlements [post]
func (h *SettlementHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	settlement, err := h.settlementService.CreateSettlement(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, settlement)
}

// GetByID returns a settlement
// @Router /commission-settlements/{id} [get]
func (h *SettlementHandler) GetByID(c *gin.Context) {
	settlementID, ok := h.pathID(c, "settlement")
	if !ok {
		return
	}

	settlement, err := h.settlementService.GetSettlement(c.Request.Context(), settlementID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, settlement)
}

// Commissions godoc
// @Summary      Collector commission summary
// @Description  Pending and settled commission totals of a collector, with the unsettled payments
// @Tags         commissions
// @Produce      json
// @Param        id path string true "Collector ID" format(uuid)
// @Success      200 {object} APIResponse[ledger.CommissionSummary]
// @Failure      404 {object} ErrorResponse
// @Router       /collectors/{id}/commissions [get]
func (h *SettlementHandler) Commissions(c *gin.Context) {
	collectorID, ok := h.pathID(c, "collector")
	if !ok {
		return
	}

	summary, err := h.settlementService.GetCollectorCommissions(c.Request.Context(), collectorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// ListByCollector lists a collector's settlements
// @Router /collectors/{id}/settlements [get]
func (h *SettlementHandler) ListByCollector(c *gin.Context) {
	collectorID, ok := h.pathID(c, "collector")
	if !ok {
		return
	}

	settlements, err := h.settlementService.ListCollectorSettlements(c.Request.Context(), collectorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, settlements)
}
