package handler

import (
	ledgerapp "github.com/clubdesk/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// RefinancingHandler handles refinancing plan endpoints
type RefinancingHandler struct {
	BaseHandler
	refinancingService *ledgerapp.RefinancingService
}

// NewRefinancingHandler creates a new RefinancingHandler
func NewRefinancingHandler(refinancingService *ledgerapp.RefinancingService) *RefinancingHandler {
	return &RefinancingHandler{
		refinancingService: refinancingService,
	}
}

// Create godoc
// @Summary      Refinance debits
// @Description  Replace pending debits by a down payment and an installment schedule
// @Tags         refinancings
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client key making the request safe to retry"
// @Param        request body ledgerapp.CreateRefinancingRequest true "Plan"
// @Success      201 {object} APIResponse[ledgerapp.RefinancingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /refinancings [post]
func (h *RefinancingHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateRefinancingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	plan, err := h.refinancingService.CreateRefinancing(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, plan)
}

func (h *RefinancingHandler) GetByID(c *gin.Context) {
	planID, ok := h.pathID(c, "refinancing")
	if !ok {
		return
	}

	plan, err := h.refinancingService.GetRefinancing(c.Request.Context(), planID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plan)
}

func (h *RefinancingHandler) ListByMember(c *gin.Context) {
	memberID, ok := h.pathID(c, "member")
	if !ok {
		return
	}

	plans, err := h.refinancingService.ListMemberRefinancings(c.Request.Context(), memberID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plans)
}
