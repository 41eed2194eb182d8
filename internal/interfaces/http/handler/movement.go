package handler

import (
	"strconv"

	ledgerapp "github.com/clubdesk/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// MovementHandler handles the member ledger endpoints
type MovementHandler struct {
	BaseHandler
	movementService *ledgerapp.MovementService
}

// NewMovementHandler creates a new MovementHandler
func NewMovementHandler(movementService *ledgerapp.MovementService) *MovementHandler {
	return &MovementHandler{
		movementService: movementService,
	}
}

// Append godoc
// @Summary      Append a movement
// @Description  Book a debit or credit on a member's ledger
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.AppendMovementRequest true "Movement"
// @Success      201 {object} APIResponse[ledgerapp.MovementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /movements [post]
func (h *MovementHandler) Append(c *gin.Context) {
	var req ledgerapp.AppendMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	movement, err := h.movementService.AppendMovement(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, movement)
}

// GetByID returns one movement
// @Router /movements/{id} [get]
func (h *MovementHandler) GetByID(c *gin.Context) {
	movementID, ok := h.pathID(c, "movement")
	if !ok {
		return
	}

	movement, err := h.movementService.GetMovement(c.Request.Context(), movementID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movement)
}

// Update patches a movement's concept or due date
// @Router /movements/{id} [patch]
func (h *MovementHandler) Update(c *gin.Context) {
	movementID, ok := h.pathID(c, "movement")
	if !ok {
		return
	}

	var req ledgerapp.UpdateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	movement, err := h.movementService.UpdateMovement(c.Request.Context(), movementID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movement)
}

// Delete godoc
// @Summary      Delete a movement
// @Description  Remove a movement. A debit that payments were allocated to needs cascade=true, which also removes those allocations.
// @Tags         movements
// @Produce      json
// @Param        id      path  string true  "Movement ID" format(uuid)
// @Param        cascade query bool   false "Remove allocations made by payments"
// @Success      200 {object} APIResponse[ledgerapp.DeleteMovementResult]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /movements/{id} [delete]
func (h *MovementHandler) Delete(c *gin.Context) {
	movementID, ok := h.pathID(c, "movement")
	if !ok {
		return
	}

	cascade := false
	if raw := c.Query("cascade"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "cascade must be true or false")
			return
		}
		cascade = parsed
	}

	result, err := h.movementService.DeleteMovement(c.Request.Context(), movementID, cascade)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListByMember godoc
// @Summary      List a member's movements
// @Tags         movements
// @Produce      json
// @Param        id           path  string true  "Member ID" format(uuid)
// @Param        kind         query string false "DEBIT or CREDIT"
// @Param        origin       query string false "Origin"
// @Param        only_pending query bool   false "Only debits with a pending balance"
// @Param        page         query int    false "Page" default(1)
// @Param        page_size    query int    false "Page size" default(20)
// @Success      200 {object} APIResponse[[]ledgerapp.MovementResponse]
// @Router       /members/{id}/movements [get]
func (h *MovementHandler) ListByMember(c *gin.Context) {
	memberID, ok := h.pathID(c, "member")
	if !ok {
		return
	}

	var req ledgerapp.ListMovementsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.movementService.ListMemberMovements(c.Request.Context(), memberID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Balance returns a member's ledger totals
// @Router /members/{id}/balance [get]
func (h *MovementHandler) Balance(c *gin.Context) {
	memberID, ok := h.pathID(c, "member")
	if !ok {
		return
	}

	balance, err := h.movementService.GetMemberBalance(c.Request.Context(), memberID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}
