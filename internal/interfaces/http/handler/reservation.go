package handler

import (
	ledgerapp "github.com/clubdesk/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// ReservationHandler handles reservation cancellation
type ReservationHandler struct {
	BaseHandler
	cancellationService *ledgerapp.CancellationService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(cancellationService *ledgerapp.CancellationService) *ReservationHandler {
	return &ReservationHandler{
		cancellationService: cancellationService,
	}
}

// Cancel godoc
// @Summary      Cancel a reservation
// @Description  Cancel an active reservation and book the refund, penalty or credit note the refund type calls for
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        id      path string true "Reservation ID" format(uuid)
// @Param        request body ledgerapp.CancelReservationRequest true "Refund policy"
// @Success      200 {object} APIResponse[ledgerapp.CancellationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /reservations/{id}/cancel [patch]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	reservationID, ok := h.pathID(c, "reservation")
	if !ok {
		return
	}

	var req ledgerapp.CancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.cancellationService.CancelReservation(c.Request.Context(), reservationID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByID returns a reservation with its cancellation outcome
func (h *ReservationHandler) GetByID(c *gin.Context) {
	reservationID, ok := h.pathID(c, "reservation")
	if !ok {
		return
	}

	reservation, err := h.cancellationService.GetReservation(c.Request.Context(), reservationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, reservation)
}
