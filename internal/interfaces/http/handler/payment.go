package handler

import (
	"strconv"

	ledgerapp "github.com/clubdesk/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *ledgerapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *ledgerapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Create godoc
// @Summary      Record a payment
// @Description  Record a member payment, book its credit and allocate it to the requested debits
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client key making the request safe to retry"
// @Param        request body ledgerapp.CreatePaymentRequest true "Payment"
// @Success      201 {object} APIResponse[ledgerapp.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req ledgerapp.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payment)
}

// Update godoc
// @Summary      Revise a payment
// @Description  Change a payment's amount, concept or allocations. Previous allocations are reversed and reapplied.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ledgerapp.UpdatePaymentRequest true "Changes"
// @Success      200 {object} APIResponse[ledgerapp.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /payments/{id} [patch]
func (h *PaymentHandler) Update(c *gin.Context) {
	paymentID, ok := h.pathID(c, "payment")
	if !ok {
		return
	}

	var req ledgerapp.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	payment, err := h.paymentService.UpdatePayment(c.Request.Context(), paymentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// DeletedResponse confirms a removal
type DeletedResponse struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
}

// Delete godoc
// @Summary      Delete a payment
// @Description  Remove a payment, its credit movement and every allocation it made
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} APIResponse[DeletedResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	paymentID, ok := h.pathID(c, "payment")
	if !ok {
		return
	}

	if err := h.paymentService.DeletePayment(c.Request.Context(), paymentID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, DeletedResponse{ID: paymentID, Deleted: true})
}

// GetByID godoc
// @Summary      Get payment by ID
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	paymentID, ok := h.pathID(c, "payment")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// List godoc
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        member_id    query string false "Member ID" format(uuid)
// @Param        collector_id query string false "Collector ID" format(uuid)
// @Param        settled      query bool   false "Commission settled"
// @Param        page         query int    false "Page" default(1)
// @Param        page_size    query int    false "Page size" default(20)
// @Success      200 {object} APIResponse[[]ledgerapp.PaymentResponse]
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	h.list(c, req)
}

// ListByMember lists one member's payments
// @Router /members/{id}/payments [get]
func (h *PaymentHandler) ListByMember(c *gin.Context) {
	memberID, ok := h.pathID(c, "member")
	if !ok {
		return
	}
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	req.MemberID = &memberID
	h.list(c, req)
}

func (h *PaymentHandler) list(c *gin.Context, req ledgerapp.ListPaymentsRequest) {
	page, err := h.paymentService.ListPayments(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// listRequest reads the payment filters from the query string
func (h *PaymentHandler) listRequest(c *gin.Context) (ledgerapp.ListPaymentsRequest, bool) {
	var req ledgerapp.ListPaymentsRequest

	if raw := c.Query("member_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid member_id format")
			return req, false
		}
		req.MemberID = &id
	}
	if raw := c.Query("collector_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid collector_id format")
			return req, false
		}
		req.CollectorID = &id
	}
	if raw := c.Query("settled"); raw != "" {
		settled, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "settled must be true or false")
			return req, false
		}
		req.Settled = &settled
	}

	var paging pageQuery
	if err := c.ShouldBindQuery(&paging); err != nil {
		h.BindError(c, err)
		return req, false
	}
	req.Page = paging.Page
	req.PageSize = paging.PageSize
	return req, true
}

// pageQuery holds the common paging query parameters
type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}
