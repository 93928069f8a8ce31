package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimflow/internal/application/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RunPaymentRequest is the body of POST /api/payments
type RunPaymentRequest struct {
	Payee       string   `json:"payee"`
	ClaimIDs    []string `json:"claim_ids"`
	PaymentDate string   `json:"payment_date"` // YYYY-MM-DD
}

// RunPayment handles POST /api/payments
func (h *Handlers) RunPayment(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	var req RunPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	var paidOn time.Time
	if req.PaymentDate != "" {
		t, err := time.Parse(time.DateOnly, req.PaymentDate)
		if err != nil {
			badRequest(c, "payment_date must be YYYY-MM-DD")
			return
		}
		paidOn = t
	}

	payment, err := h.services.Payments.Run(c.Request.Context(), actor, service.RunPaymentParams{
		Payee:       req.Payee,
		ClaimIDs:    req.ClaimIDs,
		PaymentDate: paidOn,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, payment)
}

// ListPayments handles GET /api/payments
func (h *Handlers) ListPayments(c *gin.Context) {
	payments, err := h.services.Payments.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, payments)
}

// GetPayment handles GET /api/payments/:id
func (h *Handlers) GetPayment(c *gin.Context) {
	payment, err := h.services.Payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, payment)
}

// CancelPayment handles DELETE /api/payments/:id
func (h *Handlers) CancelPayment(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	if err := h.services.Payments.Cancel(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportPayment handles GET /api/payments/:id/export
func (h *Handlers) ExportPayment(c *gin.Context) {
	id := c.Param("id")

	// Buffered so a failed render still gets a JSON error response
	var buf bytes.Buffer
	if err := h.services.Payments.Export(c.Request.Context(), id, &buf); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "payment-"+id+".xlsx"))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
