package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/application/service"
	"github.com/garyjia/claimflow/internal/application/workflow"
	"github.com/garyjia/claimflow/internal/domain/entity"
	domainwf "github.com/garyjia/claimflow/internal/domain/workflow"
)

// maxAttachmentSize caps uploaded receipts and invoices
const maxAttachmentSize = 20 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	identity port.IdentityProvider
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, identity port.IdentityProvider, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		identity: identity,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// CreateClaimRequest is the body of POST /api/claims
type CreateClaimRequest struct {
	Kind             entity.ClaimKind      `json:"kind"`
	PayeeName        string                `json:"payee_name"`
	PayeeReferenceID string                `json:"payee_reference_id"`
	LineItems        []entity.LineItem     `json:"line_items"`
	PaymentDetail    *entity.PaymentDetail `json:"payment_detail"`
	AmountOverride   *decimal.Decimal      `json:"amount_override"`
	NoReceiptReason  string                `json:"no_receipt_reason"`
	Submit           bool                  `json:"submit"`
}

// EditClaimRequest is the body of PATCH /api/claims/:id. Absent fields are left as they are.
type EditClaimRequest struct {
	PayeeName        *string               `json:"payee_name"`
	PayeeReferenceID *string               `json:"payee_reference_id"`
	LineItems        *[]entity.LineItem    `json:"line_items"`
	PaymentDetail    *entity.PaymentDetail `json:"payment_detail"`
	AmountOverride   *decimal.Decimal      `json:"amount_override"`
	NoReceiptReason  *string               `json:"no_receipt_reason"`
}

// EvidenceRequest is the evidence payload of submit_evidence
type EvidenceRequest struct {
	Attachments map[string]string `json:"attachments"`
	NoReceipt   []string          `json:"no_receipt"`
	Reason      string            `json:"reason"`
}

// TransitionRequest is the body of POST /api/claims/:id/transitions
// ExpectedStatus is the claim status the client acted on; a claim that has moved on yields 409.
type TransitionRequest struct {
	Trigger        domainwf.Trigger `json:"trigger" binding:"required"`
	ExpectedStatus domainwf.State   `json:"expected_status" binding:"required"`
	Reason         string           `json:"reason"`
	Evidence       *EvidenceRequest `json:"evidence"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.services.Health != nil {
		healthy, detail := h.services.Health(c.Request.Context())
		response.Components = detail
		if !healthy {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: response})
}

// Me handles GET /api/me
func (h *Handlers) Me(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}
	ok(c, http.StatusOK, actor)
}

// ListClaims handles GET /api/claims?status=
func (h *Handlers) ListClaims(c *gin.Context) {
	status := domainwf.State(c.Query("status"))
	claims, err := h.services.Claims.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, claims)
}

// CreateClaim handles POST /api/claims
func (h *Handlers) CreateClaim(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	var req CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	claim, err := h.services.Claims.Create(c.Request.Context(), actor, service.CreateClaimParams{
		Kind:             req.Kind,
		PayeeName:        req.PayeeName,
		PayeeReferenceID: req.PayeeReferenceID,
		LineItems:        req.LineItems,
		PaymentDetail:    req.PaymentDetail,
		AmountOverride:   req.AmountOverride,
		NoReceiptReason:  req.NoReceiptReason,
		Submit:           req.Submit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, claim)
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	claim, err := h.services.Claims.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// EditClaim handles PATCH /api/claims/:id
func (h *Handlers) EditClaim(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	var req EditClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	claim, err := h.services.Claims.Edit(c.Request.Context(), actor, c.Param("id"), service.EditClaimParams{
		PayeeName:        req.PayeeName,
		PayeeReferenceID: req.PayeeReferenceID,
		LineItems:        req.LineItems,
		PaymentDetail:    req.PaymentDetail,
		AmountOverride:   req.AmountOverride,
		NoReceiptReason:  req.NoReceiptReason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// DeleteClaim handles DELETE /api/claims/:id
func (h *Handlers) DeleteClaim(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	if err := h.services.Claims.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClaimHistory handles GET /api/claims/:id/history
func (h *Handlers) ClaimHistory(c *gin.Context) {
	history, err := h.services.Claims.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, history)
}

// AvailableTriggers handles GET /api/claims/:id/triggers
func (h *Handlers) AvailableTriggers(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	triggers, err := h.services.Claims.AvailableTriggers(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if triggers == nil {
		triggers = []domainwf.Trigger{}
	}
	ok(c, http.StatusOK, triggers)
}

// TransitionClaim handles POST /api/claims/:id/transitions
func (h *Handlers) TransitionClaim(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	input := workflow.Input{Reason: req.Reason, ExpectedStatus: req.ExpectedStatus}
	if req.Evidence != nil {
		input.Evidence = &workflow.Evidence{
			Attachments: req.Evidence.Attachments,
			NoReceipt:   req.Evidence.NoReceipt,
			Reason:      req.Evidence.Reason,
		}
	}

	claim, err := h.services.Claims.Transition(c.Request.Context(), actor, c.Param("id"), req.Trigger, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// UploadAttachment handles POST /api/attachments (multipart field "file")
func (h *Handlers) UploadAttachment(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	if header.Size > maxAttachmentSize {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "attachment too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxAttachmentSize))
	if err != nil {
		h.fail(c, err)
		return
	}

	ref, err := h.services.Claims.UploadAttachment(c.Request.Context(), actor, header.Filename, content)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"url": ref})
}

func (h *Handlers) actor(c *gin.Context) (*entity.Actor, bool) {
	actor, err := h.identity.CurrentActor(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: err.Error()})
		return nil, false
	}
	return actor, true
}
