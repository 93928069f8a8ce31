package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimflow/internal/application/service"
	"github.com/garyjia/claimflow/internal/domain/entity"
)

// ProposeRequest is the body of POST /api/vendor-requests
type ProposeRequest struct {
	ChangeType   entity.ChangeType   `json:"change_type" binding:"required"`
	VendorID     string              `json:"vendor_id"`
	ProposedData entity.VendorFields `json:"proposed_data"`
}

// DecisionRequest is the body of POST /api/vendor-requests/:id/decision
type DecisionRequest struct {
	Decision service.Decision `json:"decision" binding:"required"`
}

// ListVendors handles GET /api/vendors
func (h *Handlers) ListVendors(c *gin.Context) {
	vendors, err := h.services.Vendors.ListVendors(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, vendors)
}

// GetVendor handles GET /api/vendors/:id
func (h *Handlers) GetVendor(c *gin.Context) {
	vendor, err := h.services.Vendors.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, vendor)
}

// ListPendingRequests handles GET /api/vendor-requests
func (h *Handlers) ListPendingRequests(c *gin.Context) {
	requests, err := h.services.Vendors.ListPending(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, requests)
}

// ProposeVendorChange handles POST /api/vendor-requests
func (h *Handlers) ProposeVendorChange(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	created, err := h.services.Vendors.Propose(c.Request.Context(), actor, service.ProposeParams{
		ChangeType:   req.ChangeType,
		VendorID:     req.VendorID,
		ProposedData: req.ProposedData,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// GetVendorRequest handles GET /api/vendor-requests/:id
func (h *Handlers) GetVendorRequest(c *gin.Context) {
	req, err := h.services.Vendors.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, req)
}

// DiffVendorRequest handles GET /api/vendor-requests/:id/diff
func (h *Handlers) DiffVendorRequest(c *gin.Context) {
	changes, err := h.services.Vendors.Diff(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if changes == nil {
		changes = []entity.FieldChange{}
	}
	ok(c, http.StatusOK, changes)
}

// DecideVendorRequest handles POST /api/vendor-requests/:id/decision
func (h *Handlers) DecideVendorRequest(c *gin.Context) {
	actor, okActor := h.actor(c)
	if !okActor {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	decided, err := h.services.Vendors.Decide(c.Request.Context(), actor, c.Param("id"), req.Decision)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, decided)
}
