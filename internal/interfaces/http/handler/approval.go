package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	applicationapproval "github.com/opsmatrix/governance/internal/application/approval"
	"github.com/opsmatrix/governance/internal/domain/approval"
)

// ApprovalHandler serves the approval request queue
type ApprovalHandler struct {
	BaseHandler
	service *applicationapproval.Service
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(service *applicationapproval.Service) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// RequestResponse is the API shape of an approval request
type RequestResponse struct {
	ID          uuid.UUID  `json:"id"`
	Reference   string     `json:"reference"`
	EntityType  string     `json:"entity_type"`
	EntityID    uuid.UUID  `json:"entity_id"`
	RuleName    string     `json:"rule_name"`
	State       string     `json:"state"`
	Violation   string     `json:"violation"`
	Severity    string     `json:"severity"`
	Reason      string     `json:"reason"`
	RequestedBy uuid.UUID  `json:"requested_by"`
	CurrentStep int        `json:"current_step,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toRequestResponse(r *approval.Request) RequestResponse {
	return RequestResponse{
		ID:          r.ID,
		Reference:   r.Reference,
		EntityType:  r.EntityType,
		EntityID:    r.EntityID,
		RuleName:    r.RuleName,
		State:       string(r.State),
		Violation:   string(r.Violation),
		Severity:    string(r.Severity),
		Reason:      r.Reason,
		RequestedBy: r.RequestedBy,
		CurrentStep: r.CurrentStep,
		ResolvedAt:  r.ResolvedAt,
		Resolution:  r.Resolution,
		CreatedAt:   r.CreatedAt,
	}
}

// ListPending returns the requests awaiting the caller's decision
// GET /api/v1/approvals
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	requests, err := h.service.PendingFor(c.Request.Context(), principal)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	out := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toRequestResponse(r))
	}
	h.Success(c, out)
}

// Get returns one request
// GET /api/v1/approvals/:id
func (h *ApprovalHandler) Get(c *gin.Context) {
	if _, ok := currentPrincipal(c); !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}
	request, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toRequestResponse(request))
}

type resolveRequest struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// Approve records the caller's approval
// POST /api/v1/approvals/:id/approve
func (h *ApprovalHandler) Approve(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}
	var body resolveRequest
	_ = c.ShouldBindJSON(&body)

	request, err := h.service.Approve(c.Request.Context(), principal, id, body.Note)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toRequestResponse(request))
}

// Reject resolves the request against the operation. A reason is mandatory.
// POST /api/v1/approvals/:id/reject
func (h *ApprovalHandler) Reject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}
	var body resolveRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Reason == "" {
		h.BadRequest(c, "Rejection requires a reason")
		return
	}

	request, err := h.service.Reject(c.Request.Context(), principal, id, body.Reason)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toRequestResponse(request))
}

// Cancel withdraws a pending request
// POST /api/v1/approvals/:id/cancel
func (h *ApprovalHandler) Cancel(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}
	var body resolveRequest
	_ = c.ShouldBindJSON(&body)

	request, err := h.service.Cancel(c.Request.Context(), principal, id, body.Reason)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toRequestResponse(request))
}

// RegisterRoutes mounts the approval queue endpoints
func (h *ApprovalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	approvals := rg.Group("/approvals")
	approvals.GET("", h.ListPending)
	approvals.GET("/:id", h.Get)
	approvals.POST("/:id/approve", h.Approve)
	approvals.POST("/:id/reject", h.Reject)
	approvals.POST("/:id/cancel", h.Cancel)
}
