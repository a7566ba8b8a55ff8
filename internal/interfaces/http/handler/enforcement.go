package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	applicationgovernance "github.com/opsmatrix/governance/internal/application/governance"
	"github.com/opsmatrix/governance/internal/domain/authority"
)

// EnforcementHandler lets host applications run the rule catalog against a
// record snapshot over HTTP. The snapshot carries everything the engine needs;
// the host persists any lock state change the response reports.
type EnforcementHandler struct {
	BaseHandler
	service *applicationgovernance.EnforcementService
}

// NewEnforcementHandler creates a new EnforcementHandler
func NewEnforcementHandler(service *applicationgovernance.EnforcementService) *EnforcementHandler {
	return &EnforcementHandler{service: service}
}

type enforceRequest struct {
	EntityType     string         `json:"entity_type" binding:"required"`
	EntityID       string         `json:"entity_id" binding:"required"`
	CreatedBy      string         `json:"created_by"`
	ApprovalLocked bool           `json:"approval_locked"`
	Attributes     map[string]any `json:"attributes"`
	BranchID       *string        `json:"branch_id"`
	BusinessUnitID *string        `json:"business_unit_id"`
	ChangedFields  []string       `json:"changed_fields"`
	BypassReason   string         `json:"bypass_reason"`
}

// EnforceResponse reports the outcome of a passing enforcement run
type EnforceResponse struct {
	Allowed        bool `json:"allowed"`
	ApprovalLocked bool `json:"approval_locked"`
}

// recordEnvelope adapts the request snapshot to the capability interfaces
type recordEnvelope struct {
	id             uuid.UUID
	entityType     string
	createdBy      uuid.UUID
	locked         bool
	attributes     map[string]any
	branchID       *uuid.UUID
	businessUnitID *uuid.UUID
}

func (r *recordEnvelope) GetID() uuid.UUID              { return r.id }
func (r *recordEnvelope) EntityType() string            { return r.entityType }
func (r *recordEnvelope) CreatedByPrincipal() uuid.UUID { return r.createdBy }
func (r *recordEnvelope) IsApprovalLocked() bool        { return r.locked }
func (r *recordEnvelope) SetApprovalLocked(locked bool) { r.locked = locked }
func (r *recordEnvelope) Attributes() map[string]any    { return r.attributes }
func (r *recordEnvelope) BranchID() *uuid.UUID          { return r.branchID }
func (r *recordEnvelope) BusinessUnitID() *uuid.UUID    { return r.businessUnitID }

func (h *EnforcementHandler) parseEnvelope(c *gin.Context) (*recordEnvelope, *enforceRequest, bool) {
	var body enforceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return nil, nil, false
	}
	entityID, err := uuid.Parse(body.EntityID)
	if err != nil {
		h.BadRequest(c, "Invalid entity ID")
		return nil, nil, false
	}
	envelope := &recordEnvelope{
		id:         entityID,
		entityType: body.EntityType,
		locked:     body.ApprovalLocked,
		attributes: body.Attributes,
	}
	if body.CreatedBy != "" {
		createdBy, err := uuid.Parse(body.CreatedBy)
		if err != nil {
			h.BadRequest(c, "Invalid creator ID")
			return nil, nil, false
		}
		envelope.createdBy = createdBy
	}
	if body.BranchID != nil {
		id, err := uuid.Parse(*body.BranchID)
		if err != nil {
			h.BadRequest(c, "Invalid branch ID")
			return nil, nil, false
		}
		envelope.branchID = &id
	}
	if body.BusinessUnitID != nil {
		id, err := uuid.Parse(*body.BusinessUnitID)
		if err != nil {
			h.BadRequest(c, "Invalid business unit ID")
			return nil, nil, false
		}
		envelope.businessUnitID = &id
	}
	return envelope, &body, true
}

func (h *EnforcementHandler) authzFor(c *gin.Context, principal authority.Principal, bypassReason string) (authority.Context, bool) {
	if bypassReason == "" {
		return authority.NewContext(principal), true
	}
	authz, err := authority.NewBypassContext(principal, bypassReason)
	if err != nil {
		h.DomainError(c, err)
		return authority.Context{}, false
	}
	return authz, true
}

// CheckCreate runs on_create rules against the snapshot
// POST /api/v1/enforce/create
func (h *EnforcementHandler) CheckCreate(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	envelope, body, ok := h.parseEnvelope(c)
	if !ok {
		return
	}
	authz, ok := h.authzFor(c, principal, body.BypassReason)
	if !ok {
		return
	}
	if err := h.service.EnforceCreate(c.Request.Context(), authz, envelope); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, EnforceResponse{Allowed: true, ApprovalLocked: envelope.locked})
}

// CheckWrite runs on_write rules against the snapshot. A write to a locked
// record that touches anything beyond the lock flag voids pending approvals.
// POST /api/v1/enforce/write
func (h *EnforcementHandler) CheckWrite(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	envelope, body, ok := h.parseEnvelope(c)
	if !ok {
		return
	}
	authz, ok := h.authzFor(c, principal, body.BypassReason)
	if !ok {
		return
	}
	if err := h.service.EnforceWrite(c.Request.Context(), authz, envelope, body.ChangedFields); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, EnforceResponse{Allowed: true, ApprovalLocked: envelope.locked})
}

// CheckUnlink runs on_unlink rules against the snapshot
// POST /api/v1/enforce/unlink
func (h *EnforcementHandler) CheckUnlink(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	envelope, body, ok := h.parseEnvelope(c)
	if !ok {
		return
	}
	authz, ok := h.authzFor(c, principal, body.BypassReason)
	if !ok {
		return
	}
	if err := h.service.EnforceUnlink(c.Request.Context(), authz, envelope); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, EnforceResponse{Allowed: true, ApprovalLocked: envelope.locked})
}

// RegisterRoutes mounts the enforcement endpoints
func (h *EnforcementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/enforce")
	group.POST("/create", h.CheckCreate)
	group.POST("/write", h.CheckWrite)
	group.POST("/unlink", h.CheckUnlink)
}
