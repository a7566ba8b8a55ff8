package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	applicationaccess "github.com/opsmatrix/governance/internal/application/access"
)

// AccessHandler answers matrix access questions
type AccessHandler struct {
	BaseHandler
	service *applicationaccess.Service
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(service *applicationaccess.Service) *AccessHandler {
	return &AccessHandler{service: service}
}

// GrantResponse is the API shape of a resolved access grant
type GrantResponse struct {
	Unrestricted    bool        `json:"unrestricted"`
	BranchIDs       []uuid.UUID `json:"branch_ids"`
	BusinessUnitIDs []uuid.UUID `json:"business_unit_ids"`
}

// MyGrant returns the caller's resolved branch and business unit scope
// GET /api/v1/access/grant
func (h *AccessHandler) MyGrant(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	grant, err := h.service.GrantFor(c.Request.Context(), principal)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, GrantResponse{
		Unrestricted:    grant.Unrestricted,
		BranchIDs:       grant.BranchIDs,
		BusinessUnitIDs: grant.BusinessUnitIDs,
	})
}

// CheckBranch reports whether the caller may touch the given branch
// GET /api/v1/access/branches/:id/check
func (h *AccessHandler) CheckBranch(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}
	if err := h.service.CheckBranch(c.Request.Context(), principal, branchID); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, gin.H{"allowed": true})
}

// RegisterRoutes mounts the matrix access endpoints
func (h *AccessHandler) RegisterRoutes(rg *gin.RouterGroup) {
	access := rg.Group("/access")
	access.GET("/grant", h.MyGrant)
	access.GET("/branches/:id/check", h.CheckBranch)
}
