package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/interfaces/http/dto"
)

// MatrixHandler manages the branch and business unit dimensions. Writes are
// restricted to administrators; grant caches age out within their TTL after
// a dimension change.
type MatrixHandler struct {
	BaseHandler
	branches matrix.BranchRepository
	units    matrix.BusinessUnitRepository
}

// NewMatrixHandler creates a new MatrixHandler
func NewMatrixHandler(branches matrix.BranchRepository, units matrix.BusinessUnitRepository) *MatrixHandler {
	return &MatrixHandler{branches: branches, units: units}
}

// BranchResponse is the API shape of a branch
type BranchResponse struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// BusinessUnitResponse is the API shape of a business unit
type BusinessUnitResponse struct {
	ID        uuid.UUID   `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Active    bool        `json:"active"`
	BranchIDs []uuid.UUID `json:"branch_ids"`
}

func toBranchResponse(b *matrix.Branch) BranchResponse {
	return BranchResponse{ID: b.ID, Code: b.Code, Name: b.Name, Active: b.Active}
}

func toUnitResponse(u *matrix.BusinessUnit) BusinessUnitResponse {
	return BusinessUnitResponse{ID: u.ID, Code: u.Code, Name: u.Name, Active: u.Active, BranchIDs: u.BranchIDs}
}

func (h *MatrixHandler) requireAdmin(c *gin.Context) bool {
	principal, ok := currentPrincipal(c)
	if !ok {
		return false
	}
	if !principal.IsAdministrator() {
		h.respondError(c, dto.ErrCodeForbidden, "Only administrators may manage matrix dimensions")
		return false
	}
	return true
}

// ListBranches returns every active branch
// GET /api/v1/matrix/branches
func (h *MatrixHandler) ListBranches(c *gin.Context) {
	if _, ok := currentPrincipal(c); !ok {
		return
	}
	branches, err := h.branches.FindAllActive(c.Request.Context())
	if err != nil {
		h.DomainError(c, err)
		return
	}
	out := make([]BranchResponse, 0, len(branches))
	for i := range branches {
		out = append(out, toBranchResponse(&branches[i]))
	}
	h.Success(c, out)
}

type createBranchRequest struct {
	CompanyID string `json:"company_id" binding:"required"`
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
}

// CreateBranch adds a branch
// POST /api/v1/matrix/branches
func (h *MatrixHandler) CreateBranch(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var body createBranchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	companyID, err := uuid.Parse(body.CompanyID)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}
	branch, err := matrix.NewBranch(companyID, body.Code, body.Name)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if err := h.branches.Save(c.Request.Context(), branch); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, toBranchResponse(branch))
}

// DeactivateBranch disables a branch
// POST /api/v1/matrix/branches/:id/deactivate
func (h *MatrixHandler) DeactivateBranch(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}
	branch, err := h.branches.FindByID(c.Request.Context(), id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if err := branch.Deactivate(); err != nil {
		h.DomainError(c, err)
		return
	}
	if err := h.branches.Save(c.Request.Context(), branch); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toBranchResponse(branch))
}

// ListUnits returns every active business unit
// GET /api/v1/matrix/business-units
func (h *MatrixHandler) ListUnits(c *gin.Context) {
	if _, ok := currentPrincipal(c); !ok {
		return
	}
	units, err := h.units.FindAllActive(c.Request.Context())
	if err != nil {
		h.DomainError(c, err)
		return
	}
	out := make([]BusinessUnitResponse, 0, len(units))
	for i := range units {
		out = append(out, toUnitResponse(&units[i]))
	}
	h.Success(c, out)
}

// CreateUnit adds a business unit
// POST /api/v1/matrix/business-units
func (h *MatrixHandler) CreateUnit(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var body createBranchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	companyID, err := uuid.Parse(body.CompanyID)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}
	unit, err := matrix.NewBusinessUnit(companyID, body.Code, body.Name)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if err := h.units.Save(c.Request.Context(), unit); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, toUnitResponse(unit))
}

type unitBranchRequest struct {
	BranchID string `json:"branch_id" binding:"required"`
}

// AddUnitBranch registers a branch in the unit's operating set
// POST /api/v1/matrix/business-units/:id/branches
func (h *MatrixHandler) AddUnitBranch(c *gin.Context) {
	h.changeUnitBranch(c, func(unit *matrix.BusinessUnit, branchID uuid.UUID) error {
		return unit.AddBranch(branchID)
	})
}

// RemoveUnitBranch removes a branch from the unit's operating set
// POST /api/v1/matrix/business-units/:id/branches/remove
func (h *MatrixHandler) RemoveUnitBranch(c *gin.Context) {
	h.changeUnitBranch(c, func(unit *matrix.BusinessUnit, branchID uuid.UUID) error {
		return unit.RemoveBranch(branchID)
	})
}

func (h *MatrixHandler) changeUnitBranch(c *gin.Context, change func(*matrix.BusinessUnit, uuid.UUID) error) {
	if !h.requireAdmin(c) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid business unit ID")
		return
	}
	var body unitBranchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	branchID, err := uuid.Parse(body.BranchID)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}
	unit, err := h.units.FindByID(c.Request.Context(), id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if _, err := h.branches.FindByID(c.Request.Context(), branchID); err != nil {
		h.DomainError(c, err)
		return
	}
	if err := change(unit, branchID); err != nil {
		h.DomainError(c, err)
		return
	}
	if err := h.units.Save(c.Request.Context(), unit); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toUnitResponse(unit))
}

// RegisterRoutes mounts the matrix dimension endpoints
func (h *MatrixHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/matrix")
	group.GET("/branches", h.ListBranches)
	group.POST("/branches", h.CreateBranch)
	group.POST("/branches/:id/deactivate", h.DeactivateBranch)
	group.GET("/business-units", h.ListUnits)
	group.POST("/business-units", h.CreateUnit)
	group.POST("/business-units/:id/branches", h.AddUnitBranch)
	group.POST("/business-units/:id/branches/remove", h.RemoveUnitBranch)
}
