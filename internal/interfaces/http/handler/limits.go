package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	applicationlimits "github.com/opsmatrix/governance/internal/application/limits"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/limits"
	"github.com/shopspring/decimal"
)

// LimitsHandler answers authority resolution queries
type LimitsHandler struct {
	BaseHandler
	service  *applicationlimits.Service
	resolver *limits.Resolver
}

// NewLimitsHandler creates a new LimitsHandler
func NewLimitsHandler(service *applicationlimits.Service, resolver *limits.Resolver) *LimitsHandler {
	return &LimitsHandler{service: service, resolver: resolver}
}

// AuthorityResponse reports the caller's resolved percentages for a scope point
type AuthorityResponse struct {
	MaxDiscountPercent       decimal.Decimal `json:"max_discount_percent"`
	MinMarginPercent         decimal.Decimal `json:"min_margin_percent"`
	MaxPriceDeviationPercent decimal.Decimal `json:"max_price_deviation_percent"`
}

// ResolveAuthority returns the caller's authority at the queried scope point
// GET /api/v1/limits?category_id=...&branch_id=...&business_unit_id=...
func (h *LimitsHandler) ResolveAuthority(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	query, err := h.buildQuery(c, principal)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	discount, err := h.resolver.MaxDiscountPercent(ctx, query)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	margin, err := h.resolver.MinMarginPercent(ctx, query)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	price, err := h.resolver.MaxPriceDeviationPercent(ctx, query)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, AuthorityResponse{
		MaxDiscountPercent:       discount,
		MinMarginPercent:         margin,
		MaxPriceDeviationPercent: price,
	})
}

type validateDiscountRequest struct {
	CategoryID      string `json:"category_id" binding:"required"`
	BranchID        string `json:"branch_id"`
	BusinessUnitID  string `json:"business_unit_id"`
	DiscountPercent string `json:"discount_percent" binding:"required"`
	// Naming the entity lets an over-threshold discount raise an approval
	// request instead of a flat rejection.
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

// ValidateDiscount checks a discount against the caller's authority
// POST /api/v1/limits/validate-discount
func (h *LimitsHandler) ValidateDiscount(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var body validateDiscountRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	categoryID, err := uuid.Parse(body.CategoryID)
	if err != nil {
		h.BadRequest(c, "Invalid category ID")
		return
	}
	requested, err := decimal.NewFromString(body.DiscountPercent)
	if err != nil {
		h.BadRequest(c, "Invalid discount percent")
		return
	}

	check := applicationlimits.DiscountCheck{
		CategoryID:      categoryID,
		DiscountPercent: requested,
		EntityType:      body.EntityType,
	}
	if body.BranchID != "" {
		id, err := uuid.Parse(body.BranchID)
		if err != nil {
			h.BadRequest(c, "Invalid branch ID")
			return
		}
		check.BranchID = &id
	}
	if body.BusinessUnitID != "" {
		id, err := uuid.Parse(body.BusinessUnitID)
		if err != nil {
			h.BadRequest(c, "Invalid business unit ID")
			return
		}
		check.BusinessUnitID = &id
	}
	if body.EntityID != "" {
		id, err := uuid.Parse(body.EntityID)
		if err != nil {
			h.BadRequest(c, "Invalid entity ID")
			return
		}
		check.EntityID = id
	}

	if err := h.service.ValidateDiscount(c.Request.Context(), principal, check); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, gin.H{"allowed": true})
}

func (h *LimitsHandler) buildQuery(c *gin.Context, principal authority.Principal) (limits.Query, error) {
	query := limits.Query{
		PersonaIDs: principal.PersonaIDs(),
		GroupCodes: principal.GroupCodes(),
	}

	categoryID, err := uuid.Parse(c.Query("category_id"))
	if err != nil {
		return query, err
	}
	query.CategoryID = categoryID

	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return query, err
		}
		query.BranchID = &id
	}
	if raw := c.Query("business_unit_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return query, err
		}
		query.BusinessUnitID = &id
	}
	return query, nil
}

// RegisterRoutes mounts the authority resolution endpoints
func (h *LimitsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/limits")
	group.GET("", h.ResolveAuthority)
	group.POST("/validate-discount", h.ValidateDiscount)
}
