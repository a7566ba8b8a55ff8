package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	applicationstock "github.com/opsmatrix/governance/internal/application/stock"
	"github.com/shopspring/decimal"
)

// StockHandler serves business-unit partitioned availability queries
type StockHandler struct {
	BaseHandler
	service *applicationstock.Service
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(service *applicationstock.Service) *StockHandler {
	return &StockHandler{service: service}
}

// AvailabilityResponse is the API shape of a stock position
type AvailabilityResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	BusinessUnitID uuid.UUID       `json:"business_unit_id"`
	Available      decimal.Decimal `json:"available"`
	Reserved       decimal.Decimal `json:"reserved"`
}

// Availability reports the product's stock position for a business unit.
// Omitting business_unit_id restricts the view to global stock.
// GET /api/v1/stock/:product_id/availability?business_unit_id=...
func (h *StockHandler) Availability(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}
	businessUnitID := uuid.Nil
	if raw := c.Query("business_unit_id"); raw != "" {
		businessUnitID, err = uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid business unit ID")
			return
		}
	}

	availability, err := h.service.AvailabilityFor(c.Request.Context(), principal, productID, businessUnitID)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, AvailabilityResponse{
		ProductID:      availability.ProductID,
		BusinessUnitID: availability.BusinessUnitID,
		Available:      availability.Available,
		Reserved:       availability.Reserved,
	})
}

// RegisterRoutes mounts the stock endpoints
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/stock")
	group.GET("/:product_id/availability", h.Availability)
}
