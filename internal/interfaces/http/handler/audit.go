package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/audit"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence"
	"github.com/opsmatrix/governance/internal/interfaces/http/dto"
)

// AuditHandler exposes the governance audit trail, read only
type AuditHandler struct {
	BaseHandler
	sink *persistence.GormAuditSink
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(sink *persistence.GormAuditSink) *AuditHandler {
	return &AuditHandler{sink: sink}
}

// EventResponse is the API shape of one audit trail entry
type EventResponse struct {
	ID         uuid.UUID      `json:"id"`
	Kind       string         `json:"kind"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	ActorID    uuid.UUID      `json:"actor_id"`
	ActorName  string         `json:"actor_name"`
	Details    map[string]any `json:"details,omitempty"`
	At         time.Time      `json:"at"`
}

func toEventResponse(e audit.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		Kind:       string(e.Kind),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		ActorName:  e.ActorName,
		Details:    e.Details,
		At:         e.At,
	}
}

// ListForEntity returns the audit trail for one entity, newest first.
// Administrators only.
// GET /api/v1/audit?entity_type=sales_order&entity_id=...
func (h *AuditHandler) ListForEntity(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	if !principal.IsAdministrator() {
		h.respondError(c, dto.ErrCodeForbidden, "Only administrators may read the audit trail")
		return
	}
	entityType := c.Query("entity_type")
	if entityType == "" {
		h.BadRequest(c, "entity_type query parameter is required")
		return
	}
	entityID, err := uuid.Parse(c.Query("entity_id"))
	if err != nil {
		h.BadRequest(c, "Invalid entity ID")
		return
	}

	events, err := h.sink.FindForEntity(c.Request.Context(), entityType, entityID)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	h.Success(c, out)
}

// RegisterRoutes mounts the audit trail endpoints
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit", h.ListForEntity)
}
