package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/governance"
	"github.com/opsmatrix/governance/internal/interfaces/http/dto"
)

// RuleHandler manages the governance rule catalog
type RuleHandler struct {
	BaseHandler
	rules governance.RuleRepository
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(rules governance.RuleRepository) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// RuleResponse is the API shape of a governance rule
type RuleResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	EntityType   string    `json:"entity_type"`
	Trigger      string    `json:"trigger"`
	Action       string    `json:"action"`
	Sequence     int       `json:"sequence"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Active       bool      `json:"active"`
	Enabled      bool      `json:"enabled"`
}

func toRuleResponse(r *governance.GovernanceRule) RuleResponse {
	return RuleResponse{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		EntityType:   r.EntityType,
		Trigger:      string(r.Trigger),
		Action:       string(r.Action),
		Sequence:     r.Sequence,
		ErrorMessage: r.ErrorMessage,
		Active:       r.Active,
		Enabled:      r.Enabled,
	}
}

// ListByEntityType returns every rule for an entity type
// GET /api/v1/rules?entity_type=sales_order
func (h *RuleHandler) ListByEntityType(c *gin.Context) {
	if _, ok := currentPrincipal(c); !ok {
		return
	}
	entityType := c.Query("entity_type")
	if entityType == "" {
		h.BadRequest(c, "entity_type query parameter is required")
		return
	}
	rules, err := h.rules.FindByEntityType(c.Request.Context(), entityType)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	out := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, toRuleResponse(r))
	}
	h.Success(c, out)
}

type createRuleRequest struct {
	CompanyID             string                    `json:"company_id" binding:"required"`
	Name                  string                    `json:"name" binding:"required"`
	Description           string                    `json:"description"`
	EntityType            string                    `json:"entity_type" binding:"required"`
	Trigger               string                    `json:"trigger" binding:"required"`
	Action                string                    `json:"action" binding:"required"`
	Sequence              int                       `json:"sequence"`
	Condition             governance.ConditionGroup `json:"condition"`
	ErrorMessage          string                    `json:"error_message"`
	LockOnApprovalRequest bool                      `json:"lock_on_approval_request"`
	ApproverPersonaIDs    []string                  `json:"approver_persona_ids"`
	ApproverGroupCodes    []string                  `json:"approver_group_codes"`
}

// Create adds a rule to the catalog. Administrators only.
// POST /api/v1/rules
func (h *RuleHandler) Create(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	if !principal.IsAdministrator() {
		h.respondError(c, dto.ErrCodeForbidden, "Only administrators may manage rules")
		return
	}

	var body createRuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	companyID, err := uuid.Parse(body.CompanyID)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	rule, err := governance.NewGovernanceRule(companyID, body.Name, body.EntityType,
		governance.TriggerType(body.Trigger), governance.ActionType(body.Action))
	if err != nil {
		h.DomainError(c, err)
		return
	}
	rule.Description = body.Description
	if body.Sequence > 0 {
		rule.Sequence = body.Sequence
	}
	rule.Condition = body.Condition
	rule.ErrorMessage = body.ErrorMessage
	rule.LockOnApprovalRequest = body.LockOnApprovalRequest
	for _, raw := range body.ApproverPersonaIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid approver persona ID")
			return
		}
		rule.ApproverPersonaIDs = append(rule.ApproverPersonaIDs, id)
	}
	rule.ApproverGroupCodes = body.ApproverGroupCodes

	if err := rule.Validate(); err != nil {
		h.DomainError(c, err)
		return
	}
	if err := h.rules.Save(c.Request.Context(), rule); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, toRuleResponse(rule))
}

// SetEnabled pauses or resumes a rule. Administrators only.
// POST /api/v1/rules/:id/enable  /api/v1/rules/:id/disable
func (h *RuleHandler) SetEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := currentPrincipal(c)
		if !ok {
			return
		}
		if !principal.IsAdministrator() {
			h.respondError(c, dto.ErrCodeForbidden, "Only administrators may manage rules")
			return
		}
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.BadRequest(c, "Invalid rule ID")
			return
		}
		rule, err := h.rules.FindByID(c.Request.Context(), id)
		if err != nil {
			h.DomainError(c, err)
			return
		}
		if enabled {
			rule.Enable()
		} else {
			rule.Disable()
		}
		if err := h.rules.Save(c.Request.Context(), rule); err != nil {
			h.DomainError(c, err)
			return
		}
		h.Success(c, toRuleResponse(rule))
	}
}

// RegisterRoutes mounts the rule catalog endpoints
func (h *RuleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rules := rg.Group("/rules")
	rules.GET("", h.ListByEntityType)
	rules.POST("", h.Create)
	rules.POST("/:id/enable", h.SetEnabled(true))
	rules.POST("/:id/disable", h.SetEnabled(false))
}
