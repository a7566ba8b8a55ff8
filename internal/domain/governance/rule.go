package governance

import (
	"strings"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
)

// TriggerType identifies the lifecycle operation a rule watches
type TriggerType string

const (
	TriggerOnCreate TriggerType = "on_create"
	TriggerOnWrite  TriggerType = "on_write"
	TriggerOnUnlink TriggerType = "on_unlink"
)

// IsValid checks if the trigger type is known
func (t TriggerType) IsValid() bool {
	return t == TriggerOnCreate || t == TriggerOnWrite || t == TriggerOnUnlink
}

// ActionType identifies what a matching rule does
type ActionType string

const (
	ActionBlock           ActionType = "block"
	ActionWarn            ActionType = "warn"
	ActionRequireApproval ActionType = "require_approval"
)

// IsValid checks if the action type is known
func (a ActionType) IsValid() bool {
	return a == ActionBlock || a == ActionWarn || a == ActionRequireApproval
}

// GovernanceRule is a configurable enforcement rule bound to one entity type
// and one trigger. Rules participate in enforcement only while both Active
// and Enabled; the two flags let administrators stage rules without deleting
// them and pause the catalog entry separately from archiving it.
type GovernanceRule struct {
	shared.CompanyAggregateRoot
	Name        string
	Description string
	EntityType  string
	Trigger     TriggerType
	Action      ActionType
	// Sequence orders evaluation; lower runs first.
	Sequence  int
	Condition ConditionGroup
	// ErrorMessage overrides the default block/warn text shown to the user.
	ErrorMessage string
	// LockOnApprovalRequest freezes the record while its approval is pending.
	LockOnApprovalRequest bool
	// Approver descriptors for require_approval rules. Personas escalate
	// through the hierarchy; groups are flat.
	ApproverPersonaIDs []uuid.UUID
	ApproverGroupCodes []string
	// WorkflowID optionally routes the created request through a multi-step
	// workflow instead of single-approver resolution.
	WorkflowID *uuid.UUID
	Active     bool
	Enabled    bool
}

// NewGovernanceRule creates a validated rule, active and enabled by default
func NewGovernanceRule(companyID uuid.UUID, name, entityType string, trigger TriggerType, action ActionType) (*GovernanceRule, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_RULE", "Rule name cannot be empty")
	}
	if strings.TrimSpace(entityType) == "" {
		return nil, shared.NewDomainError("INVALID_RULE", "Rule entity type cannot be empty")
	}
	if !trigger.IsValid() {
		return nil, shared.NewDomainError("INVALID_RULE", "Unknown trigger type: "+string(trigger))
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("INVALID_RULE", "Unknown action type: "+string(action))
	}

	return &GovernanceRule{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Name:                 name,
		EntityType:           entityType,
		Trigger:              trigger,
		Action:               action,
		Sequence:             10,
		Active:               true,
		Enabled:              true,
	}, nil
}

// IsEnforced reports whether the rule currently participates in enforcement
func (r *GovernanceRule) IsEnforced() bool {
	return r.Active && r.Enabled
}

// Validate checks the rule configuration, including its condition tree.
// A failing rule is reported to the administrator and skipped at runtime.
func (r *GovernanceRule) Validate() error {
	if err := r.Condition.Validate(); err != nil {
		if cfg, ok := err.(*ConfigurationError); ok {
			cfg.RuleName = r.Name
			return cfg
		}
		return err
	}
	if r.Action == ActionRequireApproval &&
		len(r.ApproverPersonaIDs) == 0 && len(r.ApproverGroupCodes) == 0 && r.WorkflowID == nil {
		return &ConfigurationError{
			RuleName: r.Name,
			Detail:   "require_approval rule names no approver persona, group, or workflow",
		}
	}
	return nil
}

// Matches evaluates the rule's condition against an entity attribute set.
// Syntax errors mean the rule never fires; runtime evaluation errors are
// returned as configuration errors naming the rule.
func (r *GovernanceRule) Matches(attrs map[string]any) (bool, error) {
	if err := r.Condition.Validate(); err != nil {
		return false, nil
	}
	matched, err := r.Condition.Evaluate(attrs)
	if err != nil {
		return false, &ConfigurationError{RuleName: r.Name, Detail: err.Error()}
	}
	return matched, nil
}

// MessageFor returns the user-facing message for a matched rule
func (r *GovernanceRule) MessageFor() string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	return "Operation not permitted by rule: " + r.Name
}

// Disable pauses the rule without archiving it
func (r *GovernanceRule) Disable() {
	r.Enabled = false
	r.Touch()
}

// Enable resumes a paused rule
func (r *GovernanceRule) Enable() {
	r.Enabled = true
	r.Touch()
}

// Archive deactivates the rule entirely
func (r *GovernanceRule) Archive() {
	r.Active = false
	r.Touch()
}
