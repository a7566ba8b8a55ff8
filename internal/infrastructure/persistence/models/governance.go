package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/governance"
)

// GovernanceRuleModel is the persistence model for governance rules. The
// condition tree is serialized as JSON.
type GovernanceRuleModel struct {
	CompanyAggregateModel
	Name                  string `gorm:"type:varchar(200);not null"`
	Description           string `gorm:"type:text"`
	EntityType            string `gorm:"type:varchar(100);not null;index:idx_rules_lookup"`
	Trigger               string `gorm:"column:trigger_type;type:varchar(20);not null;index:idx_rules_lookup"`
	Action                string `gorm:"type:varchar(30);not null"`
	Sequence              int    `gorm:"not null;default:10"`
	ConditionJSON         string `gorm:"type:text;column:condition_json"`
	ErrorMessage          string `gorm:"type:text"`
	LockOnApprovalRequest bool   `gorm:"not null;default:false"`
	ApproverPersonaIDs    UUIDList
	ApproverGroupCodes    StringList
	WorkflowID            *uuid.UUID `gorm:"type:uuid"`
	Active                bool       `gorm:"not null;default:true;index:idx_rules_lookup"`
	Enabled               bool       `gorm:"not null;default:true;index:idx_rules_lookup"`
}

// TableName returns the table name for GORM
func (GovernanceRuleModel) TableName() string {
	return "governance_rules"
}

// ToDomain converts the persistence model to a domain rule
func (m *GovernanceRuleModel) ToDomain() (*governance.GovernanceRule, error) {
	var condition governance.ConditionGroup
	if m.ConditionJSON != "" {
		if err := json.Unmarshal([]byte(m.ConditionJSON), &condition); err != nil {
			return nil, err
		}
	}

	rule := &governance.GovernanceRule{
		Name:                  m.Name,
		Description:           m.Description,
		EntityType:            m.EntityType,
		Trigger:               governance.TriggerType(m.Trigger),
		Action:                governance.ActionType(m.Action),
		Sequence:              m.Sequence,
		Condition:             condition,
		ErrorMessage:          m.ErrorMessage,
		LockOnApprovalRequest: m.LockOnApprovalRequest,
		ApproverPersonaIDs:    m.ApproverPersonaIDs,
		ApproverGroupCodes:    m.ApproverGroupCodes,
		WorkflowID:            m.WorkflowID,
		Active:                m.Active,
		Enabled:               m.Enabled,
	}
	m.PopulateCompanyAggregateRoot(&rule.CompanyAggregateRoot)
	return rule, nil
}

// FromDomain populates the persistence model from a domain rule
func (m *GovernanceRuleModel) FromDomain(rule *governance.GovernanceRule) error {
	conditionJSON, err := json.Marshal(rule.Condition)
	if err != nil {
		return err
	}

	m.FromDomainCompanyAggregateRoot(rule.CompanyAggregateRoot)
	m.Name = rule.Name
	m.Description = rule.Description
	m.EntityType = rule.EntityType
	m.Trigger = string(rule.Trigger)
	m.Action = string(rule.Action)
	m.Sequence = rule.Sequence
	m.ConditionJSON = string(conditionJSON)
	m.ErrorMessage = rule.ErrorMessage
	m.LockOnApprovalRequest = rule.LockOnApprovalRequest
	m.ApproverPersonaIDs = rule.ApproverPersonaIDs
	m.ApproverGroupCodes = rule.ApproverGroupCodes
	m.WorkflowID = rule.WorkflowID
	m.Active = rule.Active
	m.Enabled = rule.Enabled
	return nil
}
