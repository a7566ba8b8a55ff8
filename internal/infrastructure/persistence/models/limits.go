package models

import (
	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/limits"
	"github.com/shopspring/decimal"
)

// ScopedRuleModel is the persistence model for the scoped rule catalog
type ScopedRuleModel struct {
	CompanyAggregateModel
	Kind            string          `gorm:"type:varchar(30);not null;index"`
	PersonaID       *uuid.UUID      `gorm:"type:uuid;index"`
	GroupCode       *string         `gorm:"type:varchar(100);index"`
	CategoryIDs     UUIDList        `gorm:"column:category_ids"`
	BusinessUnitIDs UUIDList        `gorm:"column:business_unit_ids"`
	BranchIDs       UUIDList        `gorm:"column:branch_ids"`
	Percent         decimal.Decimal `gorm:"type:decimal(5,2);not null"`

	ApprovalRequiredAbovePercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	ApproverPersonaIDs           UUIDList
	ApproverGroupCodes           StringList

	WarningPercent           decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	CriticalPercent          decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	AutoEscalateBelowPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	AllowNegativeMargin      bool            `gorm:"not null;default:false"`

	MaxIncreasePercent         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	MaxDecreasePercent         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	CanOverrideWithoutApproval bool            `gorm:"not null;default:false"`

	Active bool `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (ScopedRuleModel) TableName() string {
	return "scoped_rules"
}

// ToDomain converts the persistence model to a domain catalog entry
func (m *ScopedRuleModel) ToDomain() *limits.ScopedRule {
	rule := &limits.ScopedRule{
		Kind: limits.RuleKind(m.Kind),
		Actor: limits.Actor{
			PersonaID: m.PersonaID,
			GroupCode: m.GroupCode,
		},
		Scope: limits.Scope{
			CategoryIDs:     m.CategoryIDs,
			BusinessUnitIDs: m.BusinessUnitIDs,
			BranchIDs:       m.BranchIDs,
		},
		Percent: m.Percent,

		ApprovalRequiredAbovePercent: m.ApprovalRequiredAbovePercent,
		ApproverPersonaIDs:           m.ApproverPersonaIDs,
		ApproverGroupCodes:           m.ApproverGroupCodes,

		WarningPercent:           m.WarningPercent,
		CriticalPercent:          m.CriticalPercent,
		AutoEscalateBelowPercent: m.AutoEscalateBelowPercent,
		AllowNegativeMargin:      m.AllowNegativeMargin,

		MaxIncreasePercent:         m.MaxIncreasePercent,
		MaxDecreasePercent:         m.MaxDecreasePercent,
		CanOverrideWithoutApproval: m.CanOverrideWithoutApproval,

		Active: m.Active,
	}
	m.PopulateCompanyAggregateRoot(&rule.CompanyAggregateRoot)
	return rule
}

// FromDomain populates the persistence model from a domain catalog entry
func (m *ScopedRuleModel) FromDomain(rule *limits.ScopedRule) {
	m.FromDomainCompanyAggregateRoot(rule.CompanyAggregateRoot)
	m.Kind = string(rule.Kind)
	m.PersonaID = rule.Actor.PersonaID
	m.GroupCode = rule.Actor.GroupCode
	m.CategoryIDs = rule.Scope.CategoryIDs
	m.BusinessUnitIDs = rule.Scope.BusinessUnitIDs
	m.BranchIDs = rule.Scope.BranchIDs
	m.Percent = rule.Percent
	m.ApprovalRequiredAbovePercent = rule.ApprovalRequiredAbovePercent
	m.ApproverPersonaIDs = rule.ApproverPersonaIDs
	m.ApproverGroupCodes = rule.ApproverGroupCodes
	m.WarningPercent = rule.WarningPercent
	m.CriticalPercent = rule.CriticalPercent
	m.AutoEscalateBelowPercent = rule.AutoEscalateBelowPercent
	m.AllowNegativeMargin = rule.AllowNegativeMargin
	m.MaxIncreasePercent = rule.MaxIncreasePercent
	m.MaxDecreasePercent = rule.MaxDecreasePercent
	m.CanOverrideWithoutApproval = rule.CanOverrideWithoutApproval
	m.Active = rule.Active
}
