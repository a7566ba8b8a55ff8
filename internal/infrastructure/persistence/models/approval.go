package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/approval"
	"github.com/shopspring/decimal"
)

// ApprovalRequestModel is the persistence model for approval requests. A
// partial unique index guarantees at most one pending request per
// (entity_type, entity_id, rule_id).
type ApprovalRequestModel struct {
	CompanyAggregateModel
	Reference     string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	EntityType    string     `gorm:"type:varchar(100);not null;index:idx_requests_entity"`
	EntityID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_requests_entity"`
	RuleID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	RuleName      string     `gorm:"type:varchar(200)"`
	WorkflowID    *uuid.UUID `gorm:"type:uuid"`
	State         string          `gorm:"type:varchar(20);not null;index"`
	Violation     string          `gorm:"type:varchar(20);not null"`
	Severity      string          `gorm:"type:varchar(20);not null"`
	ActualValue   decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	AllowedLimit  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	Reason        string          `gorm:"type:text"`
	RequestedBy   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ApproverIDs   UUIDList
	EscalatedTo   *uuid.UUID `gorm:"type:uuid"`
	CurrentStep   int        `gorm:"not null;default:0"`
	StepApprovals UUIDList
	ResolvedBy    *uuid.UUID `gorm:"type:uuid"`
	ResolvedAt    *time.Time
	Resolution    string `gorm:"type:text"`
	LocksEntity   bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ApprovalRequestModel) TableName() string {
	return "approval_requests"
}

// ToDomain converts the persistence model to a domain request
func (m *ApprovalRequestModel) ToDomain() *approval.Request {
	request := &approval.Request{
		Reference:     m.Reference,
		EntityType:    m.EntityType,
		EntityID:      m.EntityID,
		RuleID:        m.RuleID,
		RuleName:      m.RuleName,
		WorkflowID:    m.WorkflowID,
		State:         approval.RequestState(m.State),
		Violation:     approval.ViolationType(m.Violation),
		Severity:      approval.Severity(m.Severity),
		ActualValue:   m.ActualValue,
		AllowedLimit:  m.AllowedLimit,
		Reason:        m.Reason,
		RequestedBy:   m.RequestedBy,
		ApproverIDs:   m.ApproverIDs,
		EscalatedTo:   m.EscalatedTo,
		CurrentStep:   m.CurrentStep,
		StepApprovals: m.StepApprovals,
		ResolvedBy:    m.ResolvedBy,
		ResolvedAt:    m.ResolvedAt,
		Resolution:    m.Resolution,
		LocksEntity:   m.LocksEntity,
	}
	m.PopulateCompanyAggregateRoot(&request.CompanyAggregateRoot)
	return request
}

// FromDomain populates the persistence model from a domain request
func (m *ApprovalRequestModel) FromDomain(request *approval.Request) {
	m.FromDomainCompanyAggregateRoot(request.CompanyAggregateRoot)
	m.Reference = request.Reference
	m.EntityType = request.EntityType
	m.EntityID = request.EntityID
	m.RuleID = request.RuleID
	m.RuleName = request.RuleName
	m.WorkflowID = request.WorkflowID
	m.State = string(request.State)
	m.Violation = string(request.Violation)
	m.Severity = string(request.Severity)
	m.ActualValue = request.ActualValue
	m.AllowedLimit = request.AllowedLimit
	m.Reason = request.Reason
	m.RequestedBy = request.RequestedBy
	m.ApproverIDs = request.ApproverIDs
	m.EscalatedTo = request.EscalatedTo
	m.CurrentStep = request.CurrentStep
	m.StepApprovals = request.StepApprovals
	m.ResolvedBy = request.ResolvedBy
	m.ResolvedAt = request.ResolvedAt
	m.Resolution = request.Resolution
	m.LocksEntity = request.LocksEntity
}

// ApprovalWorkflowModel is the persistence model for approval workflows
type ApprovalWorkflowModel struct {
	CompanyAggregateModel
	Name   string              `gorm:"type:varchar(200);not null"`
	Active bool                `gorm:"not null;default:true"`
	Steps  []WorkflowStepModel `gorm:"foreignKey:WorkflowID"`
}

// TableName returns the table name for GORM
func (ApprovalWorkflowModel) TableName() string {
	return "approval_workflows"
}

// WorkflowStepModel is the persistence model for workflow steps
type WorkflowStepModel struct {
	BaseModel
	WorkflowID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Name                 string    `gorm:"type:varchar(200)"`
	Sequence             int       `gorm:"not null"`
	ApproverPersonaIDs   UUIDList
	ApproverGroupCodes   StringList
	MinimumApprovers     int `gorm:"not null;default:1"`
	ThresholdPercent     int `gorm:"not null;default:0"`
	AutoApproveAfterDays int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (WorkflowStepModel) TableName() string {
	return "approval_workflow_steps"
}

// ToDomain converts the persistence model to a domain workflow
func (m *ApprovalWorkflowModel) ToDomain() *approval.Workflow {
	steps := make([]approval.WorkflowStep, 0, len(m.Steps))
	for _, stepModel := range m.Steps {
		steps = append(steps, approval.WorkflowStep{
			BaseEntity:           stepModel.BaseModel.ToDomain(),
			WorkflowID:           stepModel.WorkflowID,
			Name:                 stepModel.Name,
			Sequence:             stepModel.Sequence,
			ApproverPersonaIDs:   stepModel.ApproverPersonaIDs,
			ApproverGroupCodes:   stepModel.ApproverGroupCodes,
			MinimumApprovers:     stepModel.MinimumApprovers,
			ThresholdPercent:     stepModel.ThresholdPercent,
			AutoApproveAfterDays: stepModel.AutoApproveAfterDays,
		})
	}

	workflow := &approval.Workflow{
		Name:   m.Name,
		Active: m.Active,
		Steps:  steps,
	}
	m.PopulateCompanyAggregateRoot(&workflow.CompanyAggregateRoot)
	return workflow
}

// FromDomain populates the persistence model from a domain workflow
func (m *ApprovalWorkflowModel) FromDomain(workflow *approval.Workflow) {
	m.FromDomainCompanyAggregateRoot(workflow.CompanyAggregateRoot)
	m.Name = workflow.Name
	m.Active = workflow.Active
	m.Steps = make([]WorkflowStepModel, 0, len(workflow.Steps))
	for _, step := range workflow.Steps {
		stepModel := WorkflowStepModel{
			WorkflowID:           workflow.ID,
			Name:                 step.Name,
			Sequence:             step.Sequence,
			ApproverPersonaIDs:   step.ApproverPersonaIDs,
			ApproverGroupCodes:   step.ApproverGroupCodes,
			MinimumApprovers:     step.MinimumApprovers,
			ThresholdPercent:     step.ThresholdPercent,
			AutoApproveAfterDays: step.AutoApproveAfterDays,
		}
		stepModel.FromDomainBaseEntity(step.BaseEntity)
		m.Steps = append(m.Steps, stepModel)
	}
}

// ApprovalSequenceModel backs the "APP/00001" reference counter
type ApprovalSequenceModel struct {
	Code    string `gorm:"type:varchar(20);primary_key"`
	NextVal int64  `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (ApprovalSequenceModel) TableName() string {
	return "approval_sequences"
}
