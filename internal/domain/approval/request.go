package approval

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RequestState is the lifecycle state of an approval request
type RequestState string

const (
	StatePending   RequestState = "pending"
	StateApproved  RequestState = "approved"
	StateRejected  RequestState = "rejected"
	StateCancelled RequestState = "cancelled"
)

// IsValid checks if the state is known
func (s RequestState) IsValid() bool {
	return s == StatePending || s == StateApproved || s == StateRejected || s == StateCancelled
}

// IsTerminal reports whether the state admits no further transition
func (s RequestState) IsTerminal() bool {
	return s != StatePending
}

// ViolationType classifies what triggered the request
type ViolationType string

const (
	ViolationMatrix   ViolationType = "matrix"
	ViolationDiscount ViolationType = "discount"
	ViolationMargin   ViolationType = "margin"
	ViolationPrice    ViolationType = "price"
	ViolationOther    ViolationType = "other"
)

// Severity grades a request for queue triage
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Request is one approval request raised by a require_approval rule against
// one entity. Exactly one pending request may exist per (entity type, entity
// ID, rule) at a time.
type Request struct {
	shared.CompanyAggregateRoot
	// Reference is the human-readable sequence number, e.g. "APP/00042".
	Reference  string
	EntityType string
	EntityID   uuid.UUID
	RuleID     uuid.UUID
	RuleName   string
	// WorkflowID is set when the request routes through a multi-step workflow.
	WorkflowID *uuid.UUID
	State      RequestState
	Violation  ViolationType
	Severity   Severity
	// Quantitative violation payload: what was asked for and what the
	// violated bound allowed. Zero for non-quantitative violations.
	ActualValue  decimal.Decimal
	AllowedLimit decimal.Decimal
	Reason       string
	// RequestedBy is the principal whose operation was intercepted. The
	// four-eyes check forbids this principal from approving.
	RequestedBy uuid.UUID
	// ApproverIDs are the principals eligible to resolve the request at the
	// current step, already intersected with matrix visibility.
	ApproverIDs []uuid.UUID
	// EscalatedTo names the persona the request was escalated to when the
	// requester's own persona would otherwise self-approve.
	EscalatedTo *uuid.UUID
	// CurrentStep tracks progress through the workflow, 1-based. Zero for
	// single-approver requests.
	CurrentStep int
	// StepApprovals records who has approved the current step so far.
	StepApprovals []uuid.UUID
	ResolvedBy    *uuid.UUID
	ResolvedAt    *time.Time
	Resolution    string
	// LocksEntity mirrors the rule's LockOnApprovalRequest flag so the
	// resolver knows whether to unlock the entity.
	LocksEntity bool
}

// NewRequest creates a pending request
func NewRequest(companyID uuid.UUID, reference, entityType string, entityID, ruleID uuid.UUID, ruleName string, requestedBy uuid.UUID, violation ViolationType, severity Severity) (*Request, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, shared.NewDomainError("INVALID_REQUEST", "Request reference cannot be empty")
	}
	if strings.TrimSpace(entityType) == "" {
		return nil, shared.NewDomainError("INVALID_REQUEST", "Request entity type cannot be empty")
	}
	if entityID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REQUEST", "Request entity ID cannot be empty")
	}
	if requestedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REQUEST", "Request must record the requesting principal")
	}

	return &Request{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, requestedBy),
		Reference:            reference,
		EntityType:           entityType,
		EntityID:             entityID,
		RuleID:               ruleID,
		RuleName:             ruleName,
		State:                StatePending,
		Violation:            violation,
		Severity:             severity,
		RequestedBy:          requestedBy,
	}, nil
}

// CanBeResolvedBy reports whether the principal is an eligible approver
func (r *Request) CanBeResolvedBy(principalID uuid.UUID) bool {
	for _, id := range r.ApproverIDs {
		if id == principalID {
			return true
		}
	}
	return false
}

// Approve resolves the request in favour of the intercepted operation.
// The requester may never approve their own request.
func (r *Request) Approve(approverID uuid.UUID, note string) error {
	if r.State.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Request %s is already %s", r.Reference, r.State))
	}
	if approverID == r.RequestedBy {
		return shared.NewDomainError("SELF_APPROVAL",
			"The requesting principal cannot approve their own request")
	}

	now := time.Now()
	r.State = StateApproved
	r.ResolvedBy = &approverID
	r.ResolvedAt = &now
	r.Resolution = note
	r.Touch()
	r.AddDomainEvent(NewRequestResolvedEvent(r, approverID))
	return nil
}

// RecordStepApproval registers one approver's vote on the current workflow
// step without resolving the request. Duplicate votes are ignored.
func (r *Request) RecordStepApproval(approverID uuid.UUID) error {
	if r.State.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Request %s is already %s", r.Reference, r.State))
	}
	if approverID == r.RequestedBy {
		return shared.NewDomainError("SELF_APPROVAL",
			"The requesting principal cannot approve their own request")
	}
	for _, id := range r.StepApprovals {
		if id == approverID {
			return nil
		}
	}
	r.StepApprovals = append(r.StepApprovals, approverID)
	r.Touch()
	return nil
}

// AdvanceStep moves the request to the next workflow step with a fresh
// approver set
func (r *Request) AdvanceStep(approvers []uuid.UUID) error {
	if r.State.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Request %s is already %s", r.Reference, r.State))
	}
	r.CurrentStep++
	r.ApproverIDs = approvers
	r.StepApprovals = nil
	r.Touch()
	return nil
}

// Reject resolves the request against the operation. A reason is mandatory.
func (r *Request) Reject(approverID uuid.UUID, reason string) error {
	if r.State.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Request %s is already %s", r.Reference, r.State))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("REASON_REQUIRED", "Rejection requires a reason")
	}

	now := time.Now()
	r.State = StateRejected
	r.ResolvedBy = &approverID
	r.ResolvedAt = &now
	r.Resolution = reason
	r.Touch()
	r.AddDomainEvent(NewRequestResolvedEvent(r, approverID))
	return nil
}

// Cancel withdraws a pending request, typically because the underlying
// entity changed or was deleted. Cancelling a terminal request is a no-op.
func (r *Request) Cancel(byPrincipal uuid.UUID, reason string) error {
	if r.State.IsTerminal() {
		return nil
	}
	now := time.Now()
	r.State = StateCancelled
	r.ResolvedBy = &byPrincipal
	r.ResolvedAt = &now
	r.Resolution = reason
	r.Touch()
	r.AddDomainEvent(NewRequestResolvedEvent(r, byPrincipal))
	return nil
}

// Escalate reassigns the request to a higher persona after a segregation-of-
// duties conflict
func (r *Request) Escalate(personaID uuid.UUID, approvers []uuid.UUID) error {
	if r.State.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Request %s is already %s", r.Reference, r.State))
	}
	r.EscalatedTo = &personaID
	r.ApproverIDs = approvers
	r.Touch()
	return nil
}

// RequestResolvedEvent is published when a request leaves the pending state
type RequestResolvedEvent struct {
	shared.BaseDomainEvent
	Reference  string       `json:"reference"`
	EntityType string       `json:"entity_type"`
	EntityID   uuid.UUID    `json:"entity_id"`
	State      RequestState `json:"state"`
	ResolvedBy uuid.UUID    `json:"resolved_by"`
}

// NewRequestResolvedEvent creates a resolution event for the given request
func NewRequestResolvedEvent(r *Request, resolvedBy uuid.UUID) *RequestResolvedEvent {
	return &RequestResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("approval.request_resolved", r.ID, "approval_request"),
		Reference:       r.Reference,
		EntityType:      r.EntityType,
		EntityID:        r.EntityID,
		State:           r.State,
		ResolvedBy:      resolvedBy,
	}
}
