package approval

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
)

// WorkflowStep is one stage of a multi-step approval workflow. A step is
// satisfied when enough of its eligible approvers have voted: at least
// MinimumApprovers, and at least ThresholdPercent of the step's approver
// pool when the threshold is set.
type WorkflowStep struct {
	shared.BaseEntity
	WorkflowID uuid.UUID
	Name       string
	// Sequence orders steps; advancement follows ascending sequence.
	Sequence int
	// Approver descriptors, resolved to principals at runtime.
	ApproverPersonaIDs []uuid.UUID
	ApproverGroupCodes []string
	MinimumApprovers   int
	// ThresholdPercent in [0,100]; zero means minimum count alone decides.
	ThresholdPercent int
	// AutoApproveAfterDays is stored for scheduling; zero disables it.
	AutoApproveAfterDays int
}

// IsSatisfied reports whether the step's quorum is met given the number of
// recorded approvals and the size of the step's approver pool
func (s WorkflowStep) IsSatisfied(approvals, poolSize int) bool {
	minimum := s.MinimumApprovers
	if minimum < 1 {
		minimum = 1
	}
	if approvals < minimum {
		return false
	}
	if s.ThresholdPercent > 0 && poolSize > 0 {
		return approvals*100 >= s.ThresholdPercent*poolSize
	}
	return true
}

// Workflow is an ordered multi-step approval chain a rule may route its
// requests through
type Workflow struct {
	shared.CompanyAggregateRoot
	Name   string
	Active bool
	Steps  []WorkflowStep
}

// NewWorkflow creates a validated workflow with its steps sorted by sequence
func NewWorkflow(companyID uuid.UUID, name string, steps []WorkflowStep) (*Workflow, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_WORKFLOW", "Workflow name cannot be empty")
	}
	if len(steps) == 0 {
		return nil, shared.NewDomainError("INVALID_WORKFLOW", "Workflow must have at least one step")
	}
	for _, step := range steps {
		if len(step.ApproverPersonaIDs) == 0 && len(step.ApproverGroupCodes) == 0 {
			return nil, shared.NewDomainError("INVALID_WORKFLOW",
				"Workflow step "+step.Name+" names no approver persona or group")
		}
		if step.ThresholdPercent < 0 || step.ThresholdPercent > 100 {
			return nil, shared.NewDomainError("INVALID_WORKFLOW",
				"Workflow step threshold must be between 0 and 100")
		}
	}

	sorted := make([]WorkflowStep, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	return &Workflow{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Name:                 name,
		Active:               true,
		Steps:                sorted,
	}, nil
}

// StepAt returns the 1-based step, nil when out of range
func (w *Workflow) StepAt(number int) *WorkflowStep {
	if number < 1 || number > len(w.Steps) {
		return nil
	}
	return &w.Steps[number-1]
}

// IsFinalStep reports whether the given 1-based step is the last one
func (w *Workflow) IsFinalStep(number int) bool {
	return number >= len(w.Steps)
}
