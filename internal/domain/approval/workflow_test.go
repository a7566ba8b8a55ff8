package approval

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowStepIsSatisfied(t *testing.T) {
	t.Run("minimum approvers defaults to one", func(t *testing.T) {
		step := WorkflowStep{}
		assert.False(t, step.IsSatisfied(0, 5))
		assert.True(t, step.IsSatisfied(1, 5))
	})

	t.Run("minimum count alone decides when no threshold", func(t *testing.T) {
		step := WorkflowStep{MinimumApprovers: 2}
		assert.False(t, step.IsSatisfied(1, 10))
		assert.True(t, step.IsSatisfied(2, 10))
	})

	t.Run("threshold percent applies against the pool", func(t *testing.T) {
		step := WorkflowStep{MinimumApprovers: 1, ThresholdPercent: 50}
		assert.False(t, step.IsSatisfied(1, 4))
		assert.True(t, step.IsSatisfied(2, 4))
		assert.True(t, step.IsSatisfied(3, 4))
	})

	t.Run("both minimum and threshold must hold", func(t *testing.T) {
		step := WorkflowStep{MinimumApprovers: 3, ThresholdPercent: 50}
		// 2 of 4 meets the threshold but not the minimum
		assert.False(t, step.IsSatisfied(2, 4))
		assert.True(t, step.IsSatisfied(3, 4))
	})

	t.Run("empty pool falls back to minimum count", func(t *testing.T) {
		step := WorkflowStep{MinimumApprovers: 1, ThresholdPercent: 50}
		assert.True(t, step.IsSatisfied(1, 0))
	})
}

func TestNewWorkflow(t *testing.T) {
	companyID := uuid.New()
	personaID := uuid.New()

	t.Run("sorts steps by sequence", func(t *testing.T) {
		workflow, err := NewWorkflow(companyID, "two stage sign-off", []WorkflowStep{
			{Name: "director", Sequence: 2, ApproverPersonaIDs: []uuid.UUID{personaID}},
			{Name: "manager", Sequence: 1, ApproverGroupCodes: []string{"sales_managers"}},
		})
		require.NoError(t, err)
		assert.True(t, workflow.Active)
		assert.Equal(t, "manager", workflow.Steps[0].Name)
		assert.Equal(t, "director", workflow.Steps[1].Name)
	})

	t.Run("rejects empty name and stepless workflows", func(t *testing.T) {
		_, err := NewWorkflow(companyID, " ", []WorkflowStep{{ApproverPersonaIDs: []uuid.UUID{personaID}}})
		assert.Error(t, err)
		_, err = NewWorkflow(companyID, "w", nil)
		assert.Error(t, err)
	})

	t.Run("rejects steps without approver descriptors", func(t *testing.T) {
		_, err := NewWorkflow(companyID, "w", []WorkflowStep{{Name: "empty"}})
		assert.Error(t, err)
	})

	t.Run("rejects thresholds outside 0..100", func(t *testing.T) {
		_, err := NewWorkflow(companyID, "w", []WorkflowStep{
			{Name: "s", ApproverPersonaIDs: []uuid.UUID{personaID}, ThresholdPercent: 120},
		})
		assert.Error(t, err)
	})
}

func TestWorkflowStepNavigation(t *testing.T) {
	workflow, err := NewWorkflow(uuid.New(), "w", []WorkflowStep{
		{Name: "first", Sequence: 1, ApproverGroupCodes: []string{"a"}},
		{Name: "second", Sequence: 2, ApproverGroupCodes: []string{"b"}},
	})
	require.NoError(t, err)

	t.Run("StepAt is 1-based", func(t *testing.T) {
		require.NotNil(t, workflow.StepAt(1))
		assert.Equal(t, "first", workflow.StepAt(1).Name)
		assert.Equal(t, "second", workflow.StepAt(2).Name)
		assert.Nil(t, workflow.StepAt(0))
		assert.Nil(t, workflow.StepAt(3))
	})

	t.Run("IsFinalStep flags the last step", func(t *testing.T) {
		assert.False(t, workflow.IsFinalStep(1))
		assert.True(t, workflow.IsFinalStep(2))
	})
}
