package approval

import (
	"testing"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T) *Request {
	t.Helper()
	request, err := NewRequest(uuid.New(), "APP/00001", "sales_order",
		uuid.New(), uuid.New(), "big orders", uuid.New(), ViolationOther, SeverityMedium)
	require.NoError(t, err)
	return request
}

func TestNewRequest(t *testing.T) {
	t.Run("creates a pending request", func(t *testing.T) {
		request := newTestRequest(t)
		assert.Equal(t, StatePending, request.State)
		assert.False(t, request.State.IsTerminal())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewRequest(uuid.New(), "", "sales_order", uuid.New(), uuid.New(), "r", uuid.New(), ViolationOther, SeverityLow)
		assert.Error(t, err)
		_, err = NewRequest(uuid.New(), "APP/00001", "", uuid.New(), uuid.New(), "r", uuid.New(), ViolationOther, SeverityLow)
		assert.Error(t, err)
		_, err = NewRequest(uuid.New(), "APP/00001", "sales_order", uuid.Nil, uuid.New(), "r", uuid.New(), ViolationOther, SeverityLow)
		assert.Error(t, err)
		_, err = NewRequest(uuid.New(), "APP/00001", "sales_order", uuid.New(), uuid.New(), "r", uuid.Nil, ViolationOther, SeverityLow)
		assert.Error(t, err)
	})
}

func TestRequestApprove(t *testing.T) {
	t.Run("approves and records resolver", func(t *testing.T) {
		request := newTestRequest(t)
		approver := uuid.New()

		require.NoError(t, request.Approve(approver, "looks fine"))
		assert.Equal(t, StateApproved, request.State)
		require.NotNil(t, request.ResolvedBy)
		assert.Equal(t, approver, *request.ResolvedBy)
		assert.NotNil(t, request.ResolvedAt)
		assert.Equal(t, "looks fine", request.Resolution)
		assert.NotEmpty(t, request.GetDomainEvents())
	})

	t.Run("requester cannot approve their own request", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.Approve(request.RequestedBy, "")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "SELF_APPROVAL", domainErr.Code)
		assert.Equal(t, StatePending, request.State)
	})

	t.Run("terminal requests reject further transitions", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Approve(uuid.New(), ""))

		err := request.Approve(uuid.New(), "")
		assert.Error(t, err)
		err = request.Reject(uuid.New(), "changed my mind")
		assert.Error(t, err)
	})
}

func TestRequestReject(t *testing.T) {
	t.Run("rejection requires a reason", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.Reject(uuid.New(), "   ")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "REASON_REQUIRED", domainErr.Code)
		assert.Equal(t, StatePending, request.State)
	})

	t.Run("rejects with a reason", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Reject(uuid.New(), "discount too deep"))
		assert.Equal(t, StateRejected, request.State)
		assert.Equal(t, "discount too deep", request.Resolution)
	})
}

func TestRequestCancel(t *testing.T) {
	t.Run("cancels a pending request", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Cancel(request.RequestedBy, "entity changed"))
		assert.Equal(t, StateCancelled, request.State)
	})

	t.Run("cancelling a terminal request is a no-op", func(t *testing.T) {
		request := newTestRequest(t)
		require.NoError(t, request.Approve(uuid.New(), ""))
		require.NoError(t, request.Cancel(uuid.New(), "too late"))
		assert.Equal(t, StateApproved, request.State)
	})
}

func TestRequestStepApprovals(t *testing.T) {
	t.Run("records votes and deduplicates", func(t *testing.T) {
		request := newTestRequest(t)
		approver := uuid.New()

		require.NoError(t, request.RecordStepApproval(approver))
		require.NoError(t, request.RecordStepApproval(approver))
		assert.Len(t, request.StepApprovals, 1)
	})

	t.Run("requester cannot vote", func(t *testing.T) {
		request := newTestRequest(t)
		err := request.RecordStepApproval(request.RequestedBy)
		assert.Error(t, err)
	})

	t.Run("advance resets votes and approver set", func(t *testing.T) {
		request := newTestRequest(t)
		request.CurrentStep = 1
		require.NoError(t, request.RecordStepApproval(uuid.New()))

		nextApprovers := []uuid.UUID{uuid.New(), uuid.New()}
		require.NoError(t, request.AdvanceStep(nextApprovers))
		assert.Equal(t, 2, request.CurrentStep)
		assert.Equal(t, nextApprovers, request.ApproverIDs)
		assert.Empty(t, request.StepApprovals)
	})
}

func TestRequestEscalate(t *testing.T) {
	request := newTestRequest(t)
	personaID := uuid.New()
	approvers := []uuid.UUID{uuid.New()}

	require.NoError(t, request.Escalate(personaID, approvers))
	require.NotNil(t, request.EscalatedTo)
	assert.Equal(t, personaID, *request.EscalatedTo)
	assert.Equal(t, approvers, request.ApproverIDs)
}

func TestRequestEligibility(t *testing.T) {
	request := newTestRequest(t)
	eligible := uuid.New()
	request.ApproverIDs = []uuid.UUID{eligible}

	assert.True(t, request.CanBeResolvedBy(eligible))
	assert.False(t, request.CanBeResolvedBy(uuid.New()))
}
