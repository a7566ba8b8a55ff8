package approval

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/approval"
	"github.com/opsmatrix/governance/internal/domain/audit"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRequestRepo struct {
	requests []*approval.Request
	sequence int
}

func (f *fakeRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*approval.Request, error) {
	for _, r := range f.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRequestRepo) FindByReference(_ context.Context, reference string) (*approval.Request, error) {
	for _, r := range f.requests {
		if r.Reference == reference {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRequestRepo) FindPending(_ context.Context, entityType string, entityID, ruleID uuid.UUID) (*approval.Request, error) {
	for _, r := range f.requests {
		if r.State == approval.StatePending && r.EntityType == entityType &&
			r.EntityID == entityID && r.RuleID == ruleID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRequestRepo) FindApproved(_ context.Context, entityType string, entityID, ruleID uuid.UUID) (*approval.Request, error) {
	for _, r := range f.requests {
		if r.State == approval.StateApproved && r.EntityType == entityType &&
			r.EntityID == entityID && r.RuleID == ruleID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRequestRepo) FindPendingForEntity(_ context.Context, entityType string, entityID uuid.UUID) ([]*approval.Request, error) {
	var out []*approval.Request
	for _, r := range f.requests {
		if r.State == approval.StatePending && r.EntityType == entityType && r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) FindPendingForApprover(_ context.Context, principalID uuid.UUID) ([]*approval.Request, error) {
	var out []*approval.Request
	for _, r := range f.requests {
		if r.State == approval.StatePending && r.CanBeResolvedBy(principalID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) NextReference(_ context.Context) (string, error) {
	f.sequence++
	return fmt.Sprintf("APP/%05d", f.sequence), nil
}

func (f *fakeRequestRepo) Save(_ context.Context, request *approval.Request) error {
	for i, existing := range f.requests {
		if existing.ID == request.ID {
			f.requests[i] = request
			return nil
		}
	}
	f.requests = append(f.requests, request)
	return nil
}

type fakeWorkflowRepo struct {
	workflows map[uuid.UUID]*approval.Workflow
}

func (f *fakeWorkflowRepo) FindByID(_ context.Context, id uuid.UUID) (*approval.Workflow, error) {
	if w, ok := f.workflows[id]; ok {
		return w, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeWorkflowRepo) FindAllActive(_ context.Context) ([]*approval.Workflow, error) {
	var out []*approval.Workflow
	for _, w := range f.workflows {
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeWorkflowRepo) Save(_ context.Context, workflow *approval.Workflow) error {
	f.workflows[workflow.ID] = workflow
	return nil
}

type fakeDirectory struct {
	byPersona map[uuid.UUID][]authority.Principal
	byGroup   map[string][]authority.Principal
}

func (f *fakeDirectory) FindPrincipal(_ context.Context, _ uuid.UUID) (authority.Principal, error) {
	return nil, shared.ErrNotFound
}

func (f *fakeDirectory) PrincipalsWithPersona(_ context.Context, personaID uuid.UUID) ([]authority.Principal, error) {
	return f.byPersona[personaID], nil
}

func (f *fakeDirectory) PrincipalsInGroup(_ context.Context, group string) ([]authority.Principal, error) {
	return f.byGroup[group], nil
}

type fakeSink struct {
	events []audit.Event
}

func (f *fakeSink) Record(_ context.Context, event audit.Event) error {
	f.events = append(f.events, event)
	return nil
}

type fakeRecordGateway struct {
	unlocked []uuid.UUID
}

func (f *fakeRecordGateway) Unlock(_ context.Context, _ string, entityID uuid.UUID) error {
	f.unlocked = append(f.unlocked, entityID)
	return nil
}

type fakeUnitRepo struct{}

func (fakeUnitRepo) FindByID(_ context.Context, _ uuid.UUID) (*matrix.BusinessUnit, error) {
	return nil, shared.ErrNotFound
}
func (fakeUnitRepo) FindByIDs(_ context.Context, _ []uuid.UUID) ([]matrix.BusinessUnit, error) {
	return nil, nil
}
func (fakeUnitRepo) FindAllActive(_ context.Context) ([]matrix.BusinessUnit, error) {
	return nil, nil
}
func (fakeUnitRepo) Save(_ context.Context, _ *matrix.BusinessUnit) error { return nil }

type serviceFixture struct {
	service   *Service
	requests  *fakeRequestRepo
	workflows *fakeWorkflowRepo
	directory *fakeDirectory
	records   *fakeRecordGateway
	auditor   *fakeSink
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		requests:  &fakeRequestRepo{},
		workflows: &fakeWorkflowRepo{workflows: map[uuid.UUID]*approval.Workflow{}},
		directory: &fakeDirectory{byPersona: map[uuid.UUID][]authority.Principal{}, byGroup: map[string][]authority.Principal{}},
		records:   &fakeRecordGateway{},
		auditor:   &fakeSink{},
	}
	f.service = NewService(f.requests, f.workflows, f.directory,
		matrix.NewAccessResolver(fakeUnitRepo{}), f.records, f.auditor, zap.NewNop())
	return f
}

func seedRequest(t *testing.T, f *serviceFixture, approvers ...uuid.UUID) *approval.Request {
	t.Helper()
	request, err := approval.NewRequest(uuid.New(), "APP/00001", "sales_order",
		uuid.New(), uuid.New(), "big order sign-off", uuid.New(),
		approval.ViolationOther, approval.SeverityMedium)
	require.NoError(t, err)
	request.ApproverIDs = approvers
	request.LocksEntity = true
	require.NoError(t, f.requests.Save(context.Background(), request))
	return request
}

func TestServiceApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("eligible approver resolves and unlocks the record", func(t *testing.T) {
		f := newServiceFixture()
		approver := &authority.User{ID: uuid.New(), Name: "manager"}
		request := seedRequest(t, f, approver.ID)

		resolved, err := f.service.Approve(ctx, approver, request.ID, "looks fine")
		require.NoError(t, err)
		assert.Equal(t, approval.StateApproved, resolved.State)
		assert.Equal(t, []uuid.UUID{request.EntityID}, f.records.unlocked)

		require.Len(t, f.auditor.events, 1)
		assert.Equal(t, audit.KindApprovalGranted, f.auditor.events[0].Kind)
	})

	t.Run("ineligible principal is forbidden", func(t *testing.T) {
		f := newServiceFixture()
		request := seedRequest(t, f, uuid.New())

		stranger := &authority.User{ID: uuid.New(), Name: "stranger"}
		_, err := f.service.Approve(ctx, stranger, request.ID, "")
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("administrator may resolve any request", func(t *testing.T) {
		f := newServiceFixture()
		request := seedRequest(t, f, uuid.New())

		admin := &authority.User{ID: uuid.New(), Name: "root", Administrator: true}
		resolved, err := f.service.Approve(ctx, admin, request.ID, "")
		require.NoError(t, err)
		assert.Equal(t, approval.StateApproved, resolved.State)
	})

	t.Run("unlock waits while another locking request is pending", func(t *testing.T) {
		f := newServiceFixture()
		approver := &authority.User{ID: uuid.New(), Name: "manager"}
		request := seedRequest(t, f, approver.ID)

		other, err := approval.NewRequest(request.CompanyID, "APP/00002", request.EntityType,
			request.EntityID, uuid.New(), "second rule", request.RequestedBy,
			approval.ViolationOther, approval.SeverityMedium)
		require.NoError(t, err)
		other.LocksEntity = true
		require.NoError(t, f.requests.Save(ctx, other))

		_, err = f.service.Approve(ctx, approver, request.ID, "")
		require.NoError(t, err)
		assert.Empty(t, f.records.unlocked)
	})

	t.Run("unknown request surfaces not found", func(t *testing.T) {
		f := newServiceFixture()
		_, err := f.service.Approve(ctx, &authority.User{ID: uuid.New()}, uuid.New(), "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestServiceWorkflowApproval(t *testing.T) {
	ctx := context.Background()

	buildWorkflowFixture := func(t *testing.T) (*serviceFixture, *approval.Request, []*authority.User, *authority.User) {
		t.Helper()
		f := newServiceFixture()

		directorPersona := uuid.New()
		director := &authority.User{ID: uuid.New(), Name: "director", Personas: []uuid.UUID{directorPersona}}
		f.directory.byPersona[directorPersona] = []authority.Principal{director}

		workflow, err := approval.NewWorkflow(uuid.New(), "two stage", []approval.WorkflowStep{
			{Name: "managers", Sequence: 1, MinimumApprovers: 2, ApproverGroupCodes: []string{"sales_managers"}},
			{Name: "director", Sequence: 2, ApproverPersonaIDs: []uuid.UUID{directorPersona}},
		})
		require.NoError(t, err)
		f.workflows.workflows[workflow.ID] = workflow

		managers := []*authority.User{
			{ID: uuid.New(), Name: "manager one"},
			{ID: uuid.New(), Name: "manager two"},
		}
		request := seedRequest(t, f, managers[0].ID, managers[1].ID)
		request.WorkflowID = &workflow.ID
		request.CurrentStep = 1
		return f, request, managers, director
	}

	t.Run("step advances only when the quorum is met", func(t *testing.T) {
		f, request, managers, _ := buildWorkflowFixture(t)

		after, err := f.service.Approve(ctx, managers[0], request.ID, "")
		require.NoError(t, err)
		assert.Equal(t, approval.StatePending, after.State)
		assert.Equal(t, 1, after.CurrentStep)

		after, err = f.service.Approve(ctx, managers[1], request.ID, "")
		require.NoError(t, err)
		assert.Equal(t, approval.StatePending, after.State)
		assert.Equal(t, 2, after.CurrentStep)
		assert.Empty(t, after.StepApprovals)
	})

	t.Run("advancing rebuilds the approver pool for the next step", func(t *testing.T) {
		f, request, managers, director := buildWorkflowFixture(t)

		_, err := f.service.Approve(ctx, managers[0], request.ID, "")
		require.NoError(t, err)
		after, err := f.service.Approve(ctx, managers[1], request.ID, "")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{director.ID}, after.ApproverIDs)
	})

	t.Run("final step approval resolves the request", func(t *testing.T) {
		f, request, managers, director := buildWorkflowFixture(t)

		_, err := f.service.Approve(ctx, managers[0], request.ID, "")
		require.NoError(t, err)
		_, err = f.service.Approve(ctx, managers[1], request.ID, "")
		require.NoError(t, err)

		after, err := f.service.Approve(ctx, director, request.ID, "signed")
		require.NoError(t, err)
		assert.Equal(t, approval.StateApproved, after.State)
		assert.Equal(t, []uuid.UUID{request.EntityID}, f.records.unlocked)
	})

	t.Run("duplicate votes do not advance the step", func(t *testing.T) {
		f, request, managers, _ := buildWorkflowFixture(t)

		_, err := f.service.Approve(ctx, managers[0], request.ID, "")
		require.NoError(t, err)
		after, err := f.service.Approve(ctx, managers[0], request.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 1, after.CurrentStep)
		assert.Len(t, after.StepApprovals, 1)
	})
}

func TestServiceReject(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects with a reason and audits", func(t *testing.T) {
		f := newServiceFixture()
		approver := &authority.User{ID: uuid.New(), Name: "manager"}
		request := seedRequest(t, f, approver.ID)

		resolved, err := f.service.Reject(ctx, approver, request.ID, "discount too deep")
		require.NoError(t, err)
		assert.Equal(t, approval.StateRejected, resolved.State)
		require.Len(t, f.auditor.events, 1)
		assert.Equal(t, audit.KindApprovalRejected, f.auditor.events[0].Kind)
	})

	t.Run("rejection without a reason fails", func(t *testing.T) {
		f := newServiceFixture()
		approver := &authority.User{ID: uuid.New(), Name: "manager"}
		request := seedRequest(t, f, approver.ID)

		_, err := f.service.Reject(ctx, approver, request.ID, " ")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "REASON_REQUIRED", domainErr.Code)
	})
}

func TestServiceCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("requester may withdraw their own request", func(t *testing.T) {
		f := newServiceFixture()
		request := seedRequest(t, f, uuid.New())

		requester := &authority.User{ID: request.RequestedBy, Name: "requester"}
		resolved, err := f.service.Cancel(ctx, requester, request.ID, "entity deleted")
		require.NoError(t, err)
		assert.Equal(t, approval.StateCancelled, resolved.State)
	})

	t.Run("third parties may not cancel", func(t *testing.T) {
		f := newServiceFixture()
		request := seedRequest(t, f, uuid.New())

		stranger := &authority.User{ID: uuid.New(), Name: "stranger"}
		_, err := f.service.Cancel(ctx, stranger, request.ID, "nope")
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestServicePendingFor(t *testing.T) {
	f := newServiceFixture()
	approver := &authority.User{ID: uuid.New(), Name: "manager"}
	mine := seedRequest(t, f, approver.ID)
	seedRequest(t, f, uuid.New())

	pending, err := f.service.PendingFor(context.Background(), approver)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)
}
