package limits

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/approval"
	"github.com/opsmatrix/governance/internal/domain/audit"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/governance"
	"github.com/opsmatrix/governance/internal/domain/limits"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	rules []*limits.ScopedRule
}

func (f *fakeCatalog) FindByID(_ context.Context, id uuid.UUID) (*limits.ScopedRule, error) {
	for _, rule := range f.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeCatalog) FindActiveByKind(_ context.Context, kind limits.RuleKind) ([]*limits.ScopedRule, error) {
	var out []*limits.ScopedRule
	for _, rule := range f.rules {
		if rule.Active && rule.Kind == kind {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Save(_ context.Context, rule *limits.ScopedRule) error {
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeCatalog) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type fakeRequests struct {
	requests []*approval.Request
	sequence int
}

func (f *fakeRequests) FindByID(_ context.Context, id uuid.UUID) (*approval.Request, error) {
	for _, r := range f.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRequests) FindByReference(_ context.Context, reference string) (*approval.Request, error) {
	for _, r := range f.requests {
		if r.Reference == reference {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRequests) FindPending(_ context.Context, entityType string, entityID, ruleID uuid.UUID) (*approval.Request, error) {
	for _, r := range f.requests {
		if r.State == approval.StatePending && r.EntityType == entityType &&
			r.EntityID == entityID && r.RuleID == ruleID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRequests) FindApproved(_ context.Context, entityType string, entityID, ruleID uuid.UUID) (*approval.Request, error) {
	for _, r := range f.requests {
		if r.State == approval.StateApproved && r.EntityType == entityType &&
			r.EntityID == entityID && r.RuleID == ruleID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRequests) FindPendingForEntity(_ context.Context, entityType string, entityID uuid.UUID) ([]*approval.Request, error) {
	var out []*approval.Request
	for _, r := range f.requests {
		if r.State == approval.StatePending && r.EntityType == entityType && r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequests) FindPendingForApprover(_ context.Context, principalID uuid.UUID) ([]*approval.Request, error) {
	var out []*approval.Request
	for _, r := range f.requests {
		if r.State == approval.StatePending && r.CanBeResolvedBy(principalID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequests) NextReference(_ context.Context) (string, error) {
	f.sequence++
	return fmt.Sprintf("APP/%05d", f.sequence), nil
}

func (f *fakeRequests) Save(_ context.Context, request *approval.Request) error {
	for i, existing := range f.requests {
		if existing.ID == request.ID {
			f.requests[i] = request
			return nil
		}
	}
	f.requests = append(f.requests, request)
	return nil
}

type fakeDirectory struct {
	byPersona map[uuid.UUID][]authority.Principal
	byGroup   map[string][]authority.Principal
}

func (f *fakeDirectory) FindPrincipal(_ context.Context, id uuid.UUID) (authority.Principal, error) {
	for _, list := range f.byPersona {
		for _, p := range list {
			if p.PrincipalID() == id {
				return p, nil
			}
		}
	}
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

type limitsFixture struct {
	service   *Service
	catalog   *fakeCatalog
	requests  *fakeRequests
	directory *fakeDirectory
	auditor   *fakeSink
}

func newLimitsFixture() *limitsFixture {
	f := &limitsFixture{
		catalog:   &fakeCatalog{},
		requests:  &fakeRequests{},
		directory: &fakeDirectory{byPersona: map[uuid.UUID][]authority.Principal{}, byGroup: map[string][]authority.Principal{}},
		auditor:   &fakeSink{},
	}
	f.service = NewService(
		limits.NewResolver(f.catalog), f.requests, f.directory,
		matrix.NewAccessResolver(fakeUnitRepo{}), f.auditor, zap.NewNop())
	return f
}

func TestValidateDiscountApprovalRouting(t *testing.T) {
	ctx := context.Background()
	categoryID := uuid.New()
	managerPersona := uuid.New()

	// Seller holds a 10% limit; discounts up to 20% may pass with a manager's
	// approval, anything above is flatly rejected.
	setup := func(t *testing.T) (*limitsFixture, *limits.ScopedRule, *authority.User, *authority.User) {
		t.Helper()
		f := newLimitsFixture()
		rule, err := limits.NewDiscountLimit(uuid.New(), limits.Actor{GroupCode: groupCode("sales_reps")},
			limits.Scope{CategoryIDs: []uuid.UUID{categoryID}},
			decimal.NewFromInt(10), decimal.NewFromInt(20),
			[]uuid.UUID{managerPersona}, nil)
		require.NoError(t, err)
		f.catalog.rules = append(f.catalog.rules, rule)

		manager := &authority.User{ID: uuid.New(), Name: "manager", Personas: []uuid.UUID{managerPersona}}
		f.directory.byPersona[managerPersona] = []authority.Principal{manager}

		seller := &authority.User{ID: uuid.New(), Name: "seller", Groups: []string{"sales_reps"}}
		return f, rule, seller, manager
	}

	check := func(entityID uuid.UUID, percent int64) DiscountCheck {
		return DiscountCheck{
			EntityType:      "sales_order",
			EntityID:        entityID,
			CategoryID:      categoryID,
			DiscountPercent: decimal.NewFromInt(percent),
		}
	}

	t.Run("a discount within the limit passes", func(t *testing.T) {
		f, _, seller, _ := setup(t)
		assert.NoError(t, f.service.ValidateDiscount(ctx, seller, check(uuid.New(), 8)))
	})

	t.Run("a 15 percent discount over a 10 percent limit raises an approval request", func(t *testing.T) {
		f, rule, seller, _ := setup(t)
		orderID := uuid.New()

		err := f.service.ValidateDiscount(ctx, seller, check(orderID, 15))
		var required *governance.ApprovalRequiredError
		require.ErrorAs(t, err, &required)
		assert.Equal(t, "APP/00001", required.Reference)

		require.Len(t, f.requests.requests, 1)
		request := f.requests.requests[0]
		assert.Equal(t, approval.ViolationDiscount, request.Violation)
		assert.Equal(t, rule.ID, request.RuleID)
		assert.Equal(t, orderID, request.EntityID)
		assert.True(t, request.ActualValue.Equal(decimal.NewFromInt(15)))
		assert.True(t, request.AllowedLimit.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, seller.ID, request.RequestedBy)
		assert.NotContains(t, request.ApproverIDs, seller.ID)
	})

	t.Run("the discount passes once the request is approved", func(t *testing.T) {
		f, _, seller, manager := setup(t)
		orderID := uuid.New()

		require.Error(t, f.service.ValidateDiscount(ctx, seller, check(orderID, 15)))
		require.Len(t, f.requests.requests, 1)
		require.NoError(t, f.requests.requests[0].Approve(manager.ID, "within campaign budget"))

		assert.NoError(t, f.service.ValidateDiscount(ctx, seller, check(orderID, 15)))
	})

	t.Run("revalidation reuses the pending request", func(t *testing.T) {
		f, _, seller, _ := setup(t)
		orderID := uuid.New()

		first := f.service.ValidateDiscount(ctx, seller, check(orderID, 15))
		second := f.service.ValidateDiscount(ctx, seller, check(orderID, 15))

		var firstErr, secondErr *governance.ApprovalRequiredError
		require.ErrorAs(t, first, &firstErr)
		require.ErrorAs(t, second, &secondErr)
		assert.Equal(t, firstErr.Reference, secondErr.Reference)
		assert.Len(t, f.requests.requests, 1)
	})

	t.Run("a discount above the approval threshold is flatly rejected", func(t *testing.T) {
		f, _, seller, _ := setup(t)

		err := f.service.ValidateDiscount(ctx, seller, check(uuid.New(), 25))
		var exceeded *limits.LimitExceededError
		require.ErrorAs(t, err, &exceeded)
		assert.Empty(t, f.requests.requests)
	})

	t.Run("without a named entity the violation cannot route to approval", func(t *testing.T) {
		f, _, seller, _ := setup(t)

		err := f.service.ValidateDiscount(ctx, seller, check(uuid.Nil, 15))
		var exceeded *limits.LimitExceededError
		require.ErrorAs(t, err, &exceeded)
		assert.Empty(t, f.requests.requests)
	})

	t.Run("a rule without approvers rejects every violation", func(t *testing.T) {
		f := newLimitsFixture()
		rule, err := limits.NewDiscountLimit(uuid.New(), limits.Actor{GroupCode: groupCode("sales_reps")},
			limits.Scope{CategoryIDs: []uuid.UUID{categoryID}},
			decimal.NewFromInt(10), decimal.NewFromInt(20), nil, nil)
		require.NoError(t, err)
		f.catalog.rules = append(f.catalog.rules, rule)

		seller := &authority.User{ID: uuid.New(), Name: "seller", Groups: []string{"sales_reps"}}
		validateErr := f.service.ValidateDiscount(ctx, seller, check(uuid.New(), 15))
		var exceeded *limits.LimitExceededError
		require.ErrorAs(t, validateErr, &exceeded)
		assert.Empty(t, f.requests.requests)
	})

	t.Run("no matching rule means zero authority", func(t *testing.T) {
		f := newLimitsFixture()
		seller := &authority.User{ID: uuid.New(), Name: "seller", Groups: []string{"sales_reps"}}

		err := f.service.ValidateDiscount(ctx, seller, check(uuid.New(), 1))
		var exceeded *limits.LimitExceededError
		require.ErrorAs(t, err, &exceeded)
		assert.True(t, exceeded.Allowed.IsZero())
	})
}

func TestValidateMargin(t *testing.T) {
	ctx := context.Background()
	categoryID := uuid.New()

	seed := func(t *testing.T, f *limitsFixture, allowNegative bool) {
		t.Helper()
		rule, err := limits.NewMarginRule(uuid.New(), limits.Actor{GroupCode: groupCode("sales_reps")},
			limits.Scope{CategoryIDs: []uuid.UUID{categoryID}},
			decimal.NewFromInt(20), decimal.NewFromInt(15), decimal.NewFromInt(5),
			decimal.Zero, allowNegative)
		require.NoError(t, err)
		f.catalog.rules = append(f.catalog.rules, rule)
	}

	seller := &authority.User{ID: uuid.New(), Name: "seller", Groups: []string{"sales_reps"}}
	q := limits.Query{CategoryID: categoryID}

	t.Run("margin above the floor passes", func(t *testing.T) {
		f := newLimitsFixture()
		seed(t, f, false)
		assert.NoError(t, f.service.ValidateMargin(ctx, seller, q, decimal.NewFromInt(25)))
	})

	t.Run("margin below the floor is rejected", func(t *testing.T) {
		f := newLimitsFixture()
		seed(t, f, false)
		err := f.service.ValidateMargin(ctx, seller, q, decimal.NewFromInt(12))
		var exceeded *limits.LimitExceededError
		require.ErrorAs(t, err, &exceeded)
	})

	t.Run("negative margin is rejected unless the rule allows it", func(t *testing.T) {
		f := newLimitsFixture()
		seed(t, f, false)
		assert.Error(t, f.service.ValidateMargin(ctx, seller, q, decimal.NewFromInt(-3)))
	})

	t.Run("no margin rule means no constraint", func(t *testing.T) {
		f := newLimitsFixture()
		assert.NoError(t, f.service.ValidateMargin(ctx, seller, q, decimal.NewFromInt(-50)))
	})
}

func TestValidatePriceChange(t *testing.T) {
	ctx := context.Background()
	categoryID := uuid.New()
	seller := &authority.User{ID: uuid.New(), Name: "seller", Groups: []string{"pricing"}}
	q := limits.Query{CategoryID: categoryID}

	seed := func(t *testing.T, f *limitsFixture, maxIncrease, maxDecrease int64, override bool) {
		t.Helper()
		rule, err := limits.NewPriceAuthority(uuid.New(), limits.Actor{GroupCode: groupCode("pricing")},
			limits.Scope{CategoryIDs: []uuid.UUID{categoryID}},
			decimal.NewFromInt(5), decimal.NewFromInt(maxIncrease), decimal.NewFromInt(maxDecrease), override)
		require.NoError(t, err)
		f.catalog.rules = append(f.catalog.rules, rule)
	}

	t.Run("increases and decreases are bounded separately", func(t *testing.T) {
		f := newLimitsFixture()
		seed(t, f, 3, 8, false)

		assert.NoError(t, f.service.ValidatePriceChange(ctx, seller, q, decimal.NewFromInt(2)))
		assert.Error(t, f.service.ValidatePriceChange(ctx, seller, q, decimal.NewFromInt(4)))
		assert.NoError(t, f.service.ValidatePriceChange(ctx, seller, q, decimal.NewFromInt(-7)))
		assert.Error(t, f.service.ValidatePriceChange(ctx, seller, q, decimal.NewFromInt(-9)))
	})

	t.Run("override authority passes any deviation", func(t *testing.T) {
		f := newLimitsFixture()
		seed(t, f, 3, 8, true)
		assert.NoError(t, f.service.ValidatePriceChange(ctx, seller, q, decimal.NewFromInt(40)))
	})

	t.Run("no rule rejects any nonzero deviation", func(t *testing.T) {
		f := newLimitsFixture()
		assert.NoError(t, f.service.ValidatePriceChange(ctx, seller, q, decimal.Zero))
		assert.Error(t, f.service.ValidatePriceChange(ctx, seller, q, decimal.NewFromInt(1)))
	})
}

func groupCode(code string) *string {
	return &code
}
