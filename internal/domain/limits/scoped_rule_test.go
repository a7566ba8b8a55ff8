package limits

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personaActor(id uuid.UUID) Actor {
	return Actor{PersonaID: &id}
}

func groupActor(code string) Actor {
	return Actor{GroupCode: &code}
}

func TestActorValidate(t *testing.T) {
	t.Run("persona actor is valid", func(t *testing.T) {
		assert.NoError(t, personaActor(uuid.New()).Validate())
	})

	t.Run("group actor is valid", func(t *testing.T) {
		assert.NoError(t, groupActor("sales_managers").Validate())
	})

	t.Run("neither is invalid", func(t *testing.T) {
		assert.Error(t, Actor{}.Validate())
	})

	t.Run("both is invalid", func(t *testing.T) {
		id := uuid.New()
		code := "sales_managers"
		actor := Actor{PersonaID: &id, GroupCode: &code}
		assert.Error(t, actor.Validate())
	})
}

func TestScopeMatches(t *testing.T) {
	categoryID := uuid.New()
	unitID := uuid.New()
	branchID := uuid.New()

	t.Run("empty scope matches everywhere", func(t *testing.T) {
		assert.True(t, Scope{}.Matches(categoryID, nil, nil))
		assert.True(t, Scope{}.Matches(categoryID, &unitID, &branchID))
	})

	t.Run("restricted axis requires membership", func(t *testing.T) {
		scope := Scope{CategoryIDs: []uuid.UUID{categoryID}}
		assert.True(t, scope.Matches(categoryID, nil, nil))
		assert.False(t, scope.Matches(uuid.New(), nil, nil))
	})

	t.Run("nil query axis only matches unrestricted rules", func(t *testing.T) {
		scope := Scope{BranchIDs: []uuid.UUID{branchID}}
		assert.False(t, scope.Matches(categoryID, nil, nil))
		assert.True(t, scope.Matches(categoryID, nil, &branchID))
	})

	t.Run("all restricted axes must match", func(t *testing.T) {
		scope := Scope{
			CategoryIDs:     []uuid.UUID{categoryID},
			BusinessUnitIDs: []uuid.UUID{unitID},
			BranchIDs:       []uuid.UUID{branchID},
		}
		assert.True(t, scope.Matches(categoryID, &unitID, &branchID))
		otherUnit := uuid.New()
		assert.False(t, scope.Matches(categoryID, &otherUnit, &branchID))
	})
}

func TestNewScopedRule(t *testing.T) {
	companyID := uuid.New()

	t.Run("creates an active rule", func(t *testing.T) {
		rule, err := NewScopedRule(companyID, KindDiscountLimit, groupActor("sales"), Scope{}, decimal.NewFromInt(15))
		require.NoError(t, err)
		assert.True(t, rule.Active)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := NewScopedRule(companyID, RuleKind("tax_rule"), groupActor("sales"), Scope{}, decimal.NewFromInt(15))
		assert.Error(t, err)
	})

	t.Run("rejects percentages outside 0..100", func(t *testing.T) {
		_, err := NewScopedRule(companyID, KindDiscountLimit, groupActor("sales"), Scope{}, decimal.NewFromInt(-1))
		assert.Error(t, err)
		_, err = NewScopedRule(companyID, KindDiscountLimit, groupActor("sales"), Scope{}, decimal.NewFromInt(101))
		assert.Error(t, err)
	})
}

func TestNewDiscountLimit(t *testing.T) {
	companyID := uuid.New()
	approverPersona := uuid.New()

	t.Run("carries the approval threshold and approvers", func(t *testing.T) {
		rule, err := NewDiscountLimit(companyID, groupActor("sales"), Scope{},
			decimal.NewFromInt(10), decimal.NewFromInt(15),
			[]uuid.UUID{approverPersona}, []string{"sales_directors"})
		require.NoError(t, err)
		assert.True(t, rule.DiscountApprovalThreshold().Equal(decimal.NewFromInt(15)))
		assert.True(t, rule.HasApprovers())
	})

	t.Run("zero threshold falls back to the limit itself", func(t *testing.T) {
		rule, err := NewDiscountLimit(companyID, groupActor("sales"), Scope{},
			decimal.NewFromInt(10), decimal.Zero, nil, nil)
		require.NoError(t, err)
		assert.True(t, rule.DiscountApprovalThreshold().Equal(decimal.NewFromInt(10)))
		assert.False(t, rule.HasApprovers())
	})

	t.Run("threshold below the limit is rejected", func(t *testing.T) {
		_, err := NewDiscountLimit(companyID, groupActor("sales"), Scope{},
			decimal.NewFromInt(10), decimal.NewFromInt(5), nil, nil)
		assert.Error(t, err)
	})
}

func TestNewMarginRule(t *testing.T) {
	companyID := uuid.New()

	t.Run("grades margins against the warning and critical bounds", func(t *testing.T) {
		rule, err := NewMarginRule(companyID, groupActor("sales"), Scope{},
			decimal.NewFromInt(20), decimal.NewFromInt(15), decimal.NewFromInt(5),
			decimal.NewFromInt(2), false)
		require.NoError(t, err)
		assert.Equal(t, "critical", rule.MarginSeverity(decimal.NewFromInt(3)))
		assert.Equal(t, "warning", rule.MarginSeverity(decimal.NewFromInt(10)))
		assert.Equal(t, "violation", rule.MarginSeverity(decimal.NewFromInt(18)))
	})

	t.Run("rejects grading bounds outside 0..100", func(t *testing.T) {
		_, err := NewMarginRule(companyID, groupActor("sales"), Scope{},
			decimal.NewFromInt(20), decimal.NewFromInt(101), decimal.Zero, decimal.Zero, false)
		assert.Error(t, err)
	})
}

func TestNewPriceAuthority(t *testing.T) {
	companyID := uuid.New()

	t.Run("bounds increases and decreases separately", func(t *testing.T) {
		rule, err := NewPriceAuthority(companyID, groupActor("pricing"), Scope{},
			decimal.NewFromInt(5), decimal.NewFromInt(3), decimal.NewFromInt(8), false)
		require.NoError(t, err)
		assert.True(t, rule.IncreaseBound().Equal(decimal.NewFromInt(3)))
		assert.True(t, rule.DecreaseBound().Equal(decimal.NewFromInt(8)))
	})

	t.Run("zero directional bounds fall back to the symmetric variance", func(t *testing.T) {
		rule, err := NewPriceAuthority(companyID, groupActor("pricing"), Scope{},
			decimal.NewFromInt(5), decimal.Zero, decimal.Zero, true)
		require.NoError(t, err)
		assert.True(t, rule.IncreaseBound().Equal(decimal.NewFromInt(5)))
		assert.True(t, rule.DecreaseBound().Equal(decimal.NewFromInt(5)))
		assert.True(t, rule.CanOverrideWithoutApproval)
	})
}

func TestScopedRuleAppliesTo(t *testing.T) {
	personaID := uuid.New()

	t.Run("persona rule matches only that persona", func(t *testing.T) {
		rule, err := NewScopedRule(uuid.New(), KindDiscountLimit, personaActor(personaID), Scope{}, decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.True(t, rule.AppliesTo([]uuid.UUID{personaID}, nil))
		assert.False(t, rule.AppliesTo([]uuid.UUID{uuid.New()}, nil))
	})

	t.Run("persona rule never matches via groups", func(t *testing.T) {
		rule, err := NewScopedRule(uuid.New(), KindDiscountLimit, personaActor(personaID), Scope{}, decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.False(t, rule.AppliesTo(nil, []string{"sales_managers"}))
	})

	t.Run("group rule matches by exact code", func(t *testing.T) {
		rule, err := NewScopedRule(uuid.New(), KindDiscountLimit, groupActor("sales_managers"), Scope{}, decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.True(t, rule.AppliesTo(nil, []string{"sales_managers"}))
		assert.False(t, rule.AppliesTo(nil, []string{"sales"}))
	})
}
