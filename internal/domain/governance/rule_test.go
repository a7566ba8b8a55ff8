package governance

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGovernanceRule(t *testing.T) {
	companyID := uuid.New()

	t.Run("creates an active enabled rule with default sequence", func(t *testing.T) {
		rule, err := NewGovernanceRule(companyID, "High value orders", "sales_order", TriggerOnCreate, ActionBlock)
		require.NoError(t, err)
		assert.True(t, rule.Active)
		assert.True(t, rule.Enabled)
		assert.True(t, rule.IsEnforced())
		assert.Equal(t, 10, rule.Sequence)
		assert.Equal(t, companyID, rule.CompanyID)
	})

	t.Run("rejects blank name and entity type", func(t *testing.T) {
		_, err := NewGovernanceRule(companyID, " ", "sales_order", TriggerOnCreate, ActionBlock)
		assert.Error(t, err)
		_, err = NewGovernanceRule(companyID, "r", "", TriggerOnCreate, ActionBlock)
		assert.Error(t, err)
	})

	t.Run("rejects unknown trigger and action", func(t *testing.T) {
		_, err := NewGovernanceRule(companyID, "r", "sales_order", TriggerType("on_touch"), ActionBlock)
		assert.Error(t, err)
		_, err = NewGovernanceRule(companyID, "r", "sales_order", TriggerOnCreate, ActionType("explode"))
		assert.Error(t, err)
	})
}

func TestRuleEnforcementFlags(t *testing.T) {
	rule, err := NewGovernanceRule(uuid.New(), "r", "sales_order", TriggerOnWrite, ActionWarn)
	require.NoError(t, err)

	t.Run("disable pauses without archiving", func(t *testing.T) {
		rule.Disable()
		assert.False(t, rule.IsEnforced())
		assert.True(t, rule.Active)

		rule.Enable()
		assert.True(t, rule.IsEnforced())
	})

	t.Run("archive deactivates regardless of enabled", func(t *testing.T) {
		rule.Archive()
		assert.False(t, rule.IsEnforced())
		assert.True(t, rule.Enabled)
	})
}

func TestRuleValidate(t *testing.T) {
	t.Run("require_approval needs an approver descriptor or workflow", func(t *testing.T) {
		rule, err := NewGovernanceRule(uuid.New(), "needs approval", "sales_order", TriggerOnCreate, ActionRequireApproval)
		require.NoError(t, err)

		err = rule.Validate()
		var cfg *ConfigurationError
		require.ErrorAs(t, err, &cfg)
		assert.Equal(t, "needs approval", cfg.RuleName)

		rule.ApproverGroupCodes = []string{"sales_managers"}
		assert.NoError(t, rule.Validate())
	})

	t.Run("workflow satisfies the approver requirement", func(t *testing.T) {
		rule, err := NewGovernanceRule(uuid.New(), "r", "sales_order", TriggerOnCreate, ActionRequireApproval)
		require.NoError(t, err)
		workflowID := uuid.New()
		rule.WorkflowID = &workflowID
		assert.NoError(t, rule.Validate())
	})

	t.Run("condition syntax error names the rule", func(t *testing.T) {
		rule, err := NewGovernanceRule(uuid.New(), "broken", "sales_order", TriggerOnCreate, ActionBlock)
		require.NoError(t, err)
		rule.Condition = ConditionGroup{
			Combinator: CombinatorAnd,
			Conditions: []Condition{{Attribute: "x", Operator: ConditionOperator("bogus"), Values: []string{"1"}}},
		}

		err = rule.Validate()
		var cfg *ConfigurationError
		require.ErrorAs(t, err, &cfg)
		assert.Equal(t, "broken", cfg.RuleName)
	})
}

func TestRuleMatches(t *testing.T) {
	attrs := map[string]any{"amount_total": 5000.0}

	t.Run("matching condition fires", func(t *testing.T) {
		rule, err := NewGovernanceRule(uuid.New(), "big orders", "sales_order", TriggerOnCreate, ActionBlock)
		require.NoError(t, err)
		rule.Condition = ConditionGroup{
			Combinator: CombinatorAnd,
			Conditions: []Condition{{Attribute: "amount_total", Operator: OperatorGreaterThan, Values: []string{"1000"}}},
		}

		matched, err := rule.Matches(attrs)
		require.NoError(t, err)
		assert.True(t, matched)
	})

	t.Run("syntactically broken rule never fires", func(t *testing.T) {
		rule, err := NewGovernanceRule(uuid.New(), "broken", "sales_order", TriggerOnCreate, ActionBlock)
		require.NoError(t, err)
		rule.Condition = ConditionGroup{
			Combinator: CombinatorAnd,
			Conditions: []Condition{{Attribute: "", Operator: OperatorEquals, Values: []string{"1"}}},
		}

		matched, err := rule.Matches(attrs)
		require.NoError(t, err)
		assert.False(t, matched)
	})

	t.Run("runtime evaluation error becomes a configuration error naming the rule", func(t *testing.T) {
		rule, err := NewGovernanceRule(uuid.New(), "references ghost field", "sales_order", TriggerOnCreate, ActionBlock)
		require.NoError(t, err)
		rule.Condition = ConditionGroup{
			Combinator: CombinatorAnd,
			Conditions: []Condition{{Attribute: "ghost", Operator: OperatorEquals, Values: []string{"1"}}},
		}

		_, err = rule.Matches(attrs)
		var cfg *ConfigurationError
		require.True(t, errors.As(err, &cfg))
		assert.Equal(t, "references ghost field", cfg.RuleName)
	})
}

func TestRuleMessageFor(t *testing.T) {
	rule, err := NewGovernanceRule(uuid.New(), "no discounts", "sales_order", TriggerOnWrite, ActionBlock)
	require.NoError(t, err)

	assert.Contains(t, rule.MessageFor(), "no discounts")

	rule.ErrorMessage = "Discounts above 20% are not allowed"
	assert.Equal(t, "Discounts above 20% are not allowed", rule.MessageFor())
}
