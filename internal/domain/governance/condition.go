package governance

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOperator is a comparison operator in the rule condition grammar
type ConditionOperator string

const (
	OperatorEquals       ConditionOperator = "eq"
	OperatorNotEquals    ConditionOperator = "ne"
	OperatorGreaterThan  ConditionOperator = "gt"
	OperatorGreaterEqual ConditionOperator = "gte"
	OperatorLessThan     ConditionOperator = "lt"
	OperatorLessEqual    ConditionOperator = "lte"
	OperatorIn           ConditionOperator = "in"
	OperatorNotIn        ConditionOperator = "not_in"
	OperatorContains     ConditionOperator = "contains"
)

// IsValid checks if the operator is part of the grammar
func (o ConditionOperator) IsValid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorGreaterEqual,
		OperatorLessThan, OperatorLessEqual, OperatorIn, OperatorNotIn, OperatorContains:
		return true
	}
	return false
}

// Combinator joins conditions within a group
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
	CombinatorNot Combinator = "not"
)

// IsValid checks if the combinator is part of the grammar
func (c Combinator) IsValid() bool {
	return c == CombinatorAnd || c == CombinatorOr || c == CombinatorNot
}

// Condition is a single attribute comparison. Attributes resolve against the
// governed entity's restricted attribute map; there is no expression eval.
type Condition struct {
	Attribute string            `json:"attribute"`
	Operator  ConditionOperator `json:"operator"`
	Values    []string          `json:"values"`
}

// Validate is the configuration-time syntax check for a condition
func (c Condition) Validate() error {
	if strings.TrimSpace(c.Attribute) == "" {
		return NewConfigurationError("condition attribute cannot be empty")
	}
	if !c.Operator.IsValid() {
		return NewConfigurationError(fmt.Sprintf("unknown condition operator %q", c.Operator))
	}
	if len(c.Values) == 0 {
		return NewConfigurationError(fmt.Sprintf("condition on %q has no comparison values", c.Attribute))
	}
	return nil
}

// Evaluate applies the condition to the given attribute set. An attribute
// missing from the set is a runtime evaluation error, not a non-match:
// enforcement surfaces it as a configuration problem naming the rule.
func (c Condition) Evaluate(attrs map[string]any) (bool, error) {
	value, ok := attrs[c.Attribute]
	if !ok {
		return false, fmt.Errorf("attribute %q is not exposed by the entity", c.Attribute)
	}

	switch c.Operator {
	case OperatorEquals:
		return equalsAny(value, c.Values), nil
	case OperatorNotEquals:
		return !equalsAny(value, c.Values), nil
	case OperatorIn:
		return containedIn(value, c.Values), nil
	case OperatorNotIn:
		return !containedIn(value, c.Values), nil
	case OperatorContains:
		return stringContains(value, c.Values), nil
	case OperatorGreaterThan, OperatorGreaterEqual, OperatorLessThan, OperatorLessEqual:
		return compareOrdered(c.Operator, value, c.Values[0])
	default:
		return false, fmt.Errorf("unknown operator %q", c.Operator)
	}
}

// ConditionGroup is a boolean combination of conditions and nested groups.
// An empty group is always true (rule fires unconditionally).
type ConditionGroup struct {
	Combinator Combinator       `json:"combinator"`
	Conditions []Condition      `json:"conditions,omitempty"`
	Groups     []ConditionGroup `json:"groups,omitempty"`
}

// IsEmpty reports whether the group constrains nothing
func (g ConditionGroup) IsEmpty() bool {
	return len(g.Conditions) == 0 && len(g.Groups) == 0
}

// Validate is the configuration-time syntax check for the whole tree
func (g ConditionGroup) Validate() error {
	if g.IsEmpty() {
		return nil
	}
	if !g.Combinator.IsValid() {
		return NewConfigurationError(fmt.Sprintf("unknown combinator %q", g.Combinator))
	}
	if g.Combinator == CombinatorNot && len(g.Conditions)+len(g.Groups) != 1 {
		return NewConfigurationError("a NOT group must contain exactly one condition or group")
	}
	for _, c := range g.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, sub := range g.Groups {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate applies the group to the given attribute set
func (g ConditionGroup) Evaluate(attrs map[string]any) (bool, error) {
	if g.IsEmpty() {
		return true, nil
	}

	results := make([]bool, 0, len(g.Conditions)+len(g.Groups))
	for _, c := range g.Conditions {
		matched, err := c.Evaluate(attrs)
		if err != nil {
			return false, err
		}
		results = append(results, matched)
	}
	for _, sub := range g.Groups {
		matched, err := sub.Evaluate(attrs)
		if err != nil {
			return false, err
		}
		results = append(results, matched)
	}

	switch g.Combinator {
	case CombinatorAnd:
		for _, r := range results {
			if !r {
				return false, nil
			}
		}
		return true, nil
	case CombinatorOr:
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil
	case CombinatorNot:
		return !results[0], nil
	default:
		return false, fmt.Errorf("unknown combinator %q", g.Combinator)
	}
}

func equalsAny(value any, candidates []string) bool {
	if value == nil {
		return false
	}
	str := toString(value)
	for _, candidate := range candidates {
		if strings.EqualFold(str, candidate) {
			return true
		}
	}
	return false
}

func containedIn(value any, candidates []string) bool {
	if value == nil {
		return false
	}
	str := strings.ToLower(toString(value))
	for _, candidate := range candidates {
		if strings.ToLower(candidate) == str {
			return true
		}
	}
	return false
}

func stringContains(value any, candidates []string) bool {
	if value == nil {
		return false
	}
	str := strings.ToLower(toString(value))
	for _, candidate := range candidates {
		if strings.Contains(str, strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}

// compareOrdered compares numerically when both sides parse as numbers,
// falling back to lexicographic comparison.
func compareOrdered(op ConditionOperator, value any, candidate string) (bool, error) {
	if value == nil {
		return false, nil
	}

	if left, ok := toFloat64(value); ok {
		if right, err := strconv.ParseFloat(candidate, 64); err == nil {
			switch op {
			case OperatorGreaterThan:
				return left > right, nil
			case OperatorGreaterEqual:
				return left >= right, nil
			case OperatorLessThan:
				return left < right, nil
			case OperatorLessEqual:
				return left <= right, nil
			}
		}
	}

	left := toString(value)
	switch op {
	case OperatorGreaterThan:
		return left > candidate, nil
	case OperatorGreaterEqual:
		return left >= candidate, nil
	case OperatorLessThan:
		return left < candidate, nil
	case OperatorLessEqual:
		return left <= candidate, nil
	}
	return false, fmt.Errorf("unknown ordered operator %q", op)
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}
