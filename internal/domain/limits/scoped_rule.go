package limits

import (
	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Actor identifies who a scoped rule applies to: exactly one of a persona or
// a named group. Persona rules never match principals acting through groups
// and vice versa.
type Actor struct {
	PersonaID *uuid.UUID
	GroupCode *string
}

// Validate enforces the persona-XOR-group invariant
func (a Actor) Validate() error {
	hasPersona := a.PersonaID != nil && *a.PersonaID != uuid.Nil
	hasGroup := a.GroupCode != nil && *a.GroupCode != ""
	if hasPersona == hasGroup {
		return shared.NewDomainError("INVALID_ACTOR",
			"A scoped rule must target exactly one of a persona or a group")
	}
	return nil
}

// IsPersona reports whether the actor targets a persona
func (a Actor) IsPersona() bool {
	return a.PersonaID != nil && *a.PersonaID != uuid.Nil
}

// Scope restricts where a rule applies. Empty sets mean "everywhere" on that
// axis; a populated set requires membership.
type Scope struct {
	CategoryIDs     []uuid.UUID
	BusinessUnitIDs []uuid.UUID
	BranchIDs       []uuid.UUID
}

func idSetContains(set []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range set {
		if candidate == id {
			return true
		}
	}
	return false
}

// Matches reports whether the scope admits the given query point. A nil axis
// on the query only matches rules with that axis unrestricted.
func (s Scope) Matches(categoryID uuid.UUID, businessUnitID, branchID *uuid.UUID) bool {
	if len(s.CategoryIDs) > 0 && !idSetContains(s.CategoryIDs, categoryID) {
		return false
	}
	if len(s.BusinessUnitIDs) > 0 {
		if businessUnitID == nil || !idSetContains(s.BusinessUnitIDs, *businessUnitID) {
			return false
		}
	}
	if len(s.BranchIDs) > 0 {
		if branchID == nil || !idSetContains(s.BranchIDs, *branchID) {
			return false
		}
	}
	return true
}

// specificity ranks a scope for most-specific-match resolution. Each
// restricted axis adds a level; business unit outranks branch so that
// category+unit beats category+branch.
func (s Scope) specificity() int {
	score := 0
	if len(s.CategoryIDs) > 0 {
		score += 1
	}
	if len(s.BranchIDs) > 0 {
		score += 2
	}
	if len(s.BusinessUnitIDs) > 0 {
		score += 4
	}
	return score
}

// RuleKind distinguishes the three scoped authority catalogs
type RuleKind string

const (
	KindDiscountLimit  RuleKind = "discount_limit"
	KindMarginRule     RuleKind = "margin_rule"
	KindPriceAuthority RuleKind = "price_authority"
)

// ScopedRule is one catalog entry granting a percentage authority to an
// actor within a scope. Percent is the primary bound of every kind: maximum
// discount, minimum margin, or maximum price deviation. The remaining fields
// apply per kind and stay zero-valued on the others.
type ScopedRule struct {
	shared.CompanyAggregateRoot
	Kind    RuleKind
	Actor   Actor
	Scope   Scope
	Percent decimal.Decimal

	// Discount limit: discounts above this threshold route into the approval
	// path instead of a flat rejection. Zero falls back to Percent.
	ApprovalRequiredAbovePercent decimal.Decimal
	ApproverPersonaIDs           []uuid.UUID
	ApproverGroupCodes           []string

	// Margin rule grading and escalation bounds.
	WarningPercent           decimal.Decimal
	CriticalPercent          decimal.Decimal
	AutoEscalateBelowPercent decimal.Decimal
	AllowNegativeMargin      bool

	// Price authority: asymmetric bounds, zero falls back to Percent.
	MaxIncreasePercent         decimal.Decimal
	MaxDecreasePercent         decimal.Decimal
	CanOverrideWithoutApproval bool

	Active bool
}

func percentInRange(percent decimal.Decimal) bool {
	return !percent.IsNegative() && !percent.GreaterThan(decimal.NewFromInt(100))
}

// NewScopedRule creates a validated catalog entry carrying only the primary
// bound. The per-kind constructors below fill in the kind-specific fields.
func NewScopedRule(companyID uuid.UUID, kind RuleKind, actor Actor, scope Scope, percent decimal.Decimal) (*ScopedRule, error) {
	switch kind {
	case KindDiscountLimit, KindMarginRule, KindPriceAuthority:
	default:
		return nil, shared.NewDomainError("INVALID_SCOPED_RULE", "Unknown rule kind: "+string(kind))
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !percentInRange(percent) {
		return nil, shared.NewDomainError("INVALID_SCOPED_RULE",
			"Authority percentage must be between 0 and 100")
	}

	return &ScopedRule{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Kind:                 kind,
		Actor:                actor,
		Scope:                scope,
		Percent:              percent,
		Active:               true,
	}, nil
}

// NewDiscountLimit creates a discount limit. A discount above
// approvalRequiredAbove (or above maxPercent when the threshold is zero) is
// routed to the named approvers instead of being flatly rejected; with no
// approvers configured every violation is a flat rejection.
func NewDiscountLimit(companyID uuid.UUID, actor Actor, scope Scope, maxPercent, approvalRequiredAbove decimal.Decimal, approverPersonaIDs []uuid.UUID, approverGroupCodes []string) (*ScopedRule, error) {
	rule, err := NewScopedRule(companyID, KindDiscountLimit, actor, scope, maxPercent)
	if err != nil {
		return nil, err
	}
	if !percentInRange(approvalRequiredAbove) {
		return nil, shared.NewDomainError("INVALID_SCOPED_RULE",
			"Approval threshold must be between 0 and 100")
	}
	if !approvalRequiredAbove.IsZero() && approvalRequiredAbove.LessThan(maxPercent) {
		return nil, shared.NewDomainError("INVALID_SCOPED_RULE",
			"Approval threshold cannot be below the maximum discount")
	}
	rule.ApprovalRequiredAbovePercent = approvalRequiredAbove
	rule.ApproverPersonaIDs = approverPersonaIDs
	rule.ApproverGroupCodes = approverGroupCodes
	return rule, nil
}

// NewMarginRule creates a margin floor with grading bounds. warningPercent
// and criticalPercent grade how far below the floor a margin sits;
// autoEscalateBelow marks the point where a violation escalates on its own.
func NewMarginRule(companyID uuid.UUID, actor Actor, scope Scope, floorPercent, warningPercent, criticalPercent, autoEscalateBelow decimal.Decimal, allowNegative bool) (*ScopedRule, error) {
	rule, err := NewScopedRule(companyID, KindMarginRule, actor, scope, floorPercent)
	if err != nil {
		return nil, err
	}
	for _, p := range []decimal.Decimal{warningPercent, criticalPercent, autoEscalateBelow} {
		if !percentInRange(p) {
			return nil, shared.NewDomainError("INVALID_SCOPED_RULE",
				"Margin grading percentages must be between 0 and 100")
		}
	}
	rule.WarningPercent = warningPercent
	rule.CriticalPercent = criticalPercent
	rule.AutoEscalateBelowPercent = autoEscalateBelow
	rule.AllowNegativeMargin = allowNegative
	return rule, nil
}

// NewPriceAuthority creates a price-deviation authority. maxIncrease and
// maxDecrease bound the two directions separately; zero falls back to the
// symmetric maxVariance bound.
func NewPriceAuthority(companyID uuid.UUID, actor Actor, scope Scope, maxVariance, maxIncrease, maxDecrease decimal.Decimal, canOverride bool) (*ScopedRule, error) {
	rule, err := NewScopedRule(companyID, KindPriceAuthority, actor, scope, maxVariance)
	if err != nil {
		return nil, err
	}
	if !percentInRange(maxIncrease) || !percentInRange(maxDecrease) {
		return nil, shared.NewDomainError("INVALID_SCOPED_RULE",
			"Price variance bounds must be between 0 and 100")
	}
	rule.MaxIncreasePercent = maxIncrease
	rule.MaxDecreasePercent = maxDecrease
	rule.CanOverrideWithoutApproval = canOverride
	return rule, nil
}

// MarginSeverity grades a margin against the rule's warning and critical
// bounds: a margin under CriticalPercent is critical, under WarningPercent a
// warning, under the floor a plain violation.
func (r *ScopedRule) MarginSeverity(margin decimal.Decimal) string {
	if !r.CriticalPercent.IsZero() && margin.LessThan(r.CriticalPercent) {
		return "critical"
	}
	if !r.WarningPercent.IsZero() && margin.LessThan(r.WarningPercent) {
		return "warning"
	}
	return "violation"
}

// DiscountApprovalThreshold returns the bound above which a discount routes
// to approval
func (r *ScopedRule) DiscountApprovalThreshold() decimal.Decimal {
	if r.ApprovalRequiredAbovePercent.IsZero() {
		return r.Percent
	}
	return r.ApprovalRequiredAbovePercent
}

// HasApprovers reports whether the rule names anyone to approve violations
func (r *ScopedRule) HasApprovers() bool {
	return len(r.ApproverPersonaIDs) > 0 || len(r.ApproverGroupCodes) > 0
}

// IncreaseBound returns the authority for price increases
func (r *ScopedRule) IncreaseBound() decimal.Decimal {
	if r.MaxIncreasePercent.IsZero() {
		return r.Percent
	}
	return r.MaxIncreasePercent
}

// DecreaseBound returns the authority for price decreases
func (r *ScopedRule) DecreaseBound() decimal.Decimal {
	if r.MaxDecreasePercent.IsZero() {
		return r.Percent
	}
	return r.MaxDecreasePercent
}

// AppliesTo reports whether the rule's actor matches the querying principal,
// given the principal's personas and group memberships
func (r *ScopedRule) AppliesTo(personaIDs []uuid.UUID, groupCodes []string) bool {
	if r.Actor.IsPersona() {
		return idSetContains(personaIDs, *r.Actor.PersonaID)
	}
	for _, code := range groupCodes {
		if code == *r.Actor.GroupCode {
			return true
		}
	}
	return false
}
