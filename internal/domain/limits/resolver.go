package limits

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Query is one authority lookup: which percentage does this principal hold
// for this product category at this point in the matrix
type Query struct {
	PersonaIDs     []uuid.UUID
	GroupCodes     []string
	CategoryID     uuid.UUID
	BusinessUnitID *uuid.UUID
	BranchID       *uuid.UUID
}

// Resolver answers authority queries against the scoped rule catalog using
// most-specific-match: a rule restricted on category, business unit and
// branch beats one restricted on category and business unit, which beats
// category and branch, which beats category alone. Among equally specific
// rules the highest grant wins. No matching rule resolves to zero: by
// default nobody holds any authority.
type Resolver struct {
	rules ScopedRuleRepository
}

// NewResolver creates a resolver over the given catalog
func NewResolver(rules ScopedRuleRepository) *Resolver {
	return &Resolver{rules: rules}
}

// MaxDiscountPercent resolves the discount authority for the query
func (r *Resolver) MaxDiscountPercent(ctx context.Context, q Query) (decimal.Decimal, error) {
	return r.resolveBound(ctx, KindDiscountLimit, q)
}

// MinMarginPercent resolves the margin floor for the query
func (r *Resolver) MinMarginPercent(ctx context.Context, q Query) (decimal.Decimal, error) {
	return r.resolveBound(ctx, KindMarginRule, q)
}

// MaxPriceDeviationPercent resolves the price-change authority for the query
func (r *Resolver) MaxPriceDeviationPercent(ctx context.Context, q Query) (decimal.Decimal, error) {
	return r.resolveBound(ctx, KindPriceAuthority, q)
}

// ResolveDiscountRule returns the winning discount limit for the query, nil
// when no rule matches. Callers needing the approval threshold and approver
// descriptors use this instead of the bare bound.
func (r *Resolver) ResolveDiscountRule(ctx context.Context, q Query) (*ScopedRule, error) {
	return r.resolve(ctx, KindDiscountLimit, q)
}

// ResolveMarginRule returns the winning margin rule for the query, nil when
// no rule matches
func (r *Resolver) ResolveMarginRule(ctx context.Context, q Query) (*ScopedRule, error) {
	return r.resolve(ctx, KindMarginRule, q)
}

// ResolvePriceRule returns the winning price authority for the query, nil
// when no rule matches
func (r *Resolver) ResolvePriceRule(ctx context.Context, q Query) (*ScopedRule, error) {
	return r.resolve(ctx, KindPriceAuthority, q)
}

func (r *Resolver) resolveBound(ctx context.Context, kind RuleKind, q Query) (decimal.Decimal, error) {
	rule, err := r.resolve(ctx, kind, q)
	if err != nil || rule == nil {
		return decimal.Zero, err
	}
	return rule.Percent, nil
}

func (r *Resolver) resolve(ctx context.Context, kind RuleKind, q Query) (*ScopedRule, error) {
	candidates, err := r.rules.FindActiveByKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	var best *ScopedRule
	bestSpecificity := -1
	for _, rule := range candidates {
		if !rule.AppliesTo(q.PersonaIDs, q.GroupCodes) {
			continue
		}
		if !rule.Scope.Matches(q.CategoryID, q.BusinessUnitID, q.BranchID) {
			continue
		}
		spec := rule.Scope.specificity()
		if spec > bestSpecificity || (spec == bestSpecificity && rule.Percent.GreaterThan(best.Percent)) {
			best = rule
			bestSpecificity = spec
		}
	}
	return best, nil
}
