package limits

import (
	"context"

	"github.com/google/uuid"
)

// ScopedRuleRepository is the persistence port for the scoped rule catalog
type ScopedRuleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ScopedRule, error)
	FindActiveByKind(ctx context.Context, kind RuleKind) ([]*ScopedRule, error)
	Save(ctx context.Context, rule *ScopedRule) error
	Delete(ctx context.Context, id uuid.UUID) error
}
