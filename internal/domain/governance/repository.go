package governance

import (
	"context"

	"github.com/google/uuid"
)

// RuleRepository is the persistence port for governance rules
type RuleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*GovernanceRule, error)
	// FindEnforced returns the active and enabled rules for an entity type and
	// trigger, ordered by Sequence ascending.
	FindEnforced(ctx context.Context, entityType string, trigger TriggerType) ([]*GovernanceRule, error)
	FindByEntityType(ctx context.Context, entityType string) ([]*GovernanceRule, error)
	Save(ctx context.Context, rule *GovernanceRule) error
	Delete(ctx context.Context, id uuid.UUID) error
}
