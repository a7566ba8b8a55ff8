package approval

import (
	"context"

	"github.com/google/uuid"
)

// RequestRepository is the persistence port for approval requests
type RequestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Request, error)
	FindByReference(ctx context.Context, reference string) (*Request, error)
	// FindPending returns the single pending request for the triple, nil when
	// none exists. At most one can exist at a time.
	FindPending(ctx context.Context, entityType string, entityID, ruleID uuid.UUID) (*Request, error)
	// FindApproved returns the most recent approved request for the triple,
	// nil when none exists.
	FindApproved(ctx context.Context, entityType string, entityID, ruleID uuid.UUID) (*Request, error)
	// FindPendingForEntity returns every pending request against the entity.
	FindPendingForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*Request, error)
	FindPendingForApprover(ctx context.Context, principalID uuid.UUID) ([]*Request, error)
	// NextReference allocates the next "APP/00001"-style sequence number.
	NextReference(ctx context.Context) (string, error)
	Save(ctx context.Context, request *Request) error
}

// WorkflowRepository is the persistence port for approval workflows
type WorkflowRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Workflow, error)
	FindAllActive(ctx context.Context) ([]*Workflow, error)
	Save(ctx context.Context, workflow *Workflow) error
}
