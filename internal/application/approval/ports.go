package approval

import (
	"context"

	"github.com/google/uuid"
)

// RecordGateway unlocks governed records once their approvals resolve. The
// engine does not own entity persistence; the host application implements
// this against its own tables.
type RecordGateway interface {
	Unlock(ctx context.Context, entityType string, entityID uuid.UUID) error
}
