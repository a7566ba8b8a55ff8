package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies audit trail entries
type Kind string

const (
	KindGovernanceBypass  Kind = "governance_bypass"
	KindSoDEscalation     Kind = "sod_escalation"
	KindSoDDeadlock       Kind = "sod_deadlock"
	KindApprovalRequested Kind = "approval_requested"
	KindApprovalGranted   Kind = "approval_granted"
	KindApprovalRejected  Kind = "approval_rejected"
	KindApprovalCancelled Kind = "approval_cancelled"
	KindRuleSkipped       Kind = "rule_skipped"
)

// Event is one immutable audit trail entry. Bypasses and escalations are
// never silent: every one produces an event.
type Event struct {
	ID         uuid.UUID
	Kind       Kind
	EntityType string
	EntityID   uuid.UUID
	// ActorID is the principal whose action produced the entry.
	ActorID   uuid.UUID
	ActorName string
	Details   map[string]any
	At        time.Time
}

// NewEvent creates an audit event stamped with the current time
func NewEvent(kind Kind, entityType string, entityID, actorID uuid.UUID, actorName string, details map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		ActorName:  actorName,
		Details:    details,
		At:         time.Now(),
	}
}

// Sink receives audit events. Implementations must not lose bypass events;
// recording failures surface to the caller.
type Sink interface {
	Record(ctx context.Context, event Event) error
}
