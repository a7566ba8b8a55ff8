package governance

import (
	"github.com/google/uuid"
)

// Governed is the capability interface a record type implements to opt into
// rule enforcement and approval locking. The engine accepts any value
// satisfying this interface; there is no runtime type inspection.
type Governed interface {
	GetID() uuid.UUID
	// EntityType is the stable identifier rules are keyed by, e.g. "sales_order".
	EntityType() string
	// CreatedByPrincipal is the record creator, used by the four-eyes check.
	CreatedByPrincipal() uuid.UUID
	IsApprovalLocked() bool
	SetApprovalLocked(locked bool)
	// Attributes exposes the restricted variable set rule conditions may
	// reference. Only what the entity returns here is visible to conditions.
	Attributes() map[string]any
}

// MatrixScoped is the capability interface for records carrying matrix
// dimensions. Nil means the dimension is unassigned (globally visible).
type MatrixScoped interface {
	BranchID() *uuid.UUID
	BusinessUnitID() *uuid.UUID
}

// LockField is the one attribute a write may touch without voiding pending
// approvals on a locked record.
const LockField = "approval_locked"
