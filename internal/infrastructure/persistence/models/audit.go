package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/audit"
)

// AuditEventModel is the persistence model for the immutable audit trail
type AuditEventModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Kind       string    `gorm:"type:varchar(40);not null;index"`
	EntityType string    `gorm:"type:varchar(100);not null;index:idx_audit_entity"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entity"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorName  string    `gorm:"type:varchar(200)"`
	Details    JSONMap
	At         time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditEventModel) TableName() string {
	return "audit_events"
}

// FromDomain populates the persistence model from a domain event
func (m *AuditEventModel) FromDomain(event audit.Event) {
	m.ID = event.ID
	m.Kind = string(event.Kind)
	m.EntityType = event.EntityType
	m.EntityID = event.EntityID
	m.ActorID = event.ActorID
	m.ActorName = event.ActorName
	m.Details = event.Details
	m.At = event.At
}

// ToDomain converts the persistence model to a domain event
func (m *AuditEventModel) ToDomain() audit.Event {
	return audit.Event{
		ID:         m.ID,
		Kind:       audit.Kind(m.Kind),
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		ActorID:    m.ActorID,
		ActorName:  m.ActorName,
		Details:    m.Details,
		At:         m.At,
	}
}
