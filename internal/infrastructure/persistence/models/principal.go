package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/authority"
)

// PrincipalModel is a projection of the host identity provider's users,
// synchronized into the engine so approver descriptors can be expanded
// without a network round trip per rule evaluation.
type PrincipalModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name                string     `gorm:"type:varchar(100);not null"`
	Administrator       bool       `gorm:"not null;default:false"`
	PersonaIDs          UUIDList   `gorm:"type:text;not null"`
	Groups              StringList `gorm:"column:group_codes;type:text;not null"`
	BranchIDs           UUIDList   `gorm:"type:text;not null"`
	BusinessUnitIDs     UUIDList   `gorm:"type:text;not null"`
	CrossBranchBULeader bool       `gorm:"not null;default:false"`
	Active              bool       `gorm:"not null;default:true;index"`
	CreatedAt           time.Time  `gorm:"not null"`
	UpdatedAt           time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PrincipalModel) TableName() string {
	return "principals"
}

// ToDomain converts the projection row to a domain principal
func (m *PrincipalModel) ToDomain() *authority.User {
	return &authority.User{
		ID:                  m.ID,
		Name:                m.Name,
		Administrator:       m.Administrator,
		Personas:            m.PersonaIDs,
		Groups:              m.Groups,
		BranchIDs:           m.BranchIDs,
		BusinessUnitIDs:     m.BusinessUnitIDs,
		CrossBranchBULeader: m.CrossBranchBULeader,
	}
}

// FromDomain populates the projection row from a domain principal
func (m *PrincipalModel) FromDomain(u *authority.User) {
	m.ID = u.ID
	m.Name = u.Name
	m.Administrator = u.Administrator
	m.PersonaIDs = u.Personas
	m.Groups = u.Groups
	m.BranchIDs = u.BranchIDs
	m.BusinessUnitIDs = u.BusinessUnitIDs
	m.CrossBranchBULeader = u.CrossBranchBULeader
}
