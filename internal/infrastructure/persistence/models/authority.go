package models

import (
	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/authority"
)

// PersonaModel is the persistence model for personas
type PersonaModel struct {
	CompanyAggregateModel
	Code     string     `gorm:"type:varchar(50);not null;index"`
	Name     string     `gorm:"type:varchar(100);not null"`
	ParentID *uuid.UUID `gorm:"type:uuid;index"`
	Active   bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (PersonaModel) TableName() string {
	return "personas"
}

// ToDomain converts the persistence model to a domain persona
func (m *PersonaModel) ToDomain() *authority.Persona {
	persona := &authority.Persona{
		Code:     m.Code,
		Name:     m.Name,
		ParentID: m.ParentID,
		Active:   m.Active,
	}
	m.PopulateCompanyAggregateRoot(&persona.CompanyAggregateRoot)
	return persona
}

// FromDomain populates the persistence model from a domain persona
func (m *PersonaModel) FromDomain(persona *authority.Persona) {
	m.FromDomainCompanyAggregateRoot(persona.CompanyAggregateRoot)
	m.Code = persona.Code
	m.Name = persona.Name
	m.ParentID = persona.ParentID
	m.Active = persona.Active
}
