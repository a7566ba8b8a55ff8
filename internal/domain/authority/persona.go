package authority

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
)

// Persona represents a named organizational capability bundle assigned to
// principals. A persona may point at a parent persona, which acts as the
// escalation target when segregation of duties blocks a self-approval.
type Persona struct {
	shared.CompanyAggregateRoot
	Code     string
	Name     string
	ParentID *uuid.UUID
	Active   bool
}

// NewPersona creates a new persona
func NewPersona(companyID uuid.UUID, code, name string) (*Persona, error) {
	if err := validatePersonaCode(code); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PERSONA_NAME", "Persona name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_PERSONA_NAME", "Persona name cannot exceed 100 characters")
	}

	return &Persona{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Code:                 strings.ToUpper(strings.TrimSpace(code)),
		Name:                 name,
		Active:               true,
	}, nil
}

// SetParent points the persona at its escalation target
func (p *Persona) SetParent(parentID uuid.UUID) error {
	if parentID == p.ID {
		return shared.NewDomainError("INVALID_PARENT", "Persona cannot be its own parent")
	}
	p.ParentID = &parentID
	p.Touch()
	p.IncrementVersion()
	return nil
}

// ClearParent removes the escalation target, making this a top-level persona
func (p *Persona) ClearParent() {
	p.ParentID = nil
	p.Touch()
	p.IncrementVersion()
}

// IsTopLevel returns true when the persona has no escalation target
func (p *Persona) IsTopLevel() bool {
	return p.ParentID == nil
}

// Deactivate disables the persona
func (p *Persona) Deactivate() error {
	if !p.Active {
		return shared.NewDomainError("ALREADY_DISABLED", "Persona is already inactive")
	}
	p.Active = false
	p.Touch()
	p.IncrementVersion()
	return nil
}

func validatePersonaCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError("INVALID_PERSONA_CODE", "Persona code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_PERSONA_CODE", "Persona code cannot exceed 50 characters")
	}
	codeRegex := regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	if !codeRegex.MatchString(code) {
		return shared.NewDomainError("INVALID_PERSONA_CODE", "Persona code must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}
