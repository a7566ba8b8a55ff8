package authority

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
)

// Principal is the acting identity on whose behalf an operation executes.
// It is supplied by the surrounding identity provider; the engine only reads.
type Principal interface {
	PrincipalID() uuid.UUID
	PrincipalName() string
	IsAdministrator() bool
	// PersonaIDs returns the principal's personas, primary first.
	PersonaIDs() []uuid.UUID
	GroupCodes() []string
	GrantedBranchIDs() []uuid.UUID
	GrantedBusinessUnitIDs() []uuid.UUID
	IsCrossBranchBULeader() bool
}

// User is the engine's concrete Principal. Interface adapters (JWT middleware,
// tests) build one of these from whatever identity source they have.
type User struct {
	ID                  uuid.UUID
	Name                string
	Administrator       bool
	Personas            []uuid.UUID
	Groups              []string
	BranchIDs           []uuid.UUID
	BusinessUnitIDs     []uuid.UUID
	CrossBranchBULeader bool
}

func (u *User) PrincipalID() uuid.UUID              { return u.ID }
func (u *User) PrincipalName() string               { return u.Name }
func (u *User) IsAdministrator() bool               { return u.Administrator }
func (u *User) PersonaIDs() []uuid.UUID             { return u.Personas }
func (u *User) GroupCodes() []string                { return u.Groups }
func (u *User) GrantedBranchIDs() []uuid.UUID       { return u.BranchIDs }
func (u *User) GrantedBusinessUnitIDs() []uuid.UUID { return u.BusinessUnitIDs }
func (u *User) IsCrossBranchBULeader() bool         { return u.CrossBranchBULeader }

// PrimaryPersonaID returns the principal's primary persona, or uuid.Nil
func PrimaryPersonaID(p Principal) uuid.UUID {
	ids := p.PersonaIDs()
	if len(ids) == 0 {
		return uuid.Nil
	}
	return ids[0]
}

// InGroup reports whether the principal belongs to the given group code
func InGroup(p Principal, group string) bool {
	for _, g := range p.GroupCodes() {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// Context carries the acting principal into every enforcement call. Bypass is
// never ambient: it exists only when the context was built with an explicit
// reason, which the engine writes to the audit trail.
type Context struct {
	principal    Principal
	bypassReason string
}

// NewContext creates an authorization context for normal enforcement
func NewContext(principal Principal) Context {
	return Context{principal: principal}
}

// NewBypassContext creates an authorization context that skips enforcement.
// The reason is mandatory and ends up in the audit trail.
func NewBypassContext(principal Principal, reason string) (Context, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Context{}, shared.NewDomainError("BYPASS_REASON_REQUIRED", "A bypass reason must be provided")
	}
	return Context{principal: principal, bypassReason: reason}, nil
}

// Principal returns the acting principal
func (c Context) Principal() Principal {
	return c.principal
}

// BypassRequested reports whether this context explicitly requested bypass
func (c Context) BypassRequested() bool {
	return c.bypassReason != ""
}

// BypassReason returns the declared bypass reason, empty when none
func (c Context) BypassReason() string {
	return c.bypassReason
}

// Directory resolves approver descriptors to concrete principals.
// Implemented by the surrounding identity provider.
type Directory interface {
	FindPrincipal(ctx context.Context, id uuid.UUID) (Principal, error)
	PrincipalsWithPersona(ctx context.Context, personaID uuid.UUID) ([]Principal, error)
	PrincipalsInGroup(ctx context.Context, group string) ([]Principal, error)
}

// PersonaRepository loads the persona catalog used to build the authority hierarchy
type PersonaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Persona, error)
	FindAllActive(ctx context.Context) ([]Persona, error)
	Save(ctx context.Context, persona *Persona) error
}
