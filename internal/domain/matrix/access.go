package matrix

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/authority"
)

// AccessDeniedError signals that the principal's matrix scope excludes the
// record's dimension.
type AccessDeniedError struct {
	BranchID    uuid.UUID
	PrincipalID uuid.UUID
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: principal %s has no access to branch %s", e.PrincipalID, e.BranchID)
}

// AccessGrant is the computed branch × business-unit authorization scope of a
// principal. It is derived, never stored: recompute (or cache) per principal.
type AccessGrant struct {
	PrincipalID     uuid.UUID
	Unrestricted    bool
	BranchIDs       []uuid.UUID
	BusinessUnitIDs []uuid.UUID
}

// AllowsBranch reports whether the grant covers the given branch
func (g AccessGrant) AllowsBranch(branchID uuid.UUID) bool {
	if g.Unrestricted {
		return true
	}
	for _, id := range g.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}

// AllowsBusinessUnit reports whether the grant covers the given business unit
func (g AccessGrant) AllowsBusinessUnit(unitID uuid.UUID) bool {
	if g.Unrestricted {
		return true
	}
	for _, id := range g.BusinessUnitIDs {
		if id == unitID {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the grant covers no branches at all. Query builders
// must translate this to a filter matching zero records, never to "no filter".
func (g AccessGrant) IsEmpty() bool {
	return !g.Unrestricted && len(g.BranchIDs) == 0
}

// CheckBranch validates record-level access. Records with no branch assigned
// are globally visible for backward compatibility.
func (g AccessGrant) CheckBranch(branchID *uuid.UUID) error {
	if branchID == nil || *branchID == uuid.Nil {
		return nil
	}
	if g.AllowsBranch(*branchID) {
		return nil
	}
	return &AccessDeniedError{BranchID: *branchID, PrincipalID: g.PrincipalID}
}

// AccessResolver computes AccessGrants from principal grants plus cross-branch
// business-unit leadership expansion.
type AccessResolver struct {
	units BusinessUnitRepository
}

// NewAccessResolver creates a new access resolver
func NewAccessResolver(units BusinessUnitRepository) *AccessResolver {
	return &AccessResolver{units: units}
}

// ResolveAllowedBranches computes the branch set visible to the principal.
// Administrators receive the unrestricted grant. A cross-branch BU leader is
// additionally granted every branch where one of their business units
// operates, even outside their directly granted branches.
func (r *AccessResolver) ResolveAllowedBranches(ctx context.Context, principal authority.Principal) (AccessGrant, error) {
	grant := AccessGrant{
		PrincipalID:     principal.PrincipalID(),
		BusinessUnitIDs: principal.GrantedBusinessUnitIDs(),
	}
	if principal.IsAdministrator() {
		grant.Unrestricted = true
		return grant, nil
	}

	seen := make(map[uuid.UUID]struct{})
	for _, id := range principal.GrantedBranchIDs() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			grant.BranchIDs = append(grant.BranchIDs, id)
		}
	}

	if principal.IsCrossBranchBULeader() && len(grant.BusinessUnitIDs) > 0 {
		units, err := r.units.FindByIDs(ctx, grant.BusinessUnitIDs)
		if err != nil {
			return AccessGrant{PrincipalID: principal.PrincipalID()}, err
		}
		for _, unit := range units {
			for _, branchID := range unit.BranchIDs {
				if _, ok := seen[branchID]; !ok {
					seen[branchID] = struct{}{}
					grant.BranchIDs = append(grant.BranchIDs, branchID)
				}
			}
		}
	}

	return grant, nil
}
