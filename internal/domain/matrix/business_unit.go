package matrix

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
)

// BusinessUnit is a profit-center dimension. A business unit may operate in
// multiple branches; that operating set is what cross-branch BU leadership
// expands access over.
type BusinessUnit struct {
	shared.CompanyAggregateRoot
	Code      string
	Name      string
	Active    bool
	BranchIDs []uuid.UUID
}

// NewBusinessUnit creates a new business unit
func NewBusinessUnit(companyID uuid.UUID, code, name string) (*BusinessUnit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_BU_CODE", "Business unit code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_BU_NAME", "Business unit name cannot be empty")
	}
	return &BusinessUnit{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Code:                 code,
		Name:                 name,
		Active:               true,
	}, nil
}

// AddBranch registers a branch the unit operates in
func (u *BusinessUnit) AddBranch(branchID uuid.UUID) error {
	if branchID == uuid.Nil {
		return shared.NewDomainError("INVALID_BRANCH", "Branch ID cannot be empty")
	}
	for _, id := range u.BranchIDs {
		if id == branchID {
			return shared.NewDomainError("ALREADY_EXISTS", "Business unit already operates in this branch")
		}
	}
	u.BranchIDs = append(u.BranchIDs, branchID)
	u.Touch()
	u.IncrementVersion()
	return nil
}

// RemoveBranch removes a branch from the unit's operating set
func (u *BusinessUnit) RemoveBranch(branchID uuid.UUID) error {
	for i, id := range u.BranchIDs {
		if id == branchID {
			u.BranchIDs = append(u.BranchIDs[:i], u.BranchIDs[i+1:]...)
			u.Touch()
			u.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("NOT_FOUND", "Business unit does not operate in this branch")
}

// OperatesIn reports whether the unit operates in the given branch
func (u *BusinessUnit) OperatesIn(branchID uuid.UUID) bool {
	for _, id := range u.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}

// BusinessUnitRepository persists business units
type BusinessUnitRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BusinessUnit, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]BusinessUnit, error)
	FindAllActive(ctx context.Context) ([]BusinessUnit, error)
	Save(ctx context.Context, unit *BusinessUnit) error
}
