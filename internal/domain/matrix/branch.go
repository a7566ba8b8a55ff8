package matrix

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
)

// Branch is an operational location dimension
type Branch struct {
	shared.CompanyAggregateRoot
	Code   string
	Name   string
	Active bool
}

// NewBranch creates a new branch
func NewBranch(companyID uuid.UUID, code, name string) (*Branch, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_BRANCH_CODE", "Branch code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_BRANCH_NAME", "Branch name cannot be empty")
	}
	return &Branch{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Code:                 code,
		Name:                 name,
		Active:               true,
	}, nil
}

// Deactivate disables the branch
func (b *Branch) Deactivate() error {
	if !b.Active {
		return shared.NewDomainError("ALREADY_DISABLED", "Branch is already inactive")
	}
	b.Active = false
	b.Touch()
	b.IncrementVersion()
	return nil
}

// BranchRepository persists branches
type BranchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	FindAllActive(ctx context.Context) ([]Branch, error)
	Save(ctx context.Context, branch *Branch) error
}
