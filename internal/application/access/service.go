package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/governance"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"go.uber.org/zap"
)

// GrantCache stores resolved access grants per principal. A miss returns
// (zero grant, false, nil).
type GrantCache interface {
	Get(ctx context.Context, principalID uuid.UUID) (matrix.AccessGrant, bool, error)
	Set(ctx context.Context, grant matrix.AccessGrant) error
	Invalidate(ctx context.Context, principalID uuid.UUID) error
}

// Service answers matrix access questions for the host application. Grants
// are derived, so resolution results are cached and invalidated whenever a
// principal's assignments change.
type Service struct {
	resolver *matrix.AccessResolver
	cache    GrantCache
	logger   *zap.Logger
}

// NewService wires the matrix access service
func NewService(resolver *matrix.AccessResolver, cache GrantCache, logger *zap.Logger) *Service {
	return &Service{resolver: resolver, cache: cache, logger: logger}
}

// GrantFor resolves the principal's access grant, from cache when possible.
// Cache failures degrade to direct resolution, never to an open grant.
func (s *Service) GrantFor(ctx context.Context, principal authority.Principal) (matrix.AccessGrant, error) {
	if s.cache != nil {
		grant, ok, err := s.cache.Get(ctx, principal.PrincipalID())
		if err != nil {
			s.logger.Warn("grant cache read failed", zap.Error(err))
		} else if ok {
			return grant, nil
		}
	}

	grant, err := s.resolver.ResolveAllowedBranches(ctx, principal)
	if err != nil {
		return matrix.AccessGrant{PrincipalID: principal.PrincipalID()}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, grant); err != nil {
			s.logger.Warn("grant cache write failed", zap.Error(err))
		}
	}
	return grant, nil
}

// CheckRecord validates that the principal may touch the given record. A
// record with no branch dimension is globally visible.
func (s *Service) CheckRecord(ctx context.Context, principal authority.Principal, record governance.MatrixScoped) error {
	grant, err := s.GrantFor(ctx, principal)
	if err != nil {
		return err
	}
	return grant.CheckBranch(record.BranchID())
}

// CheckBranch validates direct branch access
func (s *Service) CheckBranch(ctx context.Context, principal authority.Principal, branchID uuid.UUID) error {
	grant, err := s.GrantFor(ctx, principal)
	if err != nil {
		return err
	}
	return grant.CheckBranch(&branchID)
}

// InvalidateGrant drops the cached grant after an assignment change
func (s *Service) InvalidateGrant(ctx context.Context, principalID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, principalID)
}
