package matrix

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUnitRepository struct {
	units map[uuid.UUID]*BusinessUnit
}

func (f *fakeUnitRepository) FindByID(_ context.Context, id uuid.UUID) (*BusinessUnit, error) {
	if unit, ok := f.units[id]; ok {
		return unit, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeUnitRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]BusinessUnit, error) {
	var out []BusinessUnit
	for _, id := range ids {
		if unit, ok := f.units[id]; ok {
			out = append(out, *unit)
		}
	}
	return out, nil
}

func (f *fakeUnitRepository) FindAllActive(_ context.Context) ([]BusinessUnit, error) {
	var out []BusinessUnit
	for _, unit := range f.units {
		out = append(out, *unit)
	}
	return out, nil
}

func (f *fakeUnitRepository) Save(_ context.Context, unit *BusinessUnit) error {
	f.units[unit.ID] = unit
	return nil
}

func TestAccessGrantChecks(t *testing.T) {
	branchID := uuid.New()
	grant := AccessGrant{PrincipalID: uuid.New(), BranchIDs: []uuid.UUID{branchID}}

	t.Run("granted branch passes", func(t *testing.T) {
		assert.NoError(t, grant.CheckBranch(&branchID))
	})

	t.Run("ungranted branch is denied", func(t *testing.T) {
		other := uuid.New()
		err := grant.CheckBranch(&other)
		var denied *AccessDeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, other, denied.BranchID)
	})

	t.Run("records without a branch are globally visible", func(t *testing.T) {
		assert.NoError(t, grant.CheckBranch(nil))
		nilID := uuid.Nil
		assert.NoError(t, grant.CheckBranch(&nilID))
	})

	t.Run("unrestricted grant allows everything", func(t *testing.T) {
		admin := AccessGrant{Unrestricted: true}
		anyBranch := uuid.New()
		assert.NoError(t, admin.CheckBranch(&anyBranch))
		assert.True(t, admin.AllowsBusinessUnit(uuid.New()))
		assert.False(t, admin.IsEmpty())
	})

	t.Run("grant with no branches is empty, never open", func(t *testing.T) {
		empty := AccessGrant{PrincipalID: uuid.New()}
		assert.True(t, empty.IsEmpty())
		someBranch := uuid.New()
		assert.Error(t, empty.CheckBranch(&someBranch))
	})
}

func TestResolveAllowedBranches(t *testing.T) {
	ctx := context.Background()
	branchA := uuid.New()
	branchB := uuid.New()
	branchC := uuid.New()

	unit, err := NewBusinessUnit(uuid.New(), "RETAIL", "Retail")
	require.NoError(t, err)
	require.NoError(t, unit.AddBranch(branchA))
	require.NoError(t, unit.AddBranch(branchC))

	repo := &fakeUnitRepository{units: map[uuid.UUID]*BusinessUnit{unit.ID: unit}}
	resolver := NewAccessResolver(repo)

	t.Run("administrator resolves to the unrestricted grant", func(t *testing.T) {
		grant, err := resolver.ResolveAllowedBranches(ctx, &authority.User{
			ID:            uuid.New(),
			Administrator: true,
		})
		require.NoError(t, err)
		assert.True(t, grant.Unrestricted)
	})

	t.Run("plain principal sees only granted branches", func(t *testing.T) {
		grant, err := resolver.ResolveAllowedBranches(ctx, &authority.User{
			ID:        uuid.New(),
			BranchIDs: []uuid.UUID{branchA, branchB},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{branchA, branchB}, grant.BranchIDs)
	})

	t.Run("cross-branch BU leader gains the unit's operating branches", func(t *testing.T) {
		grant, err := resolver.ResolveAllowedBranches(ctx, &authority.User{
			ID:                  uuid.New(),
			BranchIDs:           []uuid.UUID{branchB},
			BusinessUnitIDs:     []uuid.UUID{unit.ID},
			CrossBranchBULeader: true,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{branchA, branchB, branchC}, grant.BranchIDs)
	})

	t.Run("leadership without units expands nothing", func(t *testing.T) {
		grant, err := resolver.ResolveAllowedBranches(ctx, &authority.User{
			ID:                  uuid.New(),
			BranchIDs:           []uuid.UUID{branchB},
			CrossBranchBULeader: true,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{branchB}, grant.BranchIDs)
	})

	t.Run("branch added to the unit later shows up on re-resolution", func(t *testing.T) {
		newBranch := uuid.New()
		require.NoError(t, unit.AddBranch(newBranch))

		grant, err := resolver.ResolveAllowedBranches(ctx, &authority.User{
			ID:                  uuid.New(),
			BusinessUnitIDs:     []uuid.UUID{unit.ID},
			CrossBranchBULeader: true,
		})
		require.NoError(t, err)
		assert.Contains(t, grant.BranchIDs, newBranch)
	})
}
