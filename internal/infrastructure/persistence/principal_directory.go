package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPrincipalDirectory resolves approver descriptors against the local
// principal projection table.
type GormPrincipalDirectory struct {
	db *gorm.DB
}

// NewGormPrincipalDirectory creates a directory over the principals table
func NewGormPrincipalDirectory(db *gorm.DB) *GormPrincipalDirectory {
	return &GormPrincipalDirectory{db: db}
}

// FindPrincipal loads one principal by ID
func (d *GormPrincipalDirectory) FindPrincipal(ctx context.Context, id uuid.UUID) (authority.Principal, error) {
	var model models.PrincipalModel
	if err := d.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}
	return model.ToDomain(), nil
}

// PrincipalsWithPersona lists active principals holding the given persona.
// The persona list is stored as JSON, so the LIKE match is a coarse filter
// re-verified in memory.
func (d *GormPrincipalDirectory) PrincipalsWithPersona(ctx context.Context, personaID uuid.UUID) ([]authority.Principal, error) {
	var rows []models.PrincipalModel
	pattern := "%" + personaID.String() + "%"
	if err := d.db.WithContext(ctx).
		Where("active = ? AND persona_ids LIKE ?", true, pattern).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list principals by persona: %w", err)
	}

	out := make([]authority.Principal, 0, len(rows))
	for i := range rows {
		user := rows[i].ToDomain()
		for _, id := range user.Personas {
			if id == personaID {
				out = append(out, user)
				break
			}
		}
	}
	return out, nil
}

// PrincipalsInGroup lists active principals belonging to the given group code
func (d *GormPrincipalDirectory) PrincipalsInGroup(ctx context.Context, group string) ([]authority.Principal, error) {
	var rows []models.PrincipalModel
	pattern := "%" + group + "%"
	if err := d.db.WithContext(ctx).
		Where("active = ? AND group_codes LIKE ?", true, pattern).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list principals by group: %w", err)
	}

	out := make([]authority.Principal, 0, len(rows))
	for i := range rows {
		user := rows[i].ToDomain()
		if authority.InGroup(user, group) {
			out = append(out, user)
		}
	}
	return out, nil
}

// UpsertPrincipal writes a projection row for the given principal
func (d *GormPrincipalDirectory) UpsertPrincipal(ctx context.Context, user *authority.User) error {
	var model models.PrincipalModel
	model.FromDomain(user)
	model.Active = true
	if err := d.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("failed to upsert principal: %w", err)
	}
	return nil
}
