package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPersonaRepository implements authority.PersonaRepository using GORM
type GormPersonaRepository struct {
	db *gorm.DB
}

// NewGormPersonaRepository creates a new GormPersonaRepository
func NewGormPersonaRepository(db *gorm.DB) *GormPersonaRepository {
	return &GormPersonaRepository{db: db}
}

// FindByID finds a persona by ID
func (r *GormPersonaRepository) FindByID(ctx context.Context, id uuid.UUID) (*authority.Persona, error) {
	var model models.PersonaModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllActive returns every active persona
func (r *GormPersonaRepository) FindAllActive(ctx context.Context) ([]authority.Persona, error) {
	var modelList []models.PersonaModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("code ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	personas := make([]authority.Persona, 0, len(modelList))
	for i := range modelList {
		personas = append(personas, *modelList[i].ToDomain())
	}
	return personas, nil
}

// Save creates or updates a persona
func (r *GormPersonaRepository) Save(ctx context.Context, persona *authority.Persona) error {
	var model models.PersonaModel
	model.FromDomain(persona)
	return r.db.WithContext(ctx).Save(&model).Error
}
