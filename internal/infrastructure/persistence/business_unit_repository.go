package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBusinessUnitRepository implements matrix.BusinessUnitRepository using GORM
type GormBusinessUnitRepository struct {
	db *gorm.DB
}

// NewGormBusinessUnitRepository creates a new GormBusinessUnitRepository
func NewGormBusinessUnitRepository(db *gorm.DB) *GormBusinessUnitRepository {
	return &GormBusinessUnitRepository{db: db}
}

// FindByID finds a business unit by ID
func (r *GormBusinessUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*matrix.BusinessUnit, error) {
	var model models.BusinessUnitModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the business units with the given IDs
func (r *GormBusinessUnitRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]matrix.BusinessUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var modelList []models.BusinessUnitModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toBusinessUnits(modelList), nil
}

// FindAllActive returns every active business unit
func (r *GormBusinessUnitRepository) FindAllActive(ctx context.Context) ([]matrix.BusinessUnit, error) {
	var modelList []models.BusinessUnitModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("code ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toBusinessUnits(modelList), nil
}

// Save creates or updates a business unit
func (r *GormBusinessUnitRepository) Save(ctx context.Context, unit *matrix.BusinessUnit) error {
	var model models.BusinessUnitModel
	model.FromDomain(unit)
	return r.db.WithContext(ctx).Save(&model).Error
}

func toBusinessUnits(modelList []models.BusinessUnitModel) []matrix.BusinessUnit {
	units := make([]matrix.BusinessUnit, 0, len(modelList))
	for i := range modelList {
		units = append(units, *modelList[i].ToDomain())
	}
	return units
}
