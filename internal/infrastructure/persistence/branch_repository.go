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

// GormBranchRepository implements matrix.BranchRepository using GORM
type GormBranchRepository struct {
	db *gorm.DB
}

// NewGormBranchRepository creates a new GormBranchRepository
func NewGormBranchRepository(db *gorm.DB) *GormBranchRepository {
	return &GormBranchRepository{db: db}
}

// FindByID finds a branch by ID
func (r *GormBranchRepository) FindByID(ctx context.Context, id uuid.UUID) (*matrix.Branch, error) {
	var model models.BranchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllActive returns every active branch
func (r *GormBranchRepository) FindAllActive(ctx context.Context) ([]matrix.Branch, error) {
	var modelList []models.BranchModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("code ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	branches := make([]matrix.Branch, 0, len(modelList))
	for i := range modelList {
		branches = append(branches, *modelList[i].ToDomain())
	}
	return branches, nil
}

// Save creates or updates a branch
func (r *GormBranchRepository) Save(ctx context.Context, branch *matrix.Branch) error {
	var model models.BranchModel
	model.FromDomain(branch)
	return r.db.WithContext(ctx).Save(&model).Error
}
