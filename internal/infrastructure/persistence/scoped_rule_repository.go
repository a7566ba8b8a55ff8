package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/limits"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormScopedRuleRepository implements limits.ScopedRuleRepository using GORM
type GormScopedRuleRepository struct {
	db *gorm.DB
}

// NewGormScopedRuleRepository creates a new GormScopedRuleRepository
func NewGormScopedRuleRepository(db *gorm.DB) *GormScopedRuleRepository {
	return &GormScopedRuleRepository{db: db}
}

// FindByID finds a catalog entry by ID
func (r *GormScopedRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*limits.ScopedRule, error) {
	var model models.ScopedRuleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByKind returns every active catalog entry of the given kind
func (r *GormScopedRuleRepository) FindActiveByKind(ctx context.Context, kind limits.RuleKind) ([]*limits.ScopedRule, error) {
	var modelList []models.ScopedRuleModel
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND active = ?", string(kind), true).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	rules := make([]*limits.ScopedRule, 0, len(modelList))
	for i := range modelList {
		rules = append(rules, modelList[i].ToDomain())
	}
	return rules, nil
}

// Save creates or updates a catalog entry
func (r *GormScopedRuleRepository) Save(ctx context.Context, rule *limits.ScopedRule) error {
	var model models.ScopedRuleModel
	model.FromDomain(rule)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Delete removes a catalog entry by ID
func (r *GormScopedRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ScopedRuleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
