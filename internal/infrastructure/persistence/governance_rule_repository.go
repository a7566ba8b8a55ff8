package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/governance"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRuleRepository implements governance.RuleRepository using GORM
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// FindByID finds a rule by ID
func (r *GormRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*governance.GovernanceRule, error) {
	var model models.GovernanceRuleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindEnforced returns the active and enabled rules for an entity type and
// trigger, ordered by sequence
func (r *GormRuleRepository) FindEnforced(ctx context.Context, entityType string, trigger governance.TriggerType) ([]*governance.GovernanceRule, error) {
	var modelList []models.GovernanceRuleModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND trigger_type = ? AND active = ? AND enabled = ?",
			entityType, string(trigger), true, true).
		Order("sequence ASC, created_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toRules(modelList)
}

// FindByEntityType returns every rule for an entity type regardless of state
func (r *GormRuleRepository) FindByEntityType(ctx context.Context, entityType string) ([]*governance.GovernanceRule, error) {
	var modelList []models.GovernanceRuleModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Order("sequence ASC, created_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toRules(modelList)
}

// Save creates or updates a rule
func (r *GormRuleRepository) Save(ctx context.Context, rule *governance.GovernanceRule) error {
	var model models.GovernanceRuleModel
	if err := model.FromDomain(rule); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// Delete removes a rule by ID
func (r *GormRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.GovernanceRuleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toRules(modelList []models.GovernanceRuleModel) ([]*governance.GovernanceRule, error) {
	rules := make([]*governance.GovernanceRule, 0, len(modelList))
	for i := range modelList {
		rule, err := modelList[i].ToDomain()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
