package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/approval"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWorkflowRepository implements approval.WorkflowRepository using GORM
type GormWorkflowRepository struct {
	db *gorm.DB
}

// NewGormWorkflowRepository creates a new GormWorkflowRepository
func NewGormWorkflowRepository(db *gorm.DB) *GormWorkflowRepository {
	return &GormWorkflowRepository{db: db}
}

// FindByID finds a workflow with its steps
func (r *GormWorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*approval.Workflow, error) {
	var model models.ApprovalWorkflowModel
	if err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllActive returns every active workflow with steps
func (r *GormWorkflowRepository) FindAllActive(ctx context.Context) ([]*approval.Workflow, error) {
	var modelList []models.ApprovalWorkflowModel
	if err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("active = ?", true).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	workflows := make([]*approval.Workflow, 0, len(modelList))
	for i := range modelList {
		workflows = append(workflows, modelList[i].ToDomain())
	}
	return workflows, nil
}

// Save creates or updates a workflow and replaces its steps
func (r *GormWorkflowRepository) Save(ctx context.Context, workflow *approval.Workflow) error {
	var model models.ApprovalWorkflowModel
	model.FromDomain(workflow)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", workflow.ID).
			Delete(&models.WorkflowStepModel{}).Error; err != nil {
			return err
		}
		return tx.Save(&model).Error
	})
}
