package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/approval"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRequestRepository implements approval.RequestRepository using GORM
type GormRequestRepository struct {
	db *gorm.DB
}

// NewGormRequestRepository creates a new GormRequestRepository
func NewGormRequestRepository(db *gorm.DB) *GormRequestRepository {
	return &GormRequestRepository{db: db}
}

// FindByID finds a request by ID
func (r *GormRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*approval.Request, error) {
	var model models.ApprovalRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReference finds a request by its human-readable reference
func (r *GormRequestRepository) FindByReference(ctx context.Context, reference string) (*approval.Request, error) {
	var model models.ApprovalRequestModel
	if err := r.db.WithContext(ctx).First(&model, "reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPending returns the single pending request for the triple, nil when none exists
func (r *GormRequestRepository) FindPending(ctx context.Context, entityType string, entityID, ruleID uuid.UUID) (*approval.Request, error) {
	return r.findByState(ctx, entityType, entityID, ruleID, approval.StatePending)
}

// FindApproved returns the most recent approved request for the triple, nil when none exists
func (r *GormRequestRepository) FindApproved(ctx context.Context, entityType string, entityID, ruleID uuid.UUID) (*approval.Request, error) {
	return r.findByState(ctx, entityType, entityID, ruleID, approval.StateApproved)
}

func (r *GormRequestRepository) findByState(ctx context.Context, entityType string, entityID, ruleID uuid.UUID, state approval.RequestState) (*approval.Request, error) {
	var model models.ApprovalRequestModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND rule_id = ? AND state = ?",
			entityType, entityID, ruleID, string(state)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingForEntity returns every pending request against the entity
func (r *GormRequestRepository) FindPendingForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*approval.Request, error) {
	var modelList []models.ApprovalRequestModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND state = ?",
			entityType, entityID, string(approval.StatePending)).
		Order("created_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toRequests(modelList), nil
}

// FindPendingForApprover returns pending requests the principal may resolve.
// Approver sets are stored as JSON arrays, so the match uses a LIKE on the
// serialized UUID; the eligible set is re-verified in the domain on resolve.
func (r *GormRequestRepository) FindPendingForApprover(ctx context.Context, principalID uuid.UUID) ([]*approval.Request, error) {
	var modelList []models.ApprovalRequestModel
	if err := r.db.WithContext(ctx).
		Where("state = ? AND approver_ids LIKE ?",
			string(approval.StatePending), "%"+principalID.String()+"%").
		Order("created_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toRequests(modelList), nil
}

// NextReference allocates the next "APP/00001"-style reference atomically
func (r *GormRequestRepository) NextReference(ctx context.Context) (string, error) {
	var next int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq models.ApprovalSequenceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&seq, "code = ?", "approval_request").Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = models.ApprovalSequenceModel{Code: "approval_request", NextVal: 1}
			if err := tx.Create(&seq).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		next = seq.NextVal
		seq.NextVal++
		return tx.Save(&seq).Error
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("APP/%05d", next), nil
}

// Save creates or updates a request. A unique violation on the pending index
// maps to shared.ErrAlreadyExists so callers can reuse the winner's request.
func (r *GormRequestRepository) Save(ctx context.Context, request *approval.Request) error {
	var model models.ApprovalRequestModel
	model.FromDomain(request)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func toRequests(modelList []models.ApprovalRequestModel) []*approval.Request {
	requests := make([]*approval.Request, 0, len(modelList))
	for i := range modelList {
		requests = append(requests, modelList[i].ToDomain())
	}
	return requests
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
