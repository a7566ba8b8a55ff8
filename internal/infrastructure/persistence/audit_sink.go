package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/audit"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormAuditSink implements audit.Sink against the audit_events table. Every
// event is also mirrored to the structured log.
type GormAuditSink struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormAuditSink creates a new GormAuditSink
func NewGormAuditSink(db *gorm.DB, logger *zap.Logger) *GormAuditSink {
	return &GormAuditSink{db: db, logger: logger.Named("audit")}
}

// Record persists one audit event
func (s *GormAuditSink) Record(ctx context.Context, event audit.Event) error {
	var model models.AuditEventModel
	model.FromDomain(event)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	s.logger.Info("audit event",
		zap.String("kind", string(event.Kind)),
		zap.String("entity_type", event.EntityType),
		zap.String("entity_id", event.EntityID.String()),
		zap.String("actor", event.ActorName),
	)
	return nil
}

// FindForEntity returns the audit trail for one entity, newest first
func (s *GormAuditSink) FindForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]audit.Event, error) {
	var modelList []models.AuditEventModel
	if err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("at DESC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	events := make([]audit.Event, 0, len(modelList))
	for i := range modelList {
		events = append(events, modelList[i].ToDomain())
	}
	return events, nil
}
