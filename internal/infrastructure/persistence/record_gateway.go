package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormRecordGateway clears the approval lock on governed records. Entity types
// are mapped to tables at wiring time; the host application registers one
// mapping per governed table it owns.
type GormRecordGateway struct {
	db     *gorm.DB
	tables map[string]string
	logger *zap.Logger
}

// NewGormRecordGateway creates a gateway with no registered tables
func NewGormRecordGateway(db *gorm.DB, logger *zap.Logger) *GormRecordGateway {
	return &GormRecordGateway{
		db:     db,
		tables: make(map[string]string),
		logger: logger,
	}
}

// RegisterTable maps an entity type to the table holding its records
func (g *GormRecordGateway) RegisterTable(entityType, tableName string) {
	g.tables[entityType] = tableName
}

// Unlock clears the approval lock flag on the record. Unregistered entity
// types are logged and skipped: the host owns their persistence and unlocks
// them through its own channel.
func (g *GormRecordGateway) Unlock(ctx context.Context, entityType string, entityID uuid.UUID) error {
	table, ok := g.tables[entityType]
	if !ok {
		g.logger.Warn("no table registered for entity type, skipping unlock",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()))
		return nil
	}
	if err := g.db.WithContext(ctx).
		Table(table).
		Where("id = ?", entityID).
		Update("approval_locked", false).Error; err != nil {
		return fmt.Errorf("failed to unlock %s record: %w", entityType, err)
	}
	return nil
}
