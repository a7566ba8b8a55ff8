package persistence

import (
	"fmt"
	"time"

	"github.com/opsmatrix/governance/internal/infrastructure/config"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// NewDatabase creates a new database connection with the given configuration
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, logger.Default.LogMode(logger.Silent))
}

// NewDatabaseWithLogger creates a new database connection with a custom GORM logger
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Migrate creates or updates the schema. The partial unique index enforces
// the single-pending-request invariant at the storage level, backing up the
// in-transaction re-check.
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(
		&models.GovernanceRuleModel{},
		&models.ApprovalRequestModel{},
		&models.ApprovalWorkflowModel{},
		&models.WorkflowStepModel{},
		&models.ApprovalSequenceModel{},
		&models.PersonaModel{},
		&models.PrincipalModel{},
		&models.BranchModel{},
		&models.BusinessUnitModel{},
		&models.StockQuantModel{},
		&models.ScopedRuleModel{},
		&models.AuditEventModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if d.DB.Dialector.Name() == "postgres" {
		if err := d.DB.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_pending_request
			 ON approval_requests (entity_type, entity_id, rule_id)
			 WHERE state = 'pending'`,
		).Error; err != nil {
			return fmt.Errorf("failed to create pending request index: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Transaction executes a function within a database transaction
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}
