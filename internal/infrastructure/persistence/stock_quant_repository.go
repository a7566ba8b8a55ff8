package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/matrixscope"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockQuantRepository loads stock buckets for business-unit partitioned
// availability queries
type GormStockQuantRepository struct {
	db *gorm.DB
}

// NewGormStockQuantRepository creates a new GormStockQuantRepository
func NewGormStockQuantRepository(db *gorm.DB) *GormStockQuantRepository {
	return &GormStockQuantRepository{db: db}
}

// FindByProduct returns every quant for a product
func (r *GormStockQuantRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]matrix.StockQuant, error) {
	var modelList []models.StockQuantModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toQuants(modelList), nil
}

// FindByProductScoped returns the product's quants visible under the grant
func (r *GormStockQuantRepository) FindByProductScoped(ctx context.Context, productID uuid.UUID, grant matrix.AccessGrant) ([]matrix.StockQuant, error) {
	var modelList []models.StockQuantModel
	query := matrixscope.Apply(r.db.WithContext(ctx), grant)
	if err := query.Where("product_id = ?", productID).Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toQuants(modelList), nil
}

func toQuants(modelList []models.StockQuantModel) []matrix.StockQuant {
	quants := make([]matrix.StockQuant, 0, len(modelList))
	for i := range modelList {
		quants = append(quants, modelList[i].ToDomain())
	}
	return quants
}
