package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/application/access"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Availability is a product's stock position as seen by one business unit
type Availability struct {
	ProductID      uuid.UUID
	BusinessUnitID uuid.UUID
	Available      decimal.Decimal
	Reserved       decimal.Decimal
}

// Service answers business-unit partitioned stock questions. Quants are
// loaded through the caller's access grant, so a principal never sees stock
// in branches outside their matrix scope.
type Service struct {
	quants matrix.StockQuantRepository
	access *access.Service
	logger *zap.Logger
}

// NewService wires the stock availability service
func NewService(quants matrix.StockQuantRepository, accessService *access.Service, logger *zap.Logger) *Service {
	return &Service{quants: quants, access: accessService, logger: logger}
}

// AvailabilityFor reports available and reserved quantities for the product
// from the given business unit's perspective. Available stock includes global
// (untagged) quants; reservations are strictly partitioned per unit.
func (s *Service) AvailabilityFor(ctx context.Context, principal authority.Principal, productID, businessUnitID uuid.UUID) (Availability, error) {
	grant, err := s.access.GrantFor(ctx, principal)
	if err != nil {
		return Availability{}, err
	}
	quants, err := s.quants.FindByProductScoped(ctx, productID, grant)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		ProductID:      productID,
		BusinessUnitID: businessUnitID,
		Available:      matrix.AvailableQuantity(quants, businessUnitID),
		Reserved:       matrix.ReservedQuantity(quants, businessUnitID),
	}, nil
}
