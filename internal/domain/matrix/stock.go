package matrix

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockQuant is a quantity bucket partitioned by branch and business unit.
// A quant with no business unit is "global stock": any unit may draw from it.
type StockQuant struct {
	ProductID        uuid.UUID
	BranchID         *uuid.UUID
	BusinessUnitID   *uuid.UUID
	Quantity         decimal.Decimal
	ReservedQuantity decimal.Decimal
}

// IsGlobal reports whether the quant carries no business-unit tag
func (q StockQuant) IsGlobal() bool {
	return q.BusinessUnitID == nil || *q.BusinessUnitID == uuid.Nil
}

// belongsTo reports whether the quant is owned by the given business unit
func (q StockQuant) belongsTo(unitID uuid.UUID) bool {
	return q.BusinessUnitID != nil && *q.BusinessUnitID == unitID
}

// AvailableQuantity sums unreserved stock visible to the requesting business
// unit: the unit's own quants plus global (untagged) quants. Passing uuid.Nil
// restricts the lookup to global stock only.
func AvailableQuantity(quants []StockQuant, businessUnitID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, q := range quants {
		if q.IsGlobal() || (businessUnitID != uuid.Nil && q.belongsTo(businessUnitID)) {
			total = total.Add(q.Quantity.Sub(q.ReservedQuantity))
		}
	}
	return total
}

// ReservedQuantity sums committed stock for the given business unit.
// Reservations are strictly partitioned per unit: there is no global fallback,
// so a uuid.Nil unit sees only reservations on untagged quants.
func ReservedQuantity(quants []StockQuant, businessUnitID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, q := range quants {
		if businessUnitID == uuid.Nil {
			if q.IsGlobal() {
				total = total.Add(q.ReservedQuantity)
			}
			continue
		}
		if q.belongsTo(businessUnitID) {
			total = total.Add(q.ReservedQuantity)
		}
	}
	return total
}

// StockQuantRepository loads stock buckets for availability queries
type StockQuantRepository interface {
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]StockQuant, error)
	FindByProductScoped(ctx context.Context, productID uuid.UUID, grant AccessGrant) ([]StockQuant, error)
}
