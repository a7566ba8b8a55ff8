package matrix

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DistributionLine assigns a weight to a single analytic dimension
type DistributionLine struct {
	DimensionID   uuid.UUID
	WeightPercent decimal.Decimal
}

// Distribution is a typed analytic distribution across dimensions.
// Invariant: weights are positive and sum to exactly 100.
type Distribution struct {
	lines []DistributionLine
}

// NewDistribution validates and builds a distribution
func NewDistribution(lines []DistributionLine) (*Distribution, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_DISTRIBUTION", "Distribution must have at least one line")
	}

	sum := decimal.Zero
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.DimensionID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_DISTRIBUTION", "Distribution line dimension cannot be empty")
		}
		if _, ok := seen[line.DimensionID]; ok {
			return nil, shared.NewDomainError("INVALID_DISTRIBUTION",
				fmt.Sprintf("Dimension %s appears more than once", line.DimensionID))
		}
		seen[line.DimensionID] = struct{}{}
		if line.WeightPercent.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_DISTRIBUTION", "Distribution weights must be positive")
		}
		sum = sum.Add(line.WeightPercent)
	}

	if !sum.Equal(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_DISTRIBUTION",
			fmt.Sprintf("Distribution weights must sum to 100, got %s", sum))
	}

	copied := make([]DistributionLine, len(lines))
	copy(copied, lines)
	return &Distribution{lines: copied}, nil
}

// Lines returns a copy of the distribution lines
func (d *Distribution) Lines() []DistributionLine {
	out := make([]DistributionLine, len(d.lines))
	copy(out, d.lines)
	return out
}

// WeightFor returns the weight assigned to a dimension, zero when absent
func (d *Distribution) WeightFor(dimensionID uuid.UUID) decimal.Decimal {
	for _, line := range d.lines {
		if line.DimensionID == dimensionID {
			return line.WeightPercent
		}
	}
	return decimal.Zero
}

// Apply splits an amount across the distribution's dimensions
func (d *Distribution) Apply(amount decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	out := make(map[uuid.UUID]decimal.Decimal, len(d.lines))
	for _, line := range d.lines {
		out[line.DimensionID] = amount.Mul(line.WeightPercent).Div(hundred)
	}
	return out
}
