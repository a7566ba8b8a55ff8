package models

import (
	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/shopspring/decimal"
)

// BranchModel is the persistence model for branches
type BranchModel struct {
	CompanyAggregateModel
	Code   string `gorm:"type:varchar(50);not null;index"`
	Name   string `gorm:"type:varchar(200);not null"`
	Active bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (BranchModel) TableName() string {
	return "branches"
}

// ToDomain converts the persistence model to a domain branch
func (m *BranchModel) ToDomain() *matrix.Branch {
	branch := &matrix.Branch{
		Code:   m.Code,
		Name:   m.Name,
		Active: m.Active,
	}
	m.PopulateCompanyAggregateRoot(&branch.CompanyAggregateRoot)
	return branch
}

// FromDomain populates the persistence model from a domain branch
func (m *BranchModel) FromDomain(branch *matrix.Branch) {
	m.FromDomainCompanyAggregateRoot(branch.CompanyAggregateRoot)
	m.Code = branch.Code
	m.Name = branch.Name
	m.Active = branch.Active
}

// BusinessUnitModel is the persistence model for business units
type BusinessUnitModel struct {
	CompanyAggregateModel
	Code      string `gorm:"type:varchar(50);not null;index"`
	Name      string `gorm:"type:varchar(200);not null"`
	Active    bool   `gorm:"not null;default:true"`
	BranchIDs UUIDList
}

// TableName returns the table name for GORM
func (BusinessUnitModel) TableName() string {
	return "business_units"
}

// ToDomain converts the persistence model to a domain business unit
func (m *BusinessUnitModel) ToDomain() *matrix.BusinessUnit {
	unit := &matrix.BusinessUnit{
		Code:      m.Code,
		Name:      m.Name,
		Active:    m.Active,
		BranchIDs: m.BranchIDs,
	}
	m.PopulateCompanyAggregateRoot(&unit.CompanyAggregateRoot)
	return unit
}

// FromDomain populates the persistence model from a domain business unit
func (m *BusinessUnitModel) FromDomain(unit *matrix.BusinessUnit) {
	m.FromDomainCompanyAggregateRoot(unit.CompanyAggregateRoot)
	m.Code = unit.Code
	m.Name = unit.Name
	m.Active = unit.Active
	m.BranchIDs = unit.BranchIDs
}

// StockQuantModel is the persistence model for partitioned stock buckets
type StockQuantModel struct {
	BaseModel
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_quants_product"`
	BranchID         *uuid.UUID      `gorm:"type:uuid;index"`
	BusinessUnitID   *uuid.UUID      `gorm:"type:uuid;index:idx_quants_product"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReservedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (StockQuantModel) TableName() string {
	return "stock_quants"
}

// ToDomain converts the persistence model to a domain quant
func (m *StockQuantModel) ToDomain() matrix.StockQuant {
	return matrix.StockQuant{
		ProductID:        m.ProductID,
		BranchID:         m.BranchID,
		BusinessUnitID:   m.BusinessUnitID,
		Quantity:         m.Quantity,
		ReservedQuantity: m.ReservedQuantity,
	}
}
