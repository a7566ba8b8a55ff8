// Package matrixscope applies matrix access grants to GORM queries.
//
// The contract is fail-closed: a grant covering no branches produces a
// filter that matches zero records, never an unfiltered query.
//
// Usage:
//
//	scoped := matrixscope.Apply(db, grant)
//	scoped.Find(&orders) // WHERE branch_id IN (...) is auto-added
package matrixscope

import (
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"gorm.io/gorm"
)

// Apply narrows a query to the branches the grant covers. Records with no
// branch assigned stay visible to everyone.
func Apply(db *gorm.DB, grant matrix.AccessGrant) *gorm.DB {
	if grant.Unrestricted {
		return db
	}
	if grant.IsEmpty() {
		return db.Where("1 = 0")
	}
	return db.Where("branch_id IS NULL OR branch_id IN ?", grant.BranchIDs)
}

// ApplyColumn narrows a query on a custom branch column name
func ApplyColumn(db *gorm.DB, grant matrix.AccessGrant, column string) *gorm.DB {
	if grant.Unrestricted {
		return db
	}
	if grant.IsEmpty() {
		return db.Where("1 = 0")
	}
	return db.Where(column+" IS NULL OR "+column+" IN ?", grant.BranchIDs)
}

// Scope returns a GORM scope function for use with db.Scopes
func Scope(grant matrix.AccessGrant) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Apply(db, grant)
	}
}
