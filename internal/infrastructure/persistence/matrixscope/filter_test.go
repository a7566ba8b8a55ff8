package matrixscope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type scopedRecord struct {
	ID       string  `gorm:"primaryKey"`
	BranchID *string `gorm:"type:uuid"`
	Name     string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&scopedRecord{}))
	require.NoError(t, db.AutoMigrate(&scopedRecord{}))
	return db
}

func seedRecords(t *testing.T, db *gorm.DB, branchA, branchB uuid.UUID) {
	t.Helper()
	a := branchA.String()
	b := branchB.String()
	require.NoError(t, db.Create([]scopedRecord{
		{ID: "in-a", BranchID: &a, Name: "order in branch A"},
		{ID: "in-b", BranchID: &b, Name: "order in branch B"},
		{ID: "global", BranchID: nil, Name: "order with no branch"},
	}).Error)
}

func recordIDs(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var records []scopedRecord
	require.NoError(t, db.Order("id").Find(&records).Error)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestApply(t *testing.T) {
	branchA := uuid.New()
	branchB := uuid.New()

	t.Run("grant narrows to its branches plus unassigned records", func(t *testing.T) {
		db := openTestDB(t)
		seedRecords(t, db, branchA, branchB)

		grant := matrix.AccessGrant{PrincipalID: uuid.New(), BranchIDs: []uuid.UUID{branchA}}
		ids := recordIDs(t, Apply(db.Model(&scopedRecord{}), grant))
		assert.Equal(t, []string{"global", "in-a"}, ids)
	})

	t.Run("unrestricted grant leaves the query untouched", func(t *testing.T) {
		db := openTestDB(t)
		seedRecords(t, db, branchA, branchB)

		ids := recordIDs(t, Apply(db.Model(&scopedRecord{}), matrix.AccessGrant{Unrestricted: true}))
		assert.Len(t, ids, 3)
	})

	t.Run("empty grant matches nothing", func(t *testing.T) {
		db := openTestDB(t)
		seedRecords(t, db, branchA, branchB)

		ids := recordIDs(t, Apply(db.Model(&scopedRecord{}), matrix.AccessGrant{PrincipalID: uuid.New()}))
		assert.Empty(t, ids)
	})
}

func TestApplyColumn(t *testing.T) {
	type warehouseRecord struct {
		ID           string  `gorm:"primaryKey"`
		HomeBranchID *string `gorm:"type:uuid"`
	}

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&warehouseRecord{}))

	branchA := uuid.New()
	a := branchA.String()
	other := uuid.New().String()
	require.NoError(t, db.Create([]warehouseRecord{
		{ID: "mine", HomeBranchID: &a},
		{ID: "theirs", HomeBranchID: &other},
	}).Error)

	grant := matrix.AccessGrant{PrincipalID: uuid.New(), BranchIDs: []uuid.UUID{branchA}}
	var records []warehouseRecord
	require.NoError(t, ApplyColumn(db.Model(&warehouseRecord{}), grant, "home_branch_id").Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, "mine", records[0].ID)
}

func TestScope(t *testing.T) {
	branchA := uuid.New()
	db := openTestDB(t)
	seedRecords(t, db, branchA, uuid.New())

	grant := matrix.AccessGrant{PrincipalID: uuid.New(), BranchIDs: []uuid.UUID{branchA}}
	var records []scopedRecord
	require.NoError(t, db.Scopes(Scope(grant)).Order("id").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, "global", records[0].ID)
	assert.Equal(t, "in-a", records[1].ID)
}
