package tests

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"qc-vision/backend/internal/domain/qctest"
	"qc-vision/backend/internal/infrastructure/database/entities"
	"qc-vision/backend/internal/utils/platformerrors"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.QualityTest{}, &entities.Photo{}))
	return db
}

func seed(t *testing.T, repo *Repository, testType, requester, status string) *qctest.Test {
	t.Helper()
	row := &qctest.Test{ProductID: 1, TestType: testType, Requester: requester, Status: status}
	require.NoError(t, repo.Create(context.Background(), row))
	return row
}

func TestCreateAndGet(t *testing.T) {
	repo := NewRepository(testDB(t))

	created := seed(t, repo, "visual", "u0001", "pending")
	require.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "visual", got.TestType)
	assert.Equal(t, "u0001", got.Requester)
}

func TestGetMissing(t *testing.T) {
	repo := NewRepository(testDB(t))

	_, err := repo.GetByID(context.Background(), 999)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestListFiltersAndPages(t *testing.T) {
	repo := NewRepository(testDB(t))
	seed(t, repo, "visual", "u0001", "pending")
	seed(t, repo, "stress", "u0002", "pending")
	seed(t, repo, "visual", "u0003", "done")

	items, total, err := repo.List(context.Background(), qctest.ListParams{Limit: 10, Status: "pending"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = repo.List(context.Background(), qctest.ListParams{Limit: 1, Skip: 1, Status: "pending"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 1)
}

func TestListSearchIsCaseInsensitive(t *testing.T) {
	repo := NewRepository(testDB(t))
	seed(t, repo, "Visual Inspection", "u0001", "pending")
	seed(t, repo, "stress", "u0002", "pending")

	items, total, err := repo.List(context.Background(), qctest.ListParams{Limit: 10, Search: "VISUAL"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Visual Inspection", items[0].TestType)
}

func TestDeleteAndExists(t *testing.T) {
	repo := NewRepository(testDB(t))
	created := seed(t, repo, "visual", "u0001", "pending")

	exists, err := repo.TestExists(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(context.Background(), created.ID))

	exists, err = repo.TestExists(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = repo.Delete(context.Background(), created.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}
