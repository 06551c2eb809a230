package defects

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"qc-vision/backend/internal/domain/defect"
	"qc-vision/backend/internal/infrastructure/database/entities"
	photorepo "qc-vision/backend/internal/infrastructure/repository/photos"
	"qc-vision/backend/internal/utils/optional"
	"qc-vision/backend/internal/utils/platformerrors"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entities.QualityTest{},
		&entities.Photo{},
		&entities.DefectCategory{},
		&entities.Defect{},
		&entities.DefectAnnotation{},
	))
	return db
}

func seedPhoto(t *testing.T, db *gorm.DB) *entities.Photo {
	t.Helper()
	test := &entities.QualityTest{ProductID: 1, TestType: "visual", Requester: "u0001", Status: "pending"}
	require.NoError(t, db.Create(test).Error)
	p := &entities.Photo{TestID: test.ID, FilePath: "photos/20260829/test.jpg"}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *entities.DefectCategory {
	t.Helper()
	c := &entities.DefectCategory{Name: name, IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func newService(t *testing.T, db *gorm.DB) *defect.Service {
	t.Helper()
	return defect.NewService(NewRepository(db), photorepo.NewRepository(db), zerolog.Nop())
}

func rectGeometry(x, y, w, h float64) defect.Geometry {
	return defect.Geometry{Type: defect.ShapeRect, Rect: &defect.Rect{X: x, Y: y, W: w, H: h}}
}

func TestCreateDefectWithAnnotations(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db)
	p := seedPhoto(t, db)
	cat := seedCategory(t, db, "Scratches")

	polygon := defect.Geometry{Type: defect.ShapePolygon, Polygon: &defect.Polygon{
		Points: []defect.Point{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.1}, {X: 0.3, Y: 0.6}},
	}}

	desc := "deep scratch near corner"
	d, err := svc.Create(context.Background(), p.ID, defect.CreateParams{
		Description: &desc,
		Severity:    defect.SeverityHigh,
		Annotations: []defect.AnnotationParams{
			{CategoryID: cat.ID, Geometry: rectGeometry(0.1, 0.2, 0.3, 0.4)},
			{CategoryID: cat.ID, Geometry: polygon},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, d.ID)
	assert.Equal(t, defect.ReviewUnreviewed, d.ReviewStatus)

	got, err := svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Len(t, got.Annotations, 2)
	assert.Equal(t, defect.ShapeRect, got.Annotations[0].Geometry.Type)
	assert.Equal(t, defect.ShapePolygon, got.Annotations[1].Geometry.Type)
	assert.Equal(t, defect.SeverityHigh, got.Severity)
}

func TestCreateDefectMissingPhoto(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db)

	_, err := svc.Create(context.Background(), 999, defect.CreateParams{})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestCreateDefectRejectsBadGeometry(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db)
	p := seedPhoto(t, db)
	cat := seedCategory(t, db, "Dents")

	_, err := svc.Create(context.Background(), p.ID, defect.CreateParams{
		Annotations: []defect.AnnotationParams{
			{CategoryID: cat.ID, Geometry: rectGeometry(0.1, 0.2, 1.5, 0.4)},
		},
	})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestReviewApproveIsTerminal(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db)
	p := seedPhoto(t, db)

	d, err := svc.Create(context.Background(), p.ID, defect.CreateParams{Severity: defect.SeverityLow})
	require.NoError(t, err)

	outcome, err := svc.Review(context.Background(), d.ID, "approve", "r0001", nil)
	require.NoError(t, err)
	assert.False(t, outcome.Deleted)
	assert.Equal(t, defect.ReviewApproved, outcome.Defect.ReviewStatus)
	require.NotNil(t, outcome.Defect.ReviewedBy)
	assert.Equal(t, "r0001", *outcome.Defect.ReviewedBy)

	_, err = svc.Review(context.Background(), d.ID, "reject", "r0001", nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
}

func TestReviewRejectDeletesDefectAndAnnotations(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db)
	p := seedPhoto(t, db)
	cat := seedCategory(t, db, "Discoloration")

	d, err := svc.Create(context.Background(), p.ID, defect.CreateParams{
		Annotations: []defect.AnnotationParams{
			{CategoryID: cat.ID, Geometry: rectGeometry(0, 0, 0.5, 0.5)},
		},
	})
	require.NoError(t, err)

	outcome, err := svc.Review(context.Background(), d.ID, "reject", "r0001", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Deleted)

	_, err = svc.Get(context.Background(), d.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	var annCount int64
	require.NoError(t, db.Model(&entities.DefectAnnotation{}).Where("defect_id = ?", d.ID).Count(&annCount).Error)
	assert.Zero(t, annCount)
}

func TestUpdateCategoryConvenienceRetargetsPrimary(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db)
	p := seedPhoto(t, db)
	scratches := seedCategory(t, db, "Scratches")
	dents := seedCategory(t, db, "Dents")

	d, err := svc.Create(context.Background(), p.ID, defect.CreateParams{
		Annotations: []defect.AnnotationParams{
			{CategoryID: scratches.ID, Geometry: rectGeometry(0, 0, 0.2, 0.2)},
			{CategoryID: scratches.ID, Geometry: rectGeometry(0.5, 0.5, 0.2, 0.2)},
		},
	})
	require.NoError(t, err)

	got, err := svc.Update(context.Background(), d.ID, defect.Patch{
		CategoryID: optional.Of(dents.ID),
	})
	require.NoError(t, err)
	require.Len(t, got.Annotations, 2)

	// Lowest-id annotation is retargeted, the other untouched.
	assert.Equal(t, dents.ID, got.Annotations[0].CategoryID)
	assert.Equal(t, scratches.ID, got.Annotations[1].CategoryID)
}

func TestUpdateCategoryConvenienceCreatesPlaceholder(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db)
	p := seedPhoto(t, db)
	cat := seedCategory(t, db, "Contamination")

	d, err := svc.Create(context.Background(), p.ID, defect.CreateParams{})
	require.NoError(t, err)

	got, err := svc.Update(context.Background(), d.ID, defect.Patch{
		CategoryID: optional.Of(cat.ID),
	})
	require.NoError(t, err)
	require.Len(t, got.Annotations, 1)
	assert.Equal(t, cat.ID, got.Annotations[0].CategoryID)
	assert.True(t, got.Annotations[0].Geometry.IsZero())
}

func TestListCategoriesOrderedByName(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db)
	seedCategory(t, db, "Scratches")
	seedCategory(t, db, "Dents")

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Dents", categories[0].Name)
	assert.Equal(t, "Scratches", categories[1].Name)
}
