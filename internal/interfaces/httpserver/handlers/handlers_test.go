package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"qc-vision/backend/internal/config"
	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/domain/defect"
	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/domain/qctest"
	"qc-vision/backend/internal/domain/user"
	"qc-vision/backend/internal/imagepipe"
	"qc-vision/backend/internal/infrastructure/database/entities"
	auditrepo "qc-vision/backend/internal/infrastructure/repository/auditlog"
	defectrepo "qc-vision/backend/internal/infrastructure/repository/defects"
	photorepo "qc-vision/backend/internal/infrastructure/repository/photos"
	testrepo "qc-vision/backend/internal/infrastructure/repository/tests"
	userrepo "qc-vision/backend/internal/infrastructure/repository/users"
	"qc-vision/backend/internal/interfaces/httpserver/handlers"
	"qc-vision/backend/internal/interfaces/httpserver/middlewares"
	v1 "qc-vision/backend/internal/interfaces/httpserver/routes/v1"
)

// memoryStorage satisfies photo.Storage without a real object store.
type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(bytes.NewReader(m.objects[key])), "image/jpeg", nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.example/" + key, nil
}

type fixture struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
		&entities.AuditLog{},
		&entities.User{},
	))

	log := zerolog.Nop()
	cfg := &config.Config{S3PresignTTL: time.Hour, MaxUploadBytes: 10 << 20}

	testRepository := testrepo.NewRepository(db)
	photoRepository := photorepo.NewRepository(db)
	defectRepository := defectrepo.NewRepository(db)
	auditRepository := auditrepo.NewRepository(db)
	userRepository := userrepo.NewRepository(db)

	store := &memoryStorage{objects: map[string][]byte{}}
	pipeline := imagepipe.New(imagepipe.DefaultLimits(), log)

	photoService := photo.NewService(photoRepository, store, pipeline, testRepository, time.Hour, log)
	testService := qctest.NewService(testRepository, photoService, log)
	defectService := defect.NewService(defectRepository, photoRepository, log)
	auditService := audit.NewService(auditRepository, log)
	userService := user.NewService(userRepository, log)
	recorder := audit.NewRecorder(auditRepository, log)

	provider := handlers.NewProvider(cfg, testService, photoService, defectService, auditService, userService, log)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middlewares.Identity(userService, log),
		middlewares.Audit(recorder, log),
	)
	v1.NewRoutes(provider).Register(engine)

	return &fixture{engine: engine, db: db}
}

func (f *fixture) do(t *testing.T, method, path, username string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if username != "" {
		req.Header.Set("X-User", username)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *fixture) seedDefect(t *testing.T) (photoID, defectID int64) {
	t.Helper()
	test := &entities.QualityTest{ProductID: 1, TestType: "visual", Requester: "u0001", Status: "pending"}
	require.NoError(t, f.db.Create(test).Error)
	p := &entities.Photo{TestID: test.ID, FilePath: "photos/20260829/x.jpg"}
	require.NoError(t, f.db.Create(p).Error)
	d := &entities.Defect{PhotoID: p.ID, Severity: "low", ReviewStatus: "unreviewed"}
	require.NoError(t, f.db.Create(d).Error)
	return p.ID, d.ID
}

func (f *fixture) promote(t *testing.T, username, role string) {
	t.Helper()
	require.NoError(t, f.db.Create(&entities.User{Username: username, Role: role}).Error)
}

func TestReviewRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	_, defectID := f.seedDefect(t)

	w := f.do(t, http.MethodPost, defectPath(defectID), "", map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReviewRequiresReviewerRole(t *testing.T) {
	f := newFixture(t)
	_, defectID := f.seedDefect(t)

	// Header-provisioned users default to the plain user role.
	w := f.do(t, http.MethodPost, defectPath(defectID), "u0001", map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReviewApproveAsReviewer(t *testing.T) {
	f := newFixture(t)
	_, defectID := f.seedDefect(t)
	f.promote(t, "r0001", "reviewer")

	w := f.do(t, http.MethodPost, defectPath(defectID), "r0001", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "approved", body["review_status"])
	assert.Equal(t, "r0001", body["reviewed_by"])
}

func TestReviewTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	_, defectID := f.seedDefect(t)
	f.promote(t, "r0001", "reviewer")

	w := f.do(t, http.MethodPost, defectPath(defectID), "r0001", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, defectPath(defectID), "r0001", map[string]string{"decision": "reject"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUsersMeValidatesHeader(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/users/me", "toolong", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/users/me", "u0001", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u0001", body["username"])
	assert.Equal(t, "user", body["role"])
}

func TestPatchTestStatus(t *testing.T) {
	f := newFixture(t)
	test := &entities.QualityTest{ProductID: 1, TestType: "visual", Requester: "u0001", Status: "pending"}
	require.NoError(t, f.db.Create(test).Error)

	w := f.do(t, http.MethodPatch, testPath(test.ID), "u0001", map[string]any{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "in_progress", body["status"])

	// The narrow status patch is audited as a status change by u0001.
	var entry entities.AuditLog
	require.NoError(t, f.db.Order("id DESC").First(&entry).Error)
	assert.Equal(t, "STATUS_CHANGE", entry.Action)
	assert.Equal(t, "u0001", entry.Username)
}

func TestPatchTestMalformedBody(t *testing.T) {
	f := newFixture(t)
	test := &entities.QualityTest{ProductID: 1, TestType: "visual", Requester: "u0001", Status: "pending"}
	require.NoError(t, f.db.Create(test).Error)

	req := httptest.NewRequest(http.MethodPatch, testPath(test.ID), strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func defectPath(id int64) string {
	return "/api/v1/defects/" + itoa(id) + "/review"
}

func testPath(id int64) string {
	return "/api/v1/tests/" + itoa(id)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
