package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/domain/identity"
	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/domain/qctest"
	"qc-vision/backend/internal/interfaces/httpserver/middlewares"
	"qc-vision/backend/internal/interfaces/httpserver/requests"
	"qc-vision/backend/internal/interfaces/httpserver/responses"
	"qc-vision/backend/internal/utils/platformerrors"
)

// TestHandler exposes quality test endpoints.
type TestHandler struct {
	tests  *qctest.Service
	photos *photo.Service
	log    zerolog.Logger
}

func NewTestHandler(tests *qctest.Service, photos *photo.Service, log zerolog.Logger) *TestHandler {
	return &TestHandler{
		tests:  tests,
		photos: photos,
		log:    log.With().Str("component", "test-handler").Logger(),
	}
}

type failedPhoto struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type createTestResponse struct {
	Test         *qctest.Test  `json:"test"`
	Photos       []photo.Photo `json:"photos"`
	FailedPhotos []failedPhoto `json:"failed_photos"`
	Message      string        `json:"message"`
}

// Create godoc
// @Summary      Create a quality test
// @Description  Creates a test from multipart form fields, optionally ingesting initial photos in the same call.
// @Tags         tests
// @Accept       multipart/form-data
// @Produce      json
// @Success      201  {object}  createTestResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Router       /api/v1/tests [post]
func (h *TestHandler) Create(c *gin.Context) {
	productID, err := strconv.ParseInt(c.PostForm("productId"), 10, 64)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "productId must be an integer")
		return
	}
	testType := c.PostForm("testType")
	requester := c.PostForm("requester")
	if testType == "" || requester == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "testType and requester are required")
		return
	}

	params := qctest.CreateParams{
		ProductID: productID,
		TestType:  testType,
		Requester: requester,
		Status:    c.PostForm("status"),
	}
	if v := c.PostForm("assignedTo"); v != "" {
		params.AssignedTo = &v
	}
	if v := c.PostForm("description"); v != "" {
		params.Description = &v
	}
	if v := c.PostForm("deadlineAt"); v != "" {
		deadline, err := time.Parse(time.RFC3339, v)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "deadlineAt must be an ISO-8601 timestamp")
			return
		}
		params.DeadlineAt = &deadline
	}

	t, err := h.tests.Create(c.Request.Context(), params)
	if err != nil {
		responses.HandleError(c, err, "failed to create test")
		return
	}

	resp := createTestResponse{
		Test:         t,
		Photos:       []photo.Photo{},
		FailedPhotos: []failedPhoto{},
		Message:      "test created",
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, header := range form.File["photos"] {
			p, err := h.ingestUpload(c, header, t.ID)
			if err != nil {
				resp.FailedPhotos = append(resp.FailedPhotos, failedPhoto{
					Filename: header.Filename,
					Error:    err.Error(),
				})
				continue
			}
			resp.Photos = append(resp.Photos, *p)
		}
	}

	c.Set(middlewares.AuditEntityIDKey, t.ID)
	c.Set(middlewares.AuditMetaKey, map[string]any{
		"photos_added":  len(resp.Photos),
		"photos_failed": len(resp.FailedPhotos),
	})
	c.JSON(http.StatusCreated, resp)
}

func (h *TestHandler) ingestUpload(c *gin.Context, header *multipart.FileHeader, testID int64) (*photo.Photo, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return h.photos.Ingest(c.Request.Context(), data, header.Filename, testID)
}

// Get godoc
// @Summary      Get a quality test
// @Tags         tests
// @Produce      json
// @Param        id   path      int  true  "Test ID"
// @Success      200  {object}  qctest.Test
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/tests/{id} [get]
func (h *TestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	t, err := h.tests.Get(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to get test")
		return
	}
	c.JSON(http.StatusOK, t)
}

// List godoc
// @Summary      List quality tests
// @Tags         tests
// @Produce      json
// @Param        skip    query     int     false  "Rows to skip"
// @Param        limit   query     int     false  "Page size"
// @Param        status  query     string  false  "Status filter"
// @Param        search  query     string  false  "Case-insensitive text search"
// @Success      200  {object}  responses.TestListResponse
// @Router       /api/v1/tests [get]
func (h *TestHandler) List(c *gin.Context) {
	params := qctest.ListParams{
		Skip:   queryInt(c, "skip", 0),
		Limit:  queryInt(c, "limit", 100),
		Status: c.Query("status"),
		Search: c.Query("search"),
	}

	items, total, err := h.tests.List(c.Request.Context(), params)
	if err != nil {
		responses.HandleError(c, err, "failed to list tests")
		return
	}
	c.JSON(http.StatusOK, responses.TestListResponse{
		Items: items,
		Total: total,
		Skip:  params.Skip,
		Limit: params.Limit,
	})
}

// Update godoc
// @Summary      Partially update a quality test
// @Tags         tests
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true  "Test ID"
// @Param        request  body      requests.UpdateTestRequest true  "Fields to update"
// @Success      200  {object}  qctest.Test
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/tests/{id} [patch]
func (h *TestHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req requests.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
		return
	}

	patch := req.Patch()
	t, err := h.tests.Update(c.Request.Context(), id, patch)
	if err != nil {
		responses.HandleError(c, err, "failed to update test")
		return
	}

	// Narrow patches get a more specific audit action than UPDATE.
	if patch.OnlyStatus() {
		c.Set(middlewares.AuditActionKey, audit.ActionStatusChange)
		c.Set(middlewares.AuditMetaKey, map[string]any{"status": t.Status})
	} else if only, cleared := patch.OnlyAssignment(); only {
		if cleared {
			c.Set(middlewares.AuditActionKey, audit.ActionUnassign)
		} else {
			c.Set(middlewares.AuditActionKey, audit.ActionAssign)
		}
	}
	c.Set(middlewares.AuditEntityIDKey, id)
	c.JSON(http.StatusOK, t)
}

// Delete godoc
// @Summary      Delete a quality test and its photos
// @Tags         tests
// @Param        id   path  int  true  "Test ID"
// @Success      204
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/tests/{id} [delete]
func (h *TestHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.tests.Delete(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to delete test")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, id)
	c.Set(middlewares.AuditMetaKey, map[string]any{
		"photos_deleted": report.Deleted,
		"failed_keys":    report.FailedKeys,
	})
	c.Status(http.StatusNoContent)
}

// Review godoc
// @Summary      Review a quality test
// @Description  Approve records the decision; reject removes the test with its photos. Requires the reviewer or admin role.
// @Tags         tests
// @Accept       json
// @Produce      json
// @Param        id       path      int                     true  "Test ID"
// @Param        request  body      requests.ReviewRequest  true  "Review decision"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  responses.ErrorResponse
// @Router       /api/v1/tests/{id}/review [post]
func (h *TestHandler) Review(c *gin.Context) {
	principal, reviewer := requireReviewer(c)
	if !reviewer {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req requests.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
		return
	}

	outcome, err := h.tests.Review(c.Request.Context(), id, req.Decision, principal.Username, req.Comment)
	if err != nil {
		responses.HandleError(c, err, "failed to review test")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, id)
	c.Set(middlewares.AuditMetaKey, map[string]any{"decision": req.Decision})
	if outcome.Deleted {
		c.JSON(http.StatusOK, gin.H{
			"deleted":        true,
			"photos_deleted": outcome.Report.Deleted,
		})
		return
	}
	c.JSON(http.StatusOK, outcome.Test)
}

// pathID parses a positive integer path parameter, writing the 400 itself.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// requireReviewer enforces the review role gate, writing the error itself.
func requireReviewer(c *gin.Context) (identity.Principal, bool) {
	principal, ok := identity.FromContext(c.Request.Context())
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required")
		return identity.Principal{}, false
	}
	if !principal.CanReview() {
		responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, "reviewer or admin role required")
		return identity.Principal{}, false
	}
	return principal, true
}
