package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/domain/defect"
	"qc-vision/backend/internal/interfaces/httpserver/middlewares"
	"qc-vision/backend/internal/interfaces/httpserver/requests"
	"qc-vision/backend/internal/interfaces/httpserver/responses"
	"qc-vision/backend/internal/utils/platformerrors"
)

// DefectHandler exposes defect and annotation endpoints.
type DefectHandler struct {
	service *defect.Service
	log     zerolog.Logger
}

func NewDefectHandler(service *defect.Service, log zerolog.Logger) *DefectHandler {
	return &DefectHandler{
		service: service,
		log:     log.With().Str("component", "defect-handler").Logger(),
	}
}

// ListCategories godoc
// @Summary      List defect categories
// @Tags         defects
// @Produce      json
// @Success      200  {array}  defect.Category
// @Router       /api/v1/defects/categories [get]
func (h *DefectHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to list categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Create godoc
// @Summary      Document a defect on a photo
// @Description  Creates the defect and all of its annotations in one transaction.
// @Tags         defects
// @Accept       json
// @Produce      json
// @Param        id       path      int                          true  "Photo ID"
// @Param        request  body      requests.CreateDefectRequest true  "Defect payload"
// @Success      201  {object}  defect.Defect
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/defects/photo/{id} [post]
func (h *DefectHandler) Create(c *gin.Context) {
	photoID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req requests.CreateDefectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
		return
	}

	severity, err := defect.ParseSeverity(req.Severity)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
		return
	}

	params := defect.CreateParams{
		Description: req.Description,
		Severity:    severity,
	}
	for _, ann := range req.Annotations {
		params.Annotations = append(params.Annotations, defect.AnnotationParams{
			CategoryID: ann.CategoryID,
			Geometry:   ann.Geometry,
			Color:      ann.Color,
		})
	}

	d, err := h.service.Create(c.Request.Context(), photoID, params)
	if err != nil {
		responses.HandleError(c, err, "failed to create defect")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, d.ID)
	c.Set(middlewares.AuditMetaKey, map[string]any{
		"photo_id":    photoID,
		"annotations": len(d.Annotations),
	})
	c.JSON(http.StatusCreated, d)
}

// ListForPhoto godoc
// @Summary      List a photo's defects
// @Tags         defects
// @Produce      json
// @Param        id   path     int  true  "Photo ID"
// @Success      200  {array}  defect.Defect
// @Router       /api/v1/defects/photo/{id} [get]
func (h *DefectHandler) ListForPhoto(c *gin.Context) {
	photoID, ok := pathID(c, "id")
	if !ok {
		return
	}

	defects, err := h.service.ListForPhoto(c.Request.Context(), photoID)
	if err != nil {
		responses.HandleError(c, err, "failed to list defects")
		return
	}
	c.JSON(http.StatusOK, defects)
}

// Get godoc
// @Summary      Get a defect
// @Tags         defects
// @Produce      json
// @Param        id   path      int  true  "Defect ID"
// @Success      200  {object}  defect.Defect
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/defects/{id} [get]
func (h *DefectHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	d, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to get defect")
		return
	}
	c.JSON(http.StatusOK, d)
}

// Update godoc
// @Summary      Update a defect
// @Description  Partial update; a provided category_id retargets the primary annotation.
// @Tags         defects
// @Accept       json
// @Produce      json
// @Param        id       path      int                          true  "Defect ID"
// @Param        request  body      requests.UpdateDefectRequest true  "Fields to update"
// @Success      200  {object}  defect.Defect
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/defects/{id} [put]
func (h *DefectHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req requests.UpdateDefectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
		return
	}

	d, err := h.service.Update(c.Request.Context(), id, req.Patch())
	if err != nil {
		responses.HandleError(c, err, "failed to update defect")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, id)
	c.JSON(http.StatusOK, d)
}

// Delete godoc
// @Summary      Delete a defect
// @Tags         defects
// @Param        id   path  int  true  "Defect ID"
// @Success      204
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/defects/{id} [delete]
func (h *DefectHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		responses.HandleError(c, err, "failed to delete defect")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, id)
	c.Status(http.StatusNoContent)
}

// AddAnnotation godoc
// @Summary      Add an annotation to a defect
// @Tags         defects
// @Accept       json
// @Produce      json
// @Param        id       path      int                      true  "Defect ID"
// @Param        request  body      requests.AnnotationBody  true  "Annotation payload"
// @Success      201  {object}  defect.Annotation
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/defects/{id}/annotations [post]
func (h *DefectHandler) AddAnnotation(c *gin.Context) {
	defectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req requests.AnnotationBody
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
		return
	}

	a, err := h.service.AddAnnotation(c.Request.Context(), defectID, defect.AnnotationParams{
		CategoryID: req.CategoryID,
		Geometry:   req.Geometry,
		Color:      req.Color,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to add annotation")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, defectID)
	c.JSON(http.StatusCreated, a)
}

// UpdateAnnotation godoc
// @Summary      Update an annotation
// @Tags         defects
// @Accept       json
// @Produce      json
// @Param        id       path      int                              true  "Annotation ID"
// @Param        request  body      requests.UpdateAnnotationRequest true  "Fields to update"
// @Success      200  {object}  defect.Annotation
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/defects/annotations/{id} [put]
func (h *DefectHandler) UpdateAnnotation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req requests.UpdateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
		return
	}

	a, err := h.service.UpdateAnnotation(c.Request.Context(), id, req.Patch())
	if err != nil {
		responses.HandleError(c, err, "failed to update annotation")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, a.DefectID)
	c.JSON(http.StatusOK, a)
}

// DeleteAnnotation godoc
// @Summary      Delete an annotation
// @Tags         defects
// @Param        id   path  int  true  "Annotation ID"
// @Success      204
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/defects/annotations/{id} [delete]
func (h *DefectHandler) DeleteAnnotation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAnnotation(c.Request.Context(), id); err != nil {
		responses.HandleError(c, err, "failed to delete annotation")
		return
	}
	c.Status(http.StatusNoContent)
}

// Review godoc
// @Summary      Review a defect
// @Description  One-shot decision. Approve records the reviewer; reject removes the defect. Requires the reviewer or admin role.
// @Tags         defects
// @Accept       json
// @Produce      json
// @Param        id       path      int                     true  "Defect ID"
// @Param        request  body      requests.ReviewRequest  true  "Review decision"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /api/v1/defects/{id}/review [post]
func (h *DefectHandler) Review(c *gin.Context) {
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

	outcome, err := h.service.Review(c.Request.Context(), id, req.Decision, principal.Username, req.Comment)
	if err != nil {
		responses.HandleError(c, err, "failed to review defect")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, id)
	c.Set(middlewares.AuditMetaKey, map[string]any{"decision": req.Decision})
	if outcome.Deleted {
		c.JSON(http.StatusOK, gin.H{"deleted": true})
		return
	}
	c.JSON(http.StatusOK, outcome.Defect)
}
