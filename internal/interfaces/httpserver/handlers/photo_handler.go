package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/config"
	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/infrastructure/metrics"
	"qc-vision/backend/internal/interfaces/httpserver/middlewares"
	"qc-vision/backend/internal/interfaces/httpserver/responses"
	"qc-vision/backend/internal/utils/platformerrors"
)

// PhotoHandler exposes photo ingestion and retrieval endpoints.
type PhotoHandler struct {
	cfg     *config.Config
	service *photo.Service
	log     zerolog.Logger
}

func NewPhotoHandler(cfg *config.Config, service *photo.Service, log zerolog.Logger) *PhotoHandler {
	return &PhotoHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "photo-handler").Logger(),
	}
}

// Upload godoc
// @Summary      Upload a photo to a test
// @Description  Validates, normalizes to JPEG, stores the object, then records the row.
// @Tags         photos
// @Accept       multipart/form-data
// @Produce      json
// @Param        test_id  query     int   true  "Owning test ID"
// @Param        file     formData  file  true  "Image file"
// @Success      201  {object}  photo.Photo
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      502  {object}  responses.ErrorResponse
// @Router       /api/v1/photos/upload [post]
func (h *PhotoHandler) Upload(c *gin.Context) {
	testID, err := strconv.ParseInt(c.Query("test_id"), 10, 64)
	if err != nil || testID <= 0 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "test_id must be a positive integer")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "failed to read file")
		return
	}

	// Cheap sniff before the full decode; the pipeline still has the
	// final say on format.
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		metrics.RecordIngest(detected.String(), "rejected", 0)
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "file is not an image")
		return
	}

	p, err := h.service.Ingest(c.Request.Context(), data, header.Filename, testID)
	if err != nil {
		metrics.RecordIngest(detected.String(), "failed", 0)
		responses.HandleError(c, err, "failed to ingest photo")
		return
	}

	metrics.RecordIngest(detected.String(), "success", int64(len(data)))
	c.Set(middlewares.AuditEntityIDKey, p.ID)
	c.Set(middlewares.AuditMetaKey, map[string]any{
		"test_id":  testID,
		"filename": header.Filename,
	})
	c.JSON(http.StatusCreated, p)
}

// ListForTest godoc
// @Summary      List a test's photos
// @Tags         photos
// @Produce      json
// @Param        id   path      int  true  "Test ID"
// @Success      200  {array}   photo.Photo
// @Router       /api/v1/photos/test/{id} [get]
func (h *PhotoHandler) ListForTest(c *gin.Context) {
	testID, ok := pathID(c, "id")
	if !ok {
		return
	}

	photos, err := h.service.ListForTest(c.Request.Context(), testID)
	if err != nil {
		responses.HandleError(c, err, "failed to list photos")
		return
	}
	c.JSON(http.StatusOK, photos)
}

// PresignURL godoc
// @Summary      Get a time-bounded photo URL
// @Tags         photos
// @Produce      json
// @Param        id   path      int  true  "Photo ID"
// @Success      200  {object}  responses.PresignResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/photos/{id}/url [get]
func (h *PhotoHandler) PresignURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	url, expiresIn, err := h.service.PresignURL(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to presign photo URL")
		return
	}
	c.JSON(http.StatusOK, responses.PresignResponse{ID: id, URL: url, ExpiresIn: expiresIn})
}

// Image godoc
// @Summary      Stream photo bytes
// @Description  Proxies the stored object through the API without exposing storage URLs.
// @Tags         photos
// @Produce      jpeg
// @Param        id   path  int  true  "Photo ID"
// @Success      200  "binary data"
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/photos/{id}/image [get]
func (h *PhotoHandler) Image(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	reader, mime, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to fetch photo")
		return
	}
	defer reader.Close()

	c.Header("Content-Type", mime)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.log.Error().Err(err).Int64("photo_id", id).Msg("stream error")
	}
}

// Delete godoc
// @Summary      Delete a photo
// @Tags         photos
// @Param        id   path  int  true  "Photo ID"
// @Success      204
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/photos/{id} [delete]
func (h *PhotoHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		responses.HandleError(c, err, "failed to delete photo")
		return
	}

	c.Set(middlewares.AuditEntityIDKey, id)
	c.Status(http.StatusNoContent)
}

// Gallery godoc
// @Summary      Browse all photos
// @Description  Returns photos newest first, each joined with its test and aggregated defect facts.
// @Tags         photos
// @Produce      json
// @Param        page       query     int  false  "Page number"
// @Param        page_size  query     int  false  "Page size"
// @Success      200  {object}  responses.GalleryResponse
// @Router       /api/v1/photos/gallery [get]
func (h *PhotoHandler) Gallery(c *gin.Context) {
	params := photo.GalleryParams{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	items, total, err := h.service.Gallery(c.Request.Context(), params)
	if err != nil {
		responses.HandleError(c, err, "failed to load gallery")
		return
	}
	c.JSON(http.StatusOK, responses.GalleryResponse{
		Items:    items,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
}
