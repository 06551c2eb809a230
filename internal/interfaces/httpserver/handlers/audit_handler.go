package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/interfaces/httpserver/responses"
	"qc-vision/backend/internal/utils/platformerrors"
)

// AuditHandler exposes the read side of the audit trail.
type AuditHandler struct {
	service *audit.Service
	log     zerolog.Logger
}

func NewAuditHandler(service *audit.Service, log zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		log:     log.With().Str("component", "audit-handler").Logger(),
	}
}

// List godoc
// @Summary      List audit log entries
// @Tags         audit
// @Produce      json
// @Param        action        query     string  false  "Action filter"
// @Param        entity_type   query     string  false  "Entity type filter"
// @Param        entity_id     query     int     false  "Entity ID filter"
// @Param        username      query     string  false  "Actor filter"
// @Param        created_from  query     string  false  "RFC 3339 lower bound"
// @Param        created_to    query     string  false  "RFC 3339 upper bound"
// @Param        limit         query     int     false  "Page size (max 200)"
// @Param        offset        query     int     false  "Rows to skip"
// @Success      200  {object}  responses.AuditListResponse
// @Router       /api/v1/audit/logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := audit.Filter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		Username:   c.Query("username"),
		Limit:      queryInt(c, "limit", 0),
		Offset:     queryInt(c, "offset", 0),
	}

	if raw := c.Query("entity_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "entity_id must be an integer")
			return
		}
		filter.EntityID = &id
	}
	if raw := c.Query("created_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "created_from must be an RFC 3339 timestamp")
			return
		}
		filter.CreatedFrom = &t
	}
	if raw := c.Query("created_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "created_to must be an RFC 3339 timestamp")
			return
		}
		filter.CreatedTo = &t
	}

	items, total, err := h.service.ListLogs(c.Request.Context(), filter)
	if err != nil {
		responses.HandleError(c, err, "failed to list audit entries")
		return
	}
	c.JSON(http.StatusOK, responses.AuditListResponse{
		Items:  items,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// Get godoc
// @Summary      Get one audit log entry
// @Tags         audit
// @Produce      json
// @Param        id   path      int  true  "Entry ID"
// @Success      200  {object}  audit.Entry
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/v1/audit/logs/{id} [get]
func (h *AuditHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.GetLog(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to get audit entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}
