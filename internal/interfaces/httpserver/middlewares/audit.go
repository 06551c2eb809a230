package middlewares

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/domain/identity"
	"qc-vision/backend/internal/infrastructure/metrics"
)

// Gin context keys handlers use to refine the audit entry derived from
// the route. The middleware remains the single writer; handlers only
// annotate.
const (
	AuditActionKey   = "audit_action"
	AuditEntityKey   = "audit_entity"
	AuditEntityIDKey = "audit_entity_id"
	AuditMetaKey     = "audit_meta"
	AuditSkipKey     = "audit_skip"
)

// bodyWriter tees the response body so the audit trail can lift entity
// ids out of it after the handler runs.
type bodyWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Audit writes exactly one audit entry per state-changing API request.
// The entry is derived from static route classification, refined by
// handler annotations, marked failed on error statuses, and written even
// when the handler panics. A failed write never affects the response.
func Audit(recorder *audit.Recorder, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		path := c.Request.URL.Path
		if !audit.Audited(method, path) {
			c.Next()
			return
		}

		writer := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		panicked := true
		defer func() {
			if c.GetBool(AuditSkipKey) {
				return
			}

			cls := audit.Classify(method, path)
			entry := audit.Entry{
				Action:     cls.Action,
				EntityType: cls.Entity,
				Username:   identity.UsernameOrSystem(c.Request.Context()),
				Meta: map[string]any{
					"method":     method,
					"path":       path,
					"ip":         c.ClientIP(),
					"user_agent": c.Request.UserAgent(),
				},
			}

			if v, ok := c.Get(AuditActionKey); ok {
				if action, ok := v.(audit.Action); ok {
					entry.Action = action
				}
			}
			if v, ok := c.Get(AuditEntityKey); ok {
				if entity, ok := v.(audit.EntityType); ok {
					entry.EntityType = entity
				}
			}
			if v, ok := c.Get(AuditEntityIDKey); ok {
				if id, ok := v.(int64); ok {
					entry.EntityID = id
				}
			}
			if v, ok := c.Get(AuditMetaKey); ok {
				if extra, ok := v.(map[string]any); ok {
					for k, val := range extra {
						entry.Meta[k] = val
					}
				}
			}

			status := c.Writer.Status()
			entry.Meta["status_code"] = status

			if panicked {
				entry.Action = entry.Action.Failed()
				entry.Meta["panic"] = true
			} else if status >= 400 {
				entry.Action = entry.Action.Failed()
			} else if entry.EntityID == 0 {
				enrichFromResponse(&entry, writer.buf.Bytes())
			}
			if entry.EntityID == 0 {
				entry.EntityID = idFromPath(path)
			}

			recorder.Record(c.Request.Context(), entry)
			metrics.RecordAuditWrite(string(entry.Action), strconv.Itoa(status))
		}()

		c.Next()
		panicked = false
	}
}

// enrichFromResponse lifts entity ids out of a successful JSON response.
// Non-JSON and non-object bodies are ignored.
func enrichFromResponse(entry *audit.Entry, body []byte) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return
	}
	if raw, ok := payload["id"]; ok {
		var id int64
		if err := json.Unmarshal(raw, &id); err == nil {
			entry.EntityID = id
		}
	}
	if raw, ok := payload["test_id"]; ok {
		var testID int64
		if err := json.Unmarshal(raw, &testID); err == nil {
			entry.Meta["test_id"] = testID
		}
	}
}

// idFromPath returns the last numeric path segment, the resource id for
// routes like /api/v1/tests/42/review.
func idFromPath(path string) int64 {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if id, err := strconv.ParseInt(segments[i], 10, 64); err == nil {
			return id
		}
	}
	return 0
}
