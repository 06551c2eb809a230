// Package defect implements defect documentation on photos: severity-ranked
// issues, geometric annotations, and the one-shot review workflow.
package defect

import (
	"fmt"
	"strings"
	"time"

	"qc-vision/backend/internal/utils/optional"
)

// Severity is an ordered category: low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// ParseSeverity validates a severity string; empty defaults to low.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return SeverityLow, nil
	}
	if _, ok := severityRank[s]; !ok {
		return "", fmt.Errorf("invalid severity %q", raw)
	}
	return s, nil
}

// Rank returns the severity's position in the order; unknown ranks lowest.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Review states. Approved and rejected are terminal.
const (
	ReviewUnreviewed = "unreviewed"
	ReviewApproved   = "approved"
	ReviewRejected   = "rejected"
)

// Category is a named taxonomy entry referenced by annotations.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Annotation is one geometric marking on a defect.
type Annotation struct {
	ID         int64     `json:"id"`
	DefectID   int64     `json:"defect_id"`
	CategoryID int64     `json:"category_id"`
	Geometry   Geometry  `json:"geometry"`
	Color      *string   `json:"color,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Defect documents one visual issue on a photo.
type Defect struct {
	ID            int64        `json:"id"`
	PhotoID       int64        `json:"photo_id"`
	Description   *string      `json:"description"`
	Severity      Severity     `json:"severity"`
	ReviewStatus  string       `json:"review_status"`
	ReviewedBy    *string      `json:"reviewed_by,omitempty"`
	ReviewComment *string      `json:"review_comment,omitempty"`
	ReviewedAt    *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	Annotations   []Annotation `json:"annotations"`
}

// AnnotationParams describes one annotation to create.
type AnnotationParams struct {
	CategoryID int64
	Geometry   Geometry
	Color      *string
}

// CreateParams describes a defect to create with its initial annotations.
type CreateParams struct {
	Description *string
	Severity    Severity
	Annotations []AnnotationParams
}

// Patch lists the updatable defect fields, each marked with whether the
// client provided it. CategoryID is the convenience path: it retargets the
// defect's primary (lowest-id) annotation, creating one with empty
// geometry when the defect has none.
type Patch struct {
	Description optional.Field[*string]
	Severity    optional.Field[Severity]
	CategoryID  optional.Field[int64]
}

// AnnotationPatch lists the updatable annotation fields.
type AnnotationPatch struct {
	Geometry   optional.Field[Geometry]
	CategoryID optional.Field[int64]
	Color      optional.Field[*string]
}
