package requests

import (
	"qc-vision/backend/internal/domain/defect"
	"qc-vision/backend/internal/utils/optional"
)

// AnnotationBody is one geometric marking in a defect payload.
type AnnotationBody struct {
	CategoryID int64           `json:"category_id" binding:"required"`
	Geometry   defect.Geometry `json:"geometry"`
	Color      *string         `json:"color"`
}

// CreateDefectRequest is the body for documenting a defect on a photo.
type CreateDefectRequest struct {
	Description *string          `json:"description"`
	Severity    string           `json:"severity"`
	Annotations []AnnotationBody `json:"annotations"`
}

// UpdateDefectRequest is the PATCH body for a defect. CategoryID is the
// convenience path that retargets the defect's primary annotation.
type UpdateDefectRequest struct {
	Description optional.Field[*string]         `json:"description"`
	Severity    optional.Field[defect.Severity] `json:"severity"`
	CategoryID  optional.Field[int64]           `json:"category_id"`
}

// Patch converts the request into a domain patch.
func (r UpdateDefectRequest) Patch() defect.Patch {
	return defect.Patch{
		Description: r.Description,
		Severity:    r.Severity,
		CategoryID:  r.CategoryID,
	}
}

// UpdateAnnotationRequest is the PATCH body for one annotation.
type UpdateAnnotationRequest struct {
	Geometry   optional.Field[defect.Geometry] `json:"geometry"`
	CategoryID optional.Field[int64]           `json:"category_id"`
	Color      optional.Field[*string]         `json:"color"`
}

// Patch converts the request into a domain patch.
func (r UpdateAnnotationRequest) Patch() defect.AnnotationPatch {
	return defect.AnnotationPatch{
		Geometry:   r.Geometry,
		CategoryID: r.CategoryID,
		Color:      r.Color,
	}
}
