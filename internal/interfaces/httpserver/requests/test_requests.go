package requests

import (
	"time"

	"qc-vision/backend/internal/domain/qctest"
	"qc-vision/backend/internal/utils/optional"
)

// UpdateTestRequest is the PATCH body for a test. Absent fields are left
// untouched; explicit nulls clear nullable columns.
type UpdateTestRequest struct {
	ProductID   optional.Field[int64]      `json:"product_id"`
	TestType    optional.Field[string]     `json:"test_type"`
	Requester   optional.Field[string]     `json:"requester"`
	AssignedTo  optional.Field[*string]    `json:"assigned_to"`
	Description optional.Field[*string]    `json:"description"`
	Status      optional.Field[string]     `json:"status"`
	DeadlineAt  optional.Field[*time.Time] `json:"deadline_at"`
}

// Patch converts the request into a domain patch.
func (r UpdateTestRequest) Patch() qctest.Patch {
	return qctest.Patch{
		ProductID:   r.ProductID,
		TestType:    r.TestType,
		Requester:   r.Requester,
		AssignedTo:  r.AssignedTo,
		Description: r.Description,
		Status:      r.Status,
		DeadlineAt:  r.DeadlineAt,
	}
}

// ReviewRequest is the body for a review decision on a test or defect.
type ReviewRequest struct {
	Decision string  `json:"decision" binding:"required"`
	Comment  *string `json:"comment"`
}
