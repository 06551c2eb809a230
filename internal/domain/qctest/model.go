// Package qctest manages quality test records: the unit of QC work that
// owns photos and carries the review lifecycle.
package qctest

import (
	"time"

	"qc-vision/backend/internal/utils/optional"
)

// DefaultStatus is applied when a test is created without one.
const DefaultStatus = "pending"

// Review decisions mirror the defect workflow: approve records review
// fields, reject removes the test and its photos.
const (
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Test is one quality-control inspection unit.
type Test struct {
	ID            int64      `json:"id"`
	ProductID     int64      `json:"product_id"`
	TestType      string     `json:"test_type"`
	Requester     string     `json:"requester"`
	AssignedTo    *string    `json:"assigned_to"`
	Description   *string    `json:"description"`
	Status        string     `json:"status"`
	DeadlineAt    *time.Time `json:"deadline_at"`
	ReviewStatus  *string    `json:"review_status,omitempty"`
	ReviewedBy    *string    `json:"reviewed_by,omitempty"`
	ReviewComment *string    `json:"review_comment,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateParams describes a test to create.
type CreateParams struct {
	ProductID   int64
	TestType    string
	Requester   string
	AssignedTo  *string
	Description *string
	Status      string
	DeadlineAt  *time.Time
}

// Patch lists the updatable fields, each marked with whether the client
// provided it. Applying a patch is a single exhaustive pass, with no
// reflection involved.
type Patch struct {
	ProductID   optional.Field[int64]
	TestType    optional.Field[string]
	Requester   optional.Field[string]
	AssignedTo  optional.Field[*string]
	Description optional.Field[*string]
	Status      optional.Field[string]
	DeadlineAt  optional.Field[*time.Time]
}

// OnlyStatus reports whether the patch changes exactly the status field.
func (p Patch) OnlyStatus() bool {
	return p.Status.Set &&
		!p.ProductID.Set && !p.TestType.Set && !p.Requester.Set &&
		!p.AssignedTo.Set && !p.Description.Set && !p.DeadlineAt.Set
}

// OnlyAssignment reports whether the patch changes exactly the assignee,
// and whether that assignment was cleared.
func (p Patch) OnlyAssignment() (only bool, cleared bool) {
	only = p.AssignedTo.Set &&
		!p.ProductID.Set && !p.TestType.Set && !p.Requester.Set &&
		!p.Status.Set && !p.Description.Set && !p.DeadlineAt.Set
	cleared = p.AssignedTo.Value == nil
	return only, cleared
}

// ListParams filters and pages the test listing.
type ListParams struct {
	Skip   int
	Limit  int
	Status string
	Search string
}
