// Package audit records an append-only trail of user-facing actions. The
// write path is strictly best-effort: a failed log write is reported to
// the operational log and never to the caller.
package audit

import "time"

// Action is the controlled vocabulary of audited operations.
type Action string

const (
	ActionCreate       Action = "CREATE"
	ActionUpdate       Action = "UPDATE"
	ActionDelete       Action = "DELETE"
	ActionUpload       Action = "UPLOAD"
	ActionReview       Action = "REVIEW"
	ActionStatusChange Action = "STATUS_CHANGE"
	ActionAssign       Action = "ASSIGN"
	ActionUnassign     Action = "UNASSIGN"
	ActionAddPhoto     Action = "ADD_PHOTO"
	ActionRemovePhoto  Action = "REMOVE_PHOTO"
	ActionAddDefect    Action = "ADD_DEFECT"
	ActionRemoveDefect Action = "REMOVE_DEFECT"
	ActionRead         Action = "READ"
)

// Failed derives the *_FAILED variant of an action.
func (a Action) Failed() Action {
	return a + "_FAILED"
}

// EntityType classifies what kind of resource an entry refers to.
type EntityType string

const (
	EntityTest       EntityType = "Test"
	EntityPhoto      EntityType = "Photo"
	EntityDefect     EntityType = "Defect"
	EntityAlbum      EntityType = "Album"
	EntityUser       EntityType = "User"
	EntityPermission EntityType = "Permission"
	EntityUnknown    EntityType = "Unknown"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         int64          `json:"id"`
	Action     Action         `json:"action"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Username   string         `json:"username"`
	Meta       map[string]any `json:"meta"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter narrows audit log queries.
type Filter struct {
	Action      string
	EntityType  string
	EntityID    *int64
	Username    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}
