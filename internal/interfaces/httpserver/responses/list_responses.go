package responses

import (
	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/domain/qctest"
)

// TestListResponse is one page of tests plus the unpaged total.
type TestListResponse struct {
	Items []qctest.Test `json:"items"`
	Total int64         `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
}

// GalleryResponse is one gallery page.
type GalleryResponse struct {
	Items    []photo.GalleryItem `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// AuditListResponse is one page of audit entries plus the unpaged total.
type AuditListResponse struct {
	Items  []audit.Entry `json:"items"`
	Total  int64         `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// PresignResponse carries a time-bounded direct-access URL.
type PresignResponse struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// IngestResponse reports one uploaded photo, or the reason it was refused.
type IngestResponse struct {
	Photo *photo.Photo `json:"photo,omitempty"`
	Error string       `json:"error,omitempty"`
}

// DeleteResponse reports a cascading delete.
type DeleteResponse struct {
	Deleted       bool     `json:"deleted"`
	PhotosDeleted int      `json:"photos_deleted"`
	FailedKeys    []string `json:"failed_keys,omitempty"`
}
