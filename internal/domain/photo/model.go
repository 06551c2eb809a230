// Package photo implements the ingestion pipeline: every stored photo has
// been validated, normalized to JPEG, written to object storage, and only
// then recorded in the database.
package photo

import "time"

// Photo is a stored, normalized image tied to one quality test. FilePath
// is the object-store key.
type Photo struct {
	ID              int64     `json:"id"`
	TestID          int64     `json:"test_id"`
	FilePath        string    `json:"file_path"`
	TimeStamp       time.Time `json:"time_stamp"`
	AnalysisResults *string   `json:"analysis_results"`
}

// GalleryItem is one gallery page entry: a photo joined with its test and
// aggregated defect facts.
type GalleryItem struct {
	ID              int64      `json:"id"`
	TestID          int64      `json:"test_id"`
	FilePath        string     `json:"file_path"`
	TimeStamp       time.Time  `json:"time_stamp"`
	TestType        string     `json:"test_type"`
	TestStatus      string     `json:"test_status"`
	DefectCount     int        `json:"defect_count"`
	HighestSeverity *string    `json:"highest_severity"`
	CategoryIDs     []int64    `json:"category_ids"`
}

// GalleryParams pages the gallery.
type GalleryParams struct {
	Page     int
	PageSize int
}

// PurgeReport describes one cascading cleanup: how many photo rows were
// removed and which object-store deletions failed. Failed keys are
// reported for operational visibility, never silently dropped.
type PurgeReport struct {
	Deleted    int
	FailedKeys []string
}
