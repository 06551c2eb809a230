package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/imagepipe"
	"qc-vision/backend/internal/utils/platformerrors"
)

// Repository defines persistence operations needed by the photo domain.
type Repository interface {
	Create(ctx context.Context, p *Photo) error
	GetByID(ctx context.Context, id int64) (*Photo, error)
	ListByTest(ctx context.Context, testID int64) ([]Photo, error)
	Delete(ctx context.Context, id int64) error
	Gallery(ctx context.Context, params GalleryParams) ([]GalleryItem, int64, error)
}

// Storage defines object-store operations for photo bytes.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Processor validates and normalizes inbound image bytes.
type Processor interface {
	Process(data []byte, filename string) (*imagepipe.Result, error)
}

// TestChecker guards ingestion against dangling test references.
type TestChecker interface {
	TestExists(ctx context.Context, id int64) (bool, error)
}

const storedContentType = "image/jpeg"

// Service orchestrates photo ingestion and retrieval.
type Service struct {
	repo       Repository
	storage    Storage
	pipeline   Processor
	tests      TestChecker
	presignTTL time.Duration
	log        zerolog.Logger
}

func NewService(repo Repository, storage Storage, pipeline Processor, tests TestChecker, presignTTL time.Duration, log zerolog.Logger) *Service {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &Service{
		repo:       repo,
		storage:    storage,
		pipeline:   pipeline,
		tests:      tests,
		presignTTL: presignTTL,
		log:        log.With().Str("component", "photo-service").Logger(),
	}
}

// storageKey builds the date-partitioned object key. Output is always
// JPEG, hence the fixed suffix.
func storageKey(now time.Time) string {
	return fmt.Sprintf("photos/%s/%s.jpg", now.UTC().Format("20060102"), uuid.NewString())
}

// Ingest validates, transforms, stores, and records one photo. A Photo
// row is only created after the object-store write succeeds; if the row
// insert fails afterwards the orphaned object is left in place rather
// than rolled back.
func (s *Service) Ingest(ctx context.Context, data []byte, filename string, testID int64) (*Photo, error) {
	exists, err := s.tests.TestExists(ctx, testID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeNotFound, "test not found", nil)
	}

	result, err := s.pipeline.Process(data, filename)
	if err != nil {
		var vErr *imagepipe.ValidationError
		if errors.As(err, &vErr) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeValidation, vErr.Message, vErr)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInternal, "image processing failed", err)
	}

	now := time.Now().UTC()
	key := storageKey(now)

	if err := s.storage.Upload(ctx, key, bytes.NewReader(result.Bytes), int64(len(result.Bytes)), storedContentType); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeExternal, "failed to store photo", err)
	}

	p := &Photo{
		TestID:    testID,
		FilePath:  key,
		TimeStamp: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("photo row insert failed after store write; object orphaned")
		return nil, err
	}

	s.log.Info().
		Int64("photo_id", p.ID).
		Int64("test_id", testID).
		Str("key", key).
		Str("source_format", result.SourceFormat).
		Int("width", result.Width).
		Int("height", result.Height).
		Msg("ingested photo")

	return p, nil
}

// Get returns one photo's metadata.
func (s *Service) Get(ctx context.Context, id int64) (*Photo, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForTest returns all photos owned by a test.
func (s *Service) ListForTest(ctx context.Context, testID int64) ([]Photo, error) {
	return s.repo.ListByTest(ctx, testID)
}

// PresignURL returns a time-bounded direct-access URL for a photo.
func (s *Service) PresignURL(ctx context.Context, id int64) (string, int, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", 0, err
	}
	url, err := s.storage.PresignGet(ctx, p.FilePath, s.presignTTL)
	if err != nil {
		return "", 0, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeExternal, "failed to presign photo URL", err)
	}
	return url, int(s.presignTTL.Seconds()), nil
}

// Download streams the stored bytes for proxying.
func (s *Service) Download(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	reader, mime, err := s.storage.Download(ctx, p.FilePath)
	if err != nil {
		return nil, "", platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeExternal, "failed to fetch photo bytes", err)
	}
	if mime == "" {
		mime = storedContentType
	}
	return reader, mime, nil
}

// Delete removes the photo row, then attempts the object-store delete.
// The storage delete is best-effort: its failure is logged, not surfaced.
// Retrying a delete returns NotFound once the row is gone.
func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, p.FilePath); err != nil {
		s.log.Error().Err(err).Str("key", p.FilePath).Msg("failed to delete photo object; storage orphan left")
	}
	return nil
}

// PurgeForTest removes every photo owned by a test: enumerate, attempt
// each object deletion capturing individual failures, then delete the
// rows regardless. A storage orphan is preferred over data loss.
func (s *Service) PurgeForTest(ctx context.Context, testID int64) (*PurgeReport, error) {
	photos, err := s.repo.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	report := &PurgeReport{}
	for _, p := range photos {
		if err := s.storage.Delete(ctx, p.FilePath); err != nil {
			s.log.Error().Err(err).Str("key", p.FilePath).Msg("failed to delete photo object during purge")
			report.FailedKeys = append(report.FailedKeys, p.FilePath)
		}
	}

	for _, p := range photos {
		if err := s.repo.Delete(ctx, p.ID); err != nil {
			return report, err
		}
		report.Deleted++
	}

	return report, nil
}

// Gallery returns one page of photos with aggregated defect facts.
func (s *Service) Gallery(ctx context.Context, params GalleryParams) ([]GalleryItem, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	return s.repo.Gallery(ctx, params)
}
