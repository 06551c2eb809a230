package qctest

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/utils/platformerrors"
)

// Repository defines persistence operations needed by the test domain.
type Repository interface {
	Create(ctx context.Context, t *Test) error
	GetByID(ctx context.Context, id int64) (*Test, error)
	List(ctx context.Context, params ListParams) ([]Test, int64, error)
	Update(ctx context.Context, t *Test) error
	Delete(ctx context.Context, id int64) error
}

// PhotoPurger removes a test's photos from storage and database as the
// first step of a cascading delete.
type PhotoPurger interface {
	PurgeForTest(ctx context.Context, testID int64) (*photo.PurgeReport, error)
}

// Service orchestrates quality test management.
type Service struct {
	repo   Repository
	photos PhotoPurger
	log    zerolog.Logger
}

func NewService(repo Repository, photos PhotoPurger, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		photos: photos,
		log:    log.With().Str("component", "test-service").Logger(),
	}
}

// Create persists a new test.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Test, error) {
	if params.Status == "" {
		params.Status = DefaultStatus
	}
	t := &Test{
		ProductID:   params.ProductID,
		TestType:    params.TestType,
		Requester:   params.Requester,
		AssignedTo:  params.AssignedTo,
		Description: params.Description,
		Status:      params.Status,
		DeadlineAt:  params.DeadlineAt,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns one test.
func (s *Service) Get(ctx context.Context, id int64) (*Test, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns filtered tests newest first plus the total count.
func (s *Service) List(ctx context.Context, params ListParams) ([]Test, int64, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 100
	}
	if params.Skip < 0 {
		params.Skip = 0
	}
	return s.repo.List(ctx, params)
}

// Update applies a partial update. Concurrent patches to the same test
// are last-write-wins; there is no optimistic-concurrency token.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Test, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if v, ok := patch.ProductID.Get(); ok {
		t.ProductID = v
	}
	if v, ok := patch.TestType.Get(); ok {
		t.TestType = v
	}
	if v, ok := patch.Requester.Get(); ok {
		t.Requester = v
	}
	if v, ok := patch.AssignedTo.Get(); ok {
		t.AssignedTo = v
	}
	if v, ok := patch.Description.Get(); ok {
		t.Description = v
	}
	if v, ok := patch.Status.Get(); ok {
		t.Status = v
	}
	if v, ok := patch.DeadlineAt.Get(); ok {
		t.DeadlineAt = v
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a test and its photos. Photos are purged first: each
// object deletion is attempted individually, failures are captured, and
// the rows go away regardless of storage outcome.
func (s *Service) Delete(ctx context.Context, id int64) (*photo.PurgeReport, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	report, err := s.photos.PurgeForTest(ctx, id)
	if err != nil {
		return report, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return report, err
	}

	s.log.Info().
		Int64("test_id", id).
		Int("photos_deleted", report.Deleted).
		Strs("failed_keys", report.FailedKeys).
		Msg("deleted test")

	return report, nil
}

// ReviewOutcome reports what a review decision did.
type ReviewOutcome struct {
	Test    *Test
	Deleted bool
	Report  *photo.PurgeReport
}

// Review applies a review decision to a test. Approve records the review
// fields; reject deletes the test with its photos.
func (s *Service) Review(ctx context.Context, id int64, decision, reviewer string, comment *string) (*ReviewOutcome, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "approve", "approved":
		now := time.Now().UTC()
		status := ReviewApproved
		t.ReviewStatus = &status
		t.ReviewedBy = &reviewer
		t.ReviewComment = comment
		t.ReviewedAt = &now
		if err := s.repo.Update(ctx, t); err != nil {
			return nil, err
		}
		return &ReviewOutcome{Test: t}, nil
	case "reject", "rejected":
		report, err := s.Delete(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ReviewOutcome{Deleted: true, Report: report}, nil
	default:
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "decision must be approve/approved or reject/rejected", nil)
	}
}
