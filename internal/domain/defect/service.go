package defect

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qc-vision/backend/internal/utils/platformerrors"
)

// Repository defines persistence operations needed by the defect domain.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateWithAnnotations(ctx context.Context, d *Defect) error
	ListByPhoto(ctx context.Context, photoID int64) ([]Defect, error)
	GetByID(ctx context.Context, id int64) (*Defect, error)
	UpdateDefect(ctx context.Context, d *Defect) error
	DeleteDefect(ctx context.Context, id int64) error
	AddAnnotation(ctx context.Context, a *Annotation) error
	GetAnnotation(ctx context.Context, id int64) (*Annotation, error)
	FirstAnnotation(ctx context.Context, defectID int64) (*Annotation, error)
	UpdateAnnotation(ctx context.Context, a *Annotation) error
	DeleteAnnotation(ctx context.Context, id int64) error
}

// PhotoChecker guards defect creation against dangling photo references.
type PhotoChecker interface {
	PhotoExists(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates defect and annotation management.
type Service struct {
	repo   Repository
	photos PhotoChecker
	log    zerolog.Logger
}

func NewService(repo Repository, photos PhotoChecker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		photos: photos,
		log:    log.With().Str("component", "defect-service").Logger(),
	}
}

// ListCategories returns the taxonomy ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// Create persists a defect and its initial annotations in one transaction.
func (s *Service) Create(ctx context.Context, photoID int64, params CreateParams) (*Defect, error) {
	exists, err := s.photos.PhotoExists(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeNotFound, "photo not found", nil)
	}

	if params.Severity == "" {
		params.Severity = SeverityLow
	}
	for _, ann := range params.Annotations {
		if err := ann.Geometry.Validate(); err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeValidation, err.Error(), err)
		}
	}

	d := &Defect{
		PhotoID:      photoID,
		Description:  params.Description,
		Severity:     params.Severity,
		ReviewStatus: ReviewUnreviewed,
	}
	for _, ann := range params.Annotations {
		d.Annotations = append(d.Annotations, Annotation{
			CategoryID: ann.CategoryID,
			Geometry:   ann.Geometry,
			Color:      ann.Color,
		})
	}

	if err := s.repo.CreateWithAnnotations(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ListForPhoto returns the photo's defects newest first with annotations
// attached.
func (s *Service) ListForPhoto(ctx context.Context, photoID int64) ([]Defect, error) {
	return s.repo.ListByPhoto(ctx, photoID)
}

// Get returns one defect with its annotations.
func (s *Service) Get(ctx context.Context, id int64) (*Defect, error) {
	return s.repo.GetByID(ctx, id)
}

// AddAnnotation attaches one annotation to an existing defect.
func (s *Service) AddAnnotation(ctx context.Context, defectID int64, params AnnotationParams) (*Annotation, error) {
	if _, err := s.repo.GetByID(ctx, defectID); err != nil {
		return nil, err
	}
	if err := params.Geometry.Validate(); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, err.Error(), err)
	}

	a := &Annotation{
		DefectID:   defectID,
		CategoryID: params.CategoryID,
		Geometry:   params.Geometry,
		Color:      params.Color,
	}
	if err := s.repo.AddAnnotation(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update applies a partial update. Description and severity set directly.
// A provided category id retargets the primary annotation: the one with
// the lowest id, or a new annotation with empty geometry when the defect
// has none yet.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Defect, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if desc, ok := patch.Description.Get(); ok {
		d.Description = desc
	}
	if sev, ok := patch.Severity.Get(); ok {
		if _, rankOK := severityRank[sev]; !rankOK {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeValidation, "invalid severity", nil)
		}
		d.Severity = sev
	}

	if err := s.repo.UpdateDefect(ctx, d); err != nil {
		return nil, err
	}

	if categoryID, ok := patch.CategoryID.Get(); ok {
		first, err := s.repo.FirstAnnotation(ctx, id)
		if err != nil {
			return nil, err
		}
		if first != nil {
			first.CategoryID = categoryID
			if err := s.repo.UpdateAnnotation(ctx, first); err != nil {
				return nil, err
			}
		} else {
			placeholder := &Annotation{DefectID: id, CategoryID: categoryID}
			if err := s.repo.AddAnnotation(ctx, placeholder); err != nil {
				return nil, err
			}
		}
	}

	return s.repo.GetByID(ctx, id)
}

// Delete removes a defect and cascades to its annotations.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteDefect(ctx, id)
}

// UpdateAnnotation applies a partial update to one annotation.
func (s *Service) UpdateAnnotation(ctx context.Context, id int64, patch AnnotationPatch) (*Annotation, error) {
	a, err := s.repo.GetAnnotation(ctx, id)
	if err != nil {
		return nil, err
	}

	if geom, ok := patch.Geometry.Get(); ok {
		if err := geom.Validate(); err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeValidation, err.Error(), err)
		}
		a.Geometry = geom
	}
	if categoryID, ok := patch.CategoryID.Get(); ok {
		a.CategoryID = categoryID
	}
	if color, ok := patch.Color.Get(); ok {
		a.Color = color
	}

	if err := s.repo.UpdateAnnotation(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAnnotation removes one annotation; the owning defect is untouched.
func (s *Service) DeleteAnnotation(ctx context.Context, id int64) error {
	return s.repo.DeleteAnnotation(ctx, id)
}

// ReviewOutcome reports what a review decision did.
type ReviewOutcome struct {
	Defect  *Defect
	Deleted bool
}

// Review applies a one-shot review decision. A defect already in a
// terminal state rejects further review attempts. Approval records the
// reviewer; rejection removes the defect and its annotations entirely.
func (s *Service) Review(ctx context.Context, id int64, decision, reviewer string, comment *string) (*ReviewOutcome, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.ReviewStatus == ReviewApproved || d.ReviewStatus == ReviewRejected {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeConflict, "defect already reviewed", nil)
	}

	switch normalizeDecision(decision) {
	case ReviewApproved:
		now := time.Now().UTC()
		d.ReviewStatus = ReviewApproved
		d.ReviewedBy = &reviewer
		d.ReviewComment = comment
		d.ReviewedAt = &now
		if err := s.repo.UpdateDefect(ctx, d); err != nil {
			return nil, err
		}
		return &ReviewOutcome{Defect: d}, nil
	case ReviewRejected:
		if err := s.repo.DeleteDefect(ctx, id); err != nil {
			return nil, err
		}
		s.log.Info().Int64("defect_id", id).Str("reviewer", reviewer).Msg("defect rejected and removed")
		return &ReviewOutcome{Deleted: true}, nil
	default:
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "decision must be approve/approved or reject/rejected", nil)
	}
}

func normalizeDecision(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved":
		return ReviewApproved
	case "reject", "rejected":
		return ReviewRejected
	default:
		return ""
	}
}
