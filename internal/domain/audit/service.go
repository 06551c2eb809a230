package audit

import (
	"context"

	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Repository defines persistence operations needed by the audit domain.
type Repository interface {
	Sink
	GetByID(ctx context.Context, id int64) (*Entry, error)
	List(ctx context.Context, filter Filter) ([]Entry, int64, error)
}

// Service is the read side of the audit trail.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "audit-service").Logger(),
	}
}

// GetLog returns one entry by id.
func (s *Service) GetLog(ctx context.Context, id int64) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

// ListLogs returns filtered entries newest first plus the total count.
func (s *Service) ListLogs(ctx context.Context, filter Filter) ([]Entry, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}
