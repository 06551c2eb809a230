// Package user provisions header-identified principals. There is no
// password flow: the gateway is trusted to forward a short username
// header, and unknown usernames get a default-role row on first sight.
package user

import (
	"context"

	"github.com/rs/zerolog"

	"qc-vision/backend/internal/domain/identity"
	"qc-vision/backend/internal/utils/platformerrors"
)

// UsernameLength is the fixed badge-number length.
const UsernameLength = 5

// User is one provisioned principal.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Repository defines persistence operations needed by the user domain.
type Repository interface {
	GetOrCreate(ctx context.Context, username string) (*User, error)
}

// Service resolves request identities.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "user-service").Logger(),
	}
}

// Resolve validates the forwarded username and returns the matching
// principal, provisioning a default-role row when none exists.
func (s *Service) Resolve(ctx context.Context, username string) (*User, error) {
	if len(username) != UsernameLength {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "username must be exactly 5 characters", nil)
	}
	return s.repo.GetOrCreate(ctx, username)
}

// Principal converts a user row into the context principal.
func (u *User) Principal() identity.Principal {
	return identity.Principal{Username: u.Username, Role: u.Role}
}
