package handlers

import (
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/config"
	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/domain/defect"
	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/domain/qctest"
	"qc-vision/backend/internal/domain/user"
)

// Provider wires HTTP handlers.
type Provider struct {
	Tests   *TestHandler
	Photos  *PhotoHandler
	Defects *DefectHandler
	Audit   *AuditHandler
	Users   *UserHandler
}

func NewProvider(
	cfg *config.Config,
	tests *qctest.Service,
	photos *photo.Service,
	defects *defect.Service,
	auditSvc *audit.Service,
	users *user.Service,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Tests:   NewTestHandler(tests, photos, log),
		Photos:  NewPhotoHandler(cfg, photos, log),
		Defects: NewDefectHandler(defects, log),
		Audit:   NewAuditHandler(auditSvc, log),
		Users:   NewUserHandler(users, log),
	}
}
