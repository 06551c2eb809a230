//go:build wireinject

package main

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"qc-vision/backend/internal/config"
	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/domain/defect"
	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/domain/qctest"
	"qc-vision/backend/internal/domain/user"
	"qc-vision/backend/internal/imagepipe"
	"qc-vision/backend/internal/infrastructure/database"
	"qc-vision/backend/internal/infrastructure/logger"
	auditrepo "qc-vision/backend/internal/infrastructure/repository/auditlog"
	defectrepo "qc-vision/backend/internal/infrastructure/repository/defects"
	photorepo "qc-vision/backend/internal/infrastructure/repository/photos"
	testrepo "qc-vision/backend/internal/infrastructure/repository/tests"
	userrepo "qc-vision/backend/internal/infrastructure/repository/users"
	"qc-vision/backend/internal/infrastructure/storage"
	"qc-vision/backend/internal/interfaces/httpserver"
	"qc-vision/backend/internal/interfaces/httpserver/handlers"
)

var repositorySet = wire.NewSet(
	testrepo.NewRepository,
	wire.Bind(new(qctest.Repository), new(*testrepo.Repository)),
	wire.Bind(new(photo.TestChecker), new(*testrepo.Repository)),
	photorepo.NewRepository,
	wire.Bind(new(photo.Repository), new(*photorepo.Repository)),
	wire.Bind(new(defect.PhotoChecker), new(*photorepo.Repository)),
	defectrepo.NewRepository,
	wire.Bind(new(defect.Repository), new(*defectrepo.Repository)),
	auditrepo.NewRepository,
	wire.Bind(new(audit.Repository), new(*auditrepo.Repository)),
	wire.Bind(new(audit.Sink), new(*auditrepo.Repository)),
	userrepo.NewRepository,
	wire.Bind(new(user.Repository), new(*userrepo.Repository)),
)

var domainSet = wire.NewSet(
	providePresignTTL,
	photo.NewService,
	wire.Bind(new(photo.Processor), new(*imagepipe.Pipeline)),
	wire.Bind(new(qctest.PhotoPurger), new(*photo.Service)),
	qctest.NewService,
	defect.NewService,
	audit.NewService,
	audit.NewRecorder,
	user.NewService,
)

// BuildApplication assembles the service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		newPipeline,
		storage.NewS3Storage,
		wire.Bind(new(photo.Storage), new(*storage.S3Storage)),
		wire.Bind(new(httpserver.HealthChecker), new(*storage.S3Storage)),
		repositorySet,
		domainSet,
		handlers.NewProvider,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func providePresignTTL(cfg *config.Config) time.Duration {
	return cfg.S3PresignTTL
}

func newPipeline(cfg *config.Config, log zerolog.Logger) *imagepipe.Pipeline {
	return imagepipe.New(imagepipe.Limits{
		MaxBytes:           cfg.MaxUploadBytes,
		MinDimension:       cfg.MinImageDimension,
		MaxDimension:       cfg.MaxImageDimension,
		MaxOutputDimension: cfg.MaxOutputDimension,
		JPEGQuality:        cfg.JPEGQuality,
	}, log)
}
