package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
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
	"qc-vision/backend/internal/infrastructure/observability"
	auditrepo "qc-vision/backend/internal/infrastructure/repository/auditlog"
	defectrepo "qc-vision/backend/internal/infrastructure/repository/defects"
	photorepo "qc-vision/backend/internal/infrastructure/repository/photos"
	testrepo "qc-vision/backend/internal/infrastructure/repository/tests"
	userrepo "qc-vision/backend/internal/infrastructure/repository/users"
	"qc-vision/backend/internal/infrastructure/storage"
	"qc-vision/backend/internal/interfaces/httpserver"
	"qc-vision/backend/internal/interfaces/httpserver/handlers"
)

// @title QC Vision API
// @version 1.0
// @description Quality control tracking backend: tests, photo ingestion, defect annotation, audit trail
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	storageClient, err := storage.NewS3Storage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	pipeline := imagepipe.New(imagepipe.Limits{
		MaxBytes:           cfg.MaxUploadBytes,
		MinDimension:       cfg.MinImageDimension,
		MaxDimension:       cfg.MaxImageDimension,
		MaxOutputDimension: cfg.MaxOutputDimension,
		JPEGQuality:        cfg.JPEGQuality,
	}, log)

	testRepository := testrepo.NewRepository(db)
	photoRepository := photorepo.NewRepository(db)
	defectRepository := defectrepo.NewRepository(db)
	auditRepository := auditrepo.NewRepository(db)
	userRepository := userrepo.NewRepository(db)

	photoService := photo.NewService(photoRepository, storageClient, pipeline, testRepository, cfg.S3PresignTTL, log)
	testService := qctest.NewService(testRepository, photoService, log)
	defectService := defect.NewService(defectRepository, photoRepository, log)
	auditService := audit.NewService(auditRepository, log)
	userService := user.NewService(userRepository, log)
	recorder := audit.NewRecorder(auditRepository, log)

	provider := handlers.NewProvider(cfg, testService, photoService, defectService, auditService, userService, log)
	httpServer := httpserver.New(cfg, log, provider, userService, recorder, storageClient)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
