package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	qcdocs "qc-vision/backend/docs/swagger"
	"qc-vision/backend/internal/config"
	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/domain/user"
	"qc-vision/backend/internal/interfaces/httpserver/handlers"
	"qc-vision/backend/internal/interfaces/httpserver/middlewares"
	v1 "qc-vision/backend/internal/interfaces/httpserver/routes/v1"
)

// HealthChecker reports object-store reachability for the health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg     *config.Config
	engine  *gin.Engine
	log     zerolog.Logger
	storage HealthChecker
}

// New constructs the HTTP server with default middleware and routes.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	provider *handlers.Provider,
	users *user.Service,
	recorder *audit.Recorder,
	storage HealthChecker,
) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	qcdocs.SwaggerInfo.BasePath = "/"

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(log),
		middlewares.Metrics(),
		middlewares.Identity(users, log),
		middlewares.Audit(recorder, log),
	)

	server := &HttpServer{
		cfg:     cfg,
		engine:  engine,
		log:     log,
		storage: storage,
	}

	routeProvider := v1.NewRoutes(provider)
	server.registerCoreRoutes(routeProvider)

	return server
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Engine exposes the router for tests.
func (s *HttpServer) Engine() *gin.Engine {
	return s.engine
}

func (s *HttpServer) registerCoreRoutes(routes *v1.Routes) {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": s.cfg.ServiceName, "status": "ok"})
	})
	s.engine.GET("/healthz", func(c *gin.Context) {
		if s.storage != nil {
			if err := s.storage.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "storage": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/api/v1/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     s.cfg.ServiceName,
			"environment": s.cfg.Environment,
			"status":      "ok",
		})
	})

	routes.Register(s.engine)
}
