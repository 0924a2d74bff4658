package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rmarquez/prestia/prestia-backend/internal/config"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/handler"
	"github.com/rmarquez/prestia/prestia-backend/internal/interest"
	"github.com/rmarquez/prestia/prestia-backend/internal/middleware"
	"github.com/rmarquez/prestia/prestia-backend/internal/repository/postgres"
	"github.com/rmarquez/prestia/prestia-backend/internal/repository/storage"
	"github.com/rmarquez/prestia/prestia-backend/internal/service"
	"github.com/rmarquez/prestia/prestia-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	workspaceRepo := postgres.NewWorkspaceRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	cycleRepo := postgres.NewCycleRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)

	// Initialize services
	policy := interest.DefaultPolicy
	loanService := service.NewLoanService(pool, loanRepo, cycleRepo, paymentRepo, policy)
	paymentService := service.NewPaymentService(pool, loanRepo, cycleRepo, paymentRepo, policy)
	statsService := service.NewStatsService(loanRepo, paymentRepo, policy)

	// WebSocket hub broadcasts entity changes to connected clients
	hub := websocket.NewHub()
	loanService.SetEventPublisher(hub)
	paymentService.SetEventPublisher(hub)

	// Optional replica database for background reconciliation
	var syncService *service.SyncService
	if cfg.ReplicaDatabaseURL != "" {
		replicaPool, err := pgxpool.New(context.Background(), cfg.ReplicaDatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to replica database")
		}
		defer replicaPool.Close()

		if err := replicaPool.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping replica database")
		}
		log.Info().Msg("Connected to replica database")

		replica := postgres.NewReplicaStore(replicaPool)
		loanService.SetReplica(replica)
		syncService = service.NewSyncService(loanRepo, cycleRepo, paymentRepo, workspaceRepo, replica)
		syncService.SetEventPublisher(hub)
	} else {
		log.Info().Msg("No replica configured, sync disabled")
	}

	// Optional S3 storage for client photos and payment receipts
	var imageService *service.ImageService
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		imageRepo, err := storage.NewS3ImageRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize image storage")
		}
		imageService = service.NewImageService(imageRepo)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Image storage enabled")
	} else {
		imageService = service.NewImageService(nil)
		log.Info().Msg("No S3 credentials configured, image uploads disabled")
	}

	// Create workspace provider adapter for auth middleware
	workspaceProvider := &workspaceProviderAdapter{workspaceRepo: workspaceRepo}

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, workspaceProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}

	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// WebSocket connections carry their own token validation
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, workspaceProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket token validator")
	}

	// Initialize handlers
	loanHandler := handler.NewLoanHandler(loanService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	statsHandler := handler.NewStatsHandler(statsService, loanService)
	syncHandler := handler.NewSyncHandler(syncService)
	imageHandler := handler.NewImageHandler(imageService)
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, loanHandler, paymentHandler, statsHandler, syncHandler, imageHandler, wsHandler)

	// Background reconciliation loop
	syncCtx, cancelSync := context.WithCancel(context.Background())
	defer cancelSync()
	if syncService != nil {
		go syncService.RunPeriodic(syncCtx, cfg.SyncInterval)
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelSync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// workspaceProviderAdapter adapts the workspace repository to
// middleware.WorkspaceProvider and websocket.WorkspaceLookup
type workspaceProviderAdapter struct {
	workspaceRepo *postgres.WorkspaceRepository
}

// GetWorkspaceByAuth0ID implements middleware.WorkspaceProvider. A user
// seen for the first time gets a workspace provisioned on the spot.
func (a *workspaceProviderAdapter) GetWorkspaceByAuth0ID(auth0ID, email string, name *string) (int32, error) {
	workspace, err := a.workspaceRepo.GetByUserAuth0ID(auth0ID)
	if err == nil {
		return workspace.ID, nil
	}
	if !errors.Is(err, domain.ErrWorkspaceNotFound) {
		return 0, err
	}

	created, err := a.workspaceRepo.CreateForUser(auth0ID, email, name)
	if err != nil {
		return 0, err
	}
	log.Info().Int32("workspace_id", created.ID).Str("auth0_id", auth0ID).Msg("Provisioned workspace for new user")
	return created.ID, nil
}

// LookupWorkspaceByAuth0ID implements websocket.WorkspaceLookup
func (a *workspaceProviderAdapter) LookupWorkspaceByAuth0ID(auth0ID string) (int32, error) {
	workspace, err := a.workspaceRepo.GetByUserAuth0ID(auth0ID)
	if err != nil {
		return 0, err
	}
	return workspace.ID, nil
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
