package server

import (
	"context"
	"errors"
	"log/slog"

	"backend-avltrack/internal/auth"
	"backend-avltrack/internal/config"
	"backend-avltrack/internal/db"
	"backend-avltrack/internal/observability"
	"backend-avltrack/internal/reaper"
	"backend-avltrack/internal/storage"
	"backend-avltrack/internal/stream"
	"backend-avltrack/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       db.Querier
	Redis    *redis.Client
	Stream   *stream.Hub
	Core     *tracking.Core
	Tracking *tracking.Service
	Auth     *auth.Service
	Reaper   *reaper.Sweeper
	Log      *slog.Logger
}

// NewServer wires the application. database may be nil; tracking then runs
// on in-memory state only.
func NewServer(cfg config.Config, database db.Querier, redisClient *redis.Client, log *slog.Logger) *Server {
	log = observability.LoggerOr(log)

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(recover.New())
	app.Use(logger.New())

	core := tracking.NewCore(nil)
	hub := stream.NewHub(redisClient, log)
	files := storage.NewService(database, cfg.ShapefileDir)
	trackingSvc := tracking.NewService(database, core, hub, files, log)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       database,
		Redis:    redisClient,
		Stream:   hub,
		Core:     core,
		Tracking: trackingSvc,
		Auth:     auth.NewService(cfg.JWTSecret, database),
		Reaper:   reaper.New(core.Liveness, core.Recorder, trackingSvc, cfg.StaleThreshold, cfg.SweepInterval, log),
		Log:      log,
	}

	registerRoutes(s, files)
	return s
}

// Bootstrap prepares the database schema and seeds the configured operator.
// With a database it fails when no operator could ever log in.
func (s *Server) Bootstrap(ctx context.Context) error {
	if s.DB == nil {
		s.Log.Warn("no database configured, operator auth disabled")
		return nil
	}
	if err := db.Migrate(ctx, s.DB); err != nil {
		return err
	}
	if s.Cfg.JWTSecret == "" || s.Cfg.JWTSecret == config.DevJWTSecret {
		s.Log.Error("JWT_SECRET is unset or the built-in development value; tokens can be forged")
	}
	if s.Cfg.OperatorEmail != "" {
		return s.Auth.EnsureOperator(ctx, s.Cfg.OperatorEmail, s.Cfg.OperatorPassword)
	}
	n, err := s.Auth.CountOperators(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNoOperators
	}
	return nil
}

func registerRoutes(s *Server, files *storage.Service) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := auth.JWTMiddleware(s.Auth)

	api := s.App.Group("/api")
	tracking.RegisterRoutes(api, s.Tracking, jwtMiddleware)
	storage.RegisterRoutes(api, files)

	auth.RegisterRoutes(s.App.Group("/auth"), s.Auth, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"status": "error", "message": err.Error()})
}
