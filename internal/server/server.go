// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "connector/docs" // swagger docs
	"connector/internal/auth"
	"connector/internal/cache"
	"connector/internal/config"
	"connector/internal/database"
	"connector/internal/middleware"
	"connector/internal/models"
	"connector/internal/repository"
	"connector/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// metrics returns the process-wide HTTP metrics middleware. The collectors
// live in the default registry, so it is only built once.
func metrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("connector-api")
	})
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	tokens         *auth.TokenService
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	authService    *service.AuthService
	postService    *service.PostService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost, 0)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: metrics(),
		tokens:         tokens,
		userRepo:       userRepo,
		postRepo:       postRepo,
		authService:    service.NewAuthService(userRepo, hasher, tokens),
		postService:    service.NewPostService(postRepo, userRepo),
	}, nil
}

// NewApp builds a fiber app whose error handler writes the standard error payload.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "Connector API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			code = models.CodeValidation
		case fiber.StatusMethodNotAllowed:
			code = models.CodeNotFound
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Propagates request and trace ids into the request context for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Auth-Token",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Connector Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Users
	api.Post("/users", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	api.Get("/users/:id", s.GetUserProfile)

	// Auth
	api.Post("/auth", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	api.Get("/auth", s.AuthRequired(), s.GetCurrentUser)

	// Posts. Specific paths are registered before the generic /:id routes.
	posts := api.Group("/posts")
	posts.Get("/", s.AuthRequired(), s.GetPosts)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Get("/user/:userId", s.AuthRequired(), s.GetUserPosts)
	posts.Put("/like/:id", s.AuthRequired(), s.LikePost)
	posts.Put("/unlike/:id", s.AuthRequired(), s.UnlikePost)
	posts.Post("/comment/:id", s.AuthRequired(), s.CreateComment)
	posts.Delete("/comment/:id/:commentId", s.AuthRequired(), s.DeleteComment)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: a
// missing client is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown releases the database pool and the Redis client.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.redis != nil {
		// The shared cache client is released through the cache package so
		// later cache calls see no client instead of a closed one.
		var err error
		if s.redis == cache.GetClient() {
			err = cache.Close()
		} else {
			err = s.redis.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database close: %w", err))
			}
		}
	}
	if len(errs) > 0 {
		middleware.Logger.ErrorContext(ctx, "shutdown finished with errors", "count", len(errs))
	}
	return errors.Join(errs...)
}
