// Package server contains the HTTP handlers and routing for the murmur API.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	_ "murmur/docs" // swagger docs
	"murmur/internal/auth"
	"murmur/internal/bootstrap"
	"murmur/internal/config"
	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/repository"
	"murmur/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *auth.SessionCodec
	revocations    *auth.RevocationStore
	rateLimiter    *middleware.RateLimiter
	userRepo       repository.UserRepository
	followRepo     repository.FollowRepository
	postRepo       repository.PostRepository
	authService    *service.AuthService
	accountService *service.AccountService
	userService    *service.UserService
	postService    *service.PostService
}

// NewServer connects to the database and Redis and wires every dependency.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; revocation and rate limiting then degrade gracefully.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, auth.ErrMissingSecret
	}

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	sessions := auth.NewSessionCodec(cfg.JWTSecret, cfg.SessionTTL())
	revocations := auth.NewRevocationStore(redisClient)
	limits := service.LimitsFromConfig(cfg)
	policy := middleware.FailOpen
	if cfg.RateLimitFailClosed {
		policy = middleware.FailClosed
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("murmur-api"),
		sessions:       sessions,
		revocations:    revocations,
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env, policy),
		userRepo:       repository.NewUserRepository(db, hasher),
		followRepo:     repository.NewFollowRepository(db),
		postRepo:       repository.NewPostRepository(db),
	}
	s.authService = service.NewAuthService(s.userRepo, hasher, sessions, revocations)
	s.accountService = service.NewAccountService(s.userRepo, hasher, sessions, limits)
	s.userService = service.NewUserService(s.userRepo, s.followRepo)
	s.postService = service.NewPostService(s.userRepo, s.postRepo, limits)

	models.HideDetails = cfg.IsProduction()
	return s, nil
}

// NewApp returns a Fiber app configured with the server's error handler and body limit.
func (s *Server) NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "murmur API",
		BodyLimit:    s.config.ImageMaxUploadBytes()*2 + 64*1024,
		ErrorHandler: errorHandler,
		// Handles may contain accented letters, which clients send percent-encoded.
		UnescapePath: true,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error", "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

func (s *Server) sessionConfig() middleware.SessionConfig {
	return middleware.SessionConfig{
		CookieName:  s.config.CookieName,
		Codec:       s.sessions,
		Revocations: s.revocations,
	}
}

// sessionWithMessage is SessionRequired with msg as the body of every rejection.
func (s *Server) sessionWithMessage(msg string) fiber.Handler {
	cfg := s.sessionConfig()
	cfg.MissingMessage = msg
	cfg.InvalidMessage = msg
	return middleware.SessionRequired(cfg)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.TracingMiddleware())

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// The session cookie is a private cookie: encrypted at rest in the browser.
	if key := s.config.CookieEncryptionKey; key != "" {
		if _, err := base64.StdEncoding.DecodeString(key); err == nil {
			app.Use(encryptcookie.New(encryptcookie.Config{Key: key}))
		}
	}

	// CORS precedes the limiter so 429 responses carry the headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigin,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "murmur metrics"}))
	app.Get("/swagger/*", swagger.HandlerDefault)

	required := middleware.SessionRequired(s.sessionConfig())
	optional := middleware.SessionOptional(s.sessionConfig())

	app.Get("/auth/validate", required, s.ValidateSession)

	user := app.Group("/user")
	user.Post("/create", s.rateLimiter.Limit(5, 10*time.Minute, "signup"), s.CreateUser)
	user.Post("/login", s.rateLimiter.Limit(10, 5*time.Minute, "login"), s.Login)
	user.Post("/log-out", s.Logout)
	user.Delete("/delete", s.sessionWithMessage(service.MsgUnauthorizedUser), s.DeleteUser)

	user.Get("/data", required, s.GetUserData)
	user.Get("/profile/:userAt", optional, s.GetProfile)
	user.Get("/following/:userAt", s.GetFollowing)
	user.Get("/followers/:userAt", s.GetFollowers)
	user.Patch("/follow", s.sessionWithMessage(service.MsgUnauthorized), s.Follow)
	user.Get("/query/:text", s.rateLimiter.Limit(30, time.Minute, "search"), s.SearchUsers)

	change := user.Group("/change", required)
	change.Patch("/password", s.ChangePassword)
	change.Patch("/email", s.ChangeEmail)
	change.Patch("/user-at", s.ChangeUserAt)
	change.Patch("/profile", s.ChangeProfile)

	user.Post("/publish-post", required, s.rateLimiter.Limit(10, time.Minute, "publish_post"), s.PublishPost)
	user.Get("/fetch-posts", optional, s.FetchPosts)
	user.Get("/fetch-post/:id", optional, s.FetchPost)
	user.Get("/fetch-user-posts/:userAt", optional, s.FetchUserPosts)
	user.Get("/fetch-post-comments/:id", optional, s.FetchComments)
	user.Patch("/like", required, s.LikePost)
	user.Patch("/like-comment", required, s.LikeComment)
	user.Patch("/comment/:postId", required, s.rateLimiter.Limit(20, time.Minute, "comment"), s.CommentPost)
	user.Patch("/edit-post/:id", required, s.EditPost)
	user.Delete("/delete-post/:id", required, s.DeletePost)
	user.Delete("/delete-post-comment", required, s.DeleteComment)

	// Preflight for any path; the CORS middleware has already set the headers.
	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only
// the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown releases the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				errs = append(errs, fmt.Errorf("close database: %w", cerr))
			}
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", rerr))
		}
	}
	if err := errors.Join(errs...); err != nil {
		middleware.Logger.ErrorContext(ctx, "Server resource shutdown error", "error", err)
		return err
	}
	return nil
}
