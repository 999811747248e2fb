// Package server contains HTTP and WebSocket handlers for the board API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "newsboard/docs" // swagger docs
	"newsboard/internal/auth"
	"newsboard/internal/cache"
	"newsboard/internal/config"
	"newsboard/internal/database"
	"newsboard/internal/featureflags"
	"newsboard/internal/middleware"
	"newsboard/internal/models"
	"newsboard/internal/notifications"
	"newsboard/internal/repository"
	"newsboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
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
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         *auth.TokenManager
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	likeRepo       repository.LikeRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	limiter        *middleware.RateLimiter
	authService    *service.AuthService
	postService    *service.PostService
	commentService *service.CommentService
	likeService    *service.LikeService
	userService    *service.UserService
}

// NewServer connects the database and Redis from cfg and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client leaves caching, rate limiting and pub/sub disabled.
	cache.InitRedis(cfg.RedisURL)
	cache.SetTTL(cfg.CacheTTL())

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("newsboard-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		tokens:         auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL()),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		likeRepo:       repository.NewLikeRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.Env),
	}

	s.authService = service.NewAuthService(s.userRepo, auth.NewBcryptHasher(), s.tokens)
	s.postService = service.NewPostService(s.postRepo, s.userRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.likeService = service.NewLikeService(s.likeRepo, s.postRepo)
	s.userService = service.NewUserService(s.userRepo)

	return s, nil
}

// NewApp builds the fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "newsboard",
		ErrorHandler: errorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, token, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "newsboard metrics",
	}))

	authRequired := middleware.AuthRequired(s.tokens)

	authGroup := api.Group("/auth")
	authGroup.Post("/sign-up", s.limiter.Limit(middleware.SignUpRule), s.SignUp)
	authGroup.Post("/log-in", s.limiter.Limit(middleware.LogInRule), s.LogIn)

	users := api.Group("/users")
	users.Get("/me", authRequired, s.GetMe)
	users.Get("/:username/posts", s.ListPostsByUsername)
	users.Get("/", authRequired, s.ListUsers)

	api.Get("/feature-flags", authRequired, s.GetFeatureFlags)

	posts := api.Group("/posts")
	// Specific paths before the generic /:postId routes.
	posts.Get("/search", s.featureFlags.Require(featureflags.Search),
		s.limiter.Limit(middleware.SearchRule), s.SearchPosts)
	posts.Get("/me", authRequired, s.ListMyPosts)
	posts.Get("/past", authRequired, s.ListPastPosts)
	posts.Get("/", authRequired, s.ListPosts)
	posts.Post("/", authRequired,
		s.limiter.Limit(middleware.CreatePostRule), s.CreatePost)
	posts.Get("/:postId", s.GetPost)
	posts.Patch("/:postId", authRequired, s.UpdatePost)
	posts.Delete("/:postId", authRequired, s.DeletePost)

	comments := api.Group("/comments", authRequired)
	comments.Get("/on/:postId", s.ListComments)
	comments.Post("/on/:postId",
		s.limiter.Limit(middleware.CreateCommentRule), s.CreateComment)
	comments.Get("/:commentId/replies", s.ListReplies)
	comments.Get("/:commentId", s.GetComment)
	comments.Patch("/:commentId", s.UpdateComment)
	comments.Delete("/:commentId", s.DeleteComment)

	likes := api.Group("/likes")
	likes.Get("/on/:postId", s.ListLikes)
	likes.Post("/on/:postId", authRequired, s.limiter.Limit(middleware.LikeRule), s.LikePost)
	likes.Delete("/on/:postId", authRequired, s.UnlikePost)
	likes.Get("/status/:postId", authRequired, s.LikeStatus)
	likes.Get("/count/:postId", s.LikeCount)

	api.Get("/ws", middleware.WebSocketAuthRequired(s.tokens),
		s.featureFlags.Require(featureflags.LiveFeed), s.WebsocketHandler())
}

// StartRealtime wires the hub to Redis pub/sub. Without Redis the hub is fed
// directly by this process.
func (s *Server) StartRealtime() error {
	if !s.notifier.Enabled() {
		middleware.Logger.Info("live feed running in single-instance mode")
		return nil
	}
	if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
		return fmt.Errorf("wire live feed: %w", err)
	}
	return nil
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	app := s.app
	if app == nil {
		app = s.NewApp()
	}
	if err := s.StartRealtime(); err != nil {
		middleware.Logger.Warn("live feed unavailable", "error", err)
	}

	addr := ":" + s.config.Port
	middleware.Logger.Info("server listening", "addr", addr, "env", s.config.Env)
	return app.Listen(addr)
}

// Shutdown stops background work, closes websocket clients and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	var errs []error
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("hub: %w", err))
	}
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
	}
	return errors.Join(errs...)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional: an
// unconfigured client is "unavailable" and does not fail readiness.
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
		"connections": s.hub.Connections(),
		"time":        time.Now(),
	})
}

// errorHandler renders errors that escape handlers, including fiber's own
// routing errors, in the standard envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := models.KindInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			kind = models.KindNotFound
		case fe.Code == fiber.StatusMethodNotAllowed, fe.Code < fiber.StatusInternalServerError:
			kind = models.KindValidation
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{
			Error: fe.Message,
			Code:  string(kind),
		})
	}

	if models.KindOf(err) == models.KindInternal {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, err)
}
