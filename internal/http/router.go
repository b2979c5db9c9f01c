// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Every route outside /health, /metrics and /swagger answers with the
// canonical success or error envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-task-backend/internal/auth"
	"github.com/tbourn/go-task-backend/internal/config"
	"github.com/tbourn/go-task-backend/internal/docs"
	"github.com/tbourn/go-task-backend/internal/domain"
	"github.com/tbourn/go-task-backend/internal/http/envelope"
	"github.com/tbourn/go-task-backend/internal/http/handlers"
	"github.com/tbourn/go-task-backend/internal/http/middleware"
	"github.com/tbourn/go-task-backend/internal/repo"
	"github.com/tbourn/go-task-backend/internal/services"
)

// MaxBodyBytes caps request bodies for every route.
const MaxBodyBytes = 1 << 20

// userRepoShim adapts the repository free functions to the services.UserRepo
// interface expected by the AuthService.
type userRepoShim struct{}

// CreateUser proxies repo.CreateUser.
func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.CreateUser(ctx, db, u)
}

// GetUserByID proxies repo.GetUserByID.
func (userRepoShim) GetUserByID(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	return repo.GetUserByID(ctx, db, id)
}

// GetUserByUsername proxies repo.GetUserByUsername.
func (userRepoShim) GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return repo.GetUserByUsername(ctx, db, username)
}

// taskRepoShim adapts the repository free functions to the services.TaskRepo
// interface expected by the TaskService.
type taskRepoShim struct{}

// CreateTask proxies repo.CreateTask.
func (taskRepoShim) CreateTask(ctx context.Context, db *gorm.DB, t *domain.Task) error {
	return repo.CreateTask(ctx, db, t)
}

// GetTask proxies repo.GetTask.
func (taskRepoShim) GetTask(ctx context.Context, db *gorm.DB, id, userID uint) (*domain.Task, error) {
	return repo.GetTask(ctx, db, id, userID)
}

// CountTasks proxies repo.CountTasks (pagination support).
func (taskRepoShim) CountTasks(ctx context.Context, db *gorm.DB, userID uint, status string) (int64, error) {
	return repo.CountTasks(ctx, db, userID, status)
}

// ListTasksPage proxies repo.ListTasksPage (pagination support).
func (taskRepoShim) ListTasksPage(ctx context.Context, db *gorm.DB, userID uint, status string, offset, limit int) ([]domain.Task, error) {
	return repo.ListTasksPage(ctx, db, userID, status, offset, limit)
}

// UpdateTask proxies repo.UpdateTask.
func (taskRepoShim) UpdateTask(ctx context.Context, db *gorm.DB, id, userID uint, fields map[string]any) error {
	return repo.UpdateTask(ctx, db, id, userID, fields)
}

// DeleteTask proxies repo.DeleteTask.
func (taskRepoShim) DeleteTask(ctx context.Context, db *gorm.DB, id, userID uint) error {
	return repo.DeleteTask(ctx, db, id, userID)
}

// TasksStats proxies repo.TasksStats (ETag support).
func (taskRepoShim) TasksStats(ctx context.Context, db *gorm.DB, userID uint, status string) (int64, *time.Time, error) {
	return repo.TasksStats(ctx, db, userID, status)
}

// GetIdempotency proxies repo.GetIdempotency.
func (taskRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, userID, scope, key, now)
}

// CreateIdempotency proxies repo.CreateIdempotency.
func (taskRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, userID, scope, key, resourceID, status, now, ttl)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. tokens both mints access tokens (register/login) and verifies
// them on incoming requests.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. BeginRequest: correlation id + request-scoped logger
//  3. RedactingLogger: structured access logs with PII scrubbing
//  4. gzip: wraps the writer before Recovery so a panic envelope is
//     flushed through the live compressor
//  5. Recovery: panics become error envelopes
//  6. Body size limiter
//  7. Metrics
//  8. Envelope renderer (debug detail on/off)
//  9. Authenticate: optional, so later steps can key on the user
//  10. Idempotency validator (before rate limiter to allow bypass on replay)
//  11. Rate limiter (per user/IP, bypass on replay)
//  12. CORS and security headers
//  13. ErrorRenderer for errors attached with c.Error
func RegisterRoutes(r *gin.Engine, db *gorm.DB, tokens *auth.TokenIssuer, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	// "/api/tasks/" is answered by NoRoute with an envelope, not a 307 page.
	r.RedirectTrailingSlash = false

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.BeginRequest())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))
	r.Use(middleware.Recovery())
	r.Use(middleware.BodyLimit(MaxBodyBytes))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(envelope.Use(envelope.NewRenderer(cfg.ExposeDebugDetail)))
	r.Use(middleware.Authenticate(tokens))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			if userID == "" {
				return false, nil
			}
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return rec != nil, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false // must remain false with AllowAllOrigins
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
		corsCfg.AllowCredentials = true // cookie auth from listed origins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))
	r.Use(middleware.ErrorRenderer())

	r.NoRoute(middleware.NoRoute())
	r.NoMethod(middleware.NoMethod())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services <- repo/db/auth
	authSvc := services.NewAuthService(db, userRepoShim{}, auth.NewHasher(cfg.BCryptCost), tokens)
	taskSvc := services.NewTaskService(db, taskRepoShim{})
	taskSvc.IdempotencyTTL = cfg.IdempotencyTTL

	h := handlers.New(authSvc, taskSvc)
	h.SecureCookie = cfg.SecureCookie

	requireAuth := middleware.RequireAuth(tokens)

	def := r.Group("", envelope.Group("default"))
	def.GET("/", envelope.Wrap("Default route", http.StatusOK, h.Index))

	api := groupWithPrefix(r, cfg.APIBasePath)

	user := api.Group("/user", envelope.Group("user"), middleware.CachePolicy(middleware.CacheNoStore))
	{
		user.POST("/register", envelope.Wrap("User registered successfully", http.StatusCreated, h.Register))
		user.POST("/login", envelope.Wrap("Login successful", http.StatusOK, h.Login))
		user.GET("", requireAuth, envelope.Wrap("User retrieval success", http.StatusOK, h.GetUser))
	}

	tasks := api.Group("/tasks", envelope.Group("task"), middleware.CachePolicy(middleware.CacheRevalidate), requireAuth)
	{
		tasks.POST("", envelope.Wrap("Task created", http.StatusCreated, h.CreateTask))
		tasks.GET("", envelope.Wrap("Tasks retrieved", http.StatusOK, h.ListTasks))
		tasks.GET("/:id", envelope.Wrap("Task retrieved", http.StatusOK, h.GetTask))
		tasks.PUT("/:id", envelope.Wrap("Task updated", http.StatusOK, h.UpdateTask))
		tasks.DELETE("/:id", envelope.Wrap("Task deleted", http.StatusOK, h.DeleteTask))
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
