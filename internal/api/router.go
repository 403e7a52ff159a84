// Package api wires together all HTTP routes for the identity service.
//
// Route groups:
//   - /health, /ready and /version are public and unthrottled.
//   - /auth/register and /auth/login are public and rate limited per client.
//   - /api/... requires a bearer access token. Successful mutations under /api are
//     written to the audit log.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/api/handlers"
	"github.com/identity-service/identity-service/internal/audit"
	"github.com/identity-service/identity-service/internal/auth"
	"github.com/identity-service/identity-service/internal/authz"
	"github.com/identity-service/identity-service/internal/config"
	"github.com/identity-service/identity-service/internal/db/repositories"
	"github.com/identity-service/identity-service/internal/middleware"
	"github.com/identity-service/identity-service/internal/services"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Version is the release reported by /version and the version command.
var Version = "0.1.0"

// BackgroundServices holds resources that outlive a single request and must be
// released during graceful shutdown. The caller (cmd/server) calls Shutdown once
// the HTTP server has drained.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
	recorder     *audit.Recorder
	redis        redis.UniversalClient
}

// Shutdown stops the rate limiter sweepers, waits for pending audit writes and
// closes the Redis client.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.recorder != nil {
		if err := bg.recorder.Close(); err != nil {
			slog.Error("failed to close audit recorder", "error", err)
		}
	}
	if bg.redis != nil {
		if err := bg.redis.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. The JWT secret is read through
// auth.GetJWTSecret, so auth.ValidateJWTSecret must have succeeded first.
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices, error) {
	bg := &BackgroundServices{}

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	tokens := auth.NewTokenIssuer(auth.GetJWTSecret(), cfg.Auth.AccessTokenTTL, cfg.Auth.Issuer)

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganisationRepository(db)
	accountRepo := repositories.NewAccountRepository(db)

	// A nil Recorder discards entries.
	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		var sink audit.Sink
		if cfg.Audit.FilePath != "" {
			fileSink, err := audit.NewFileSink(cfg.Audit.FilePath)
			if err != nil {
				return nil, nil, err
			}
			sink = fileSink
		}
		recorder = audit.NewRecorder(repositories.NewAuditRepository(db), sink)
		bg.recorder = recorder
		slog.Info("audit logging enabled", "file", cfg.Audit.FilePath)
	}

	// Services
	engine := authz.NewEngine(orgRepo)
	accountSvc := services.NewAccountService(accountRepo, userRepo, hasher, tokens, recorder)
	userSvc := services.NewUserService(userRepo, engine)
	orgSvc := services.NewOrganisationService(orgRepo, userRepo, engine)

	authHandlers := handlers.NewAuthHandlers(accountSvc)
	userHandlers := handlers.NewUserHandlers(userSvc)
	orgHandlers := handlers.NewOrganisationHandlers(orgSvc)

	router := gin.New()
	router.RedirectTrailingSlash = true

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, bg.redisClient(cfg)))
	router.GET("/version", versionHandler())

	authGroup := router.Group("/auth")
	if cfg.Security.RateLimiting.Enabled {
		limiter := newAuthLimiter(cfg, bg)
		authGroup.Use(middleware.RateLimitMiddleware(limiter))
	}
	{
		authGroup.POST("/register", authHandlers.RegisterHandler())
		authGroup.POST("/login", authHandlers.LoginHandler())
	}

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.AuthMiddleware(tokens))
	apiGroup.Use(middleware.AuditMiddleware(recorder))
	{
		apiGroup.GET("/users/:userId", userHandlers.GetUserHandler())

		apiGroup.GET("/organisations", orgHandlers.ListOrganisationsHandler())
		apiGroup.POST("/organisations", orgHandlers.CreateOrganisationHandler())
		apiGroup.GET("/organisations/:orgId", orgHandlers.GetOrganisationHandler())
		apiGroup.POST("/organisations/:orgId/users", orgHandlers.AddMemberHandler())
		apiGroup.GET("/organisations/:orgId/users", orgHandlers.ListMembersHandler())
	}

	return router, bg, nil
}

// redisClient returns the shared Redis client, creating it on first use when the
// redis rate limiting backend is configured. It returns nil otherwise.
func (bg *BackgroundServices) redisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.Security.RateLimiting.Enabled || cfg.Security.RateLimiting.Backend != "redis" {
		return nil
	}
	if bg.redis == nil {
		bg.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return bg.redis
}

func newAuthLimiter(cfg *config.Config, bg *BackgroundServices) middleware.Limiter {
	limits := middleware.AuthRateLimitConfig()
	limits.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
	if cfg.Security.RateLimiting.Burst > 0 {
		limits.BurstSize = cfg.Security.RateLimiting.Burst
	}

	if rdb := bg.redisClient(cfg); rdb != nil {
		slog.Info("auth rate limiting enabled", "backend", "redis", "rpm", limits.RequestsPerMinute)
		return middleware.NewRedisRateLimiter(rdb, limits, "auth")
	}
	rl := middleware.NewRateLimiter(limits)
	bg.rateLimiters = append(bg.rateLimiters, rl)
	slog.Info("auth rate limiting enabled", "backend", "memory", "rpm", limits.RequestsPerMinute)
	return rl
}

// healthCheckHandler reports liveness along with database connectivity.
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler reports whether the service can take traffic. The database is
// always probed; Redis only when it backs the rate limiter.
func readinessHandler(db *sqlx.DB, rdb redis.UniversalClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		if err := db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
			notReady(c, checks, "database not ready")
			return
		}
		checks["database"] = "healthy"

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = "unhealthy"
				notReady(c, checks, "redis not ready")
				return
			}
			checks["redis"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func notReady(c *gin.Context, checks gin.H, msg string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"ready":  false,
		"checks": checks,
		"error":  msg,
	})
}

// versionHandler returns the service and API versions
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// String describes the background resources for startup logging.
func (bg *BackgroundServices) String() string {
	return fmt.Sprintf("rate_limiters=%d audit=%t redis=%t",
		len(bg.rateLimiters), bg.recorder != nil, bg.redis != nil)
}
