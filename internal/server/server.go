package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/umuco/heritage-gateway/internal/config"
	"github.com/umuco/heritage-gateway/internal/entitlement"
	"github.com/umuco/heritage-gateway/internal/gate"
	"github.com/umuco/heritage-gateway/internal/handler"
	"github.com/umuco/heritage-gateway/internal/metrics"
	"github.com/umuco/heritage-gateway/internal/middleware"
	"github.com/umuco/heritage-gateway/internal/ratelimit"
	"github.com/umuco/heritage-gateway/internal/repository"
	"github.com/umuco/heritage-gateway/internal/service"
	"github.com/umuco/heritage-gateway/internal/storage"
	"github.com/umuco/heritage-gateway/internal/upstream"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   zerolog.Logger
	redis    *storage.RedisClient
	postgres *storage.Postgres

	governor  *ratelimit.Governor
	fallback  *ratelimit.MemoryBackend
	resolver  *entitlement.Resolver
	gate      *gate.Gate
	metrics   *metrics.Metrics
	aiPool    *upstream.Pool
	reqLogger *middleware.RequestLogger

	authHandler      *handler.AuthHandler
	storyHandler     *handler.StoryHandler
	codeHandler      *handler.AccessCodeHandler
	webhookHandler   *handler.WebhookHandler
	analyticsHandler *handler.AnalyticsHandler

	httpServer *http.Server
	startTime  time.Time
}

func New(cfg *config.Config, logger zerolog.Logger, redis *storage.RedisClient, postgres *storage.Postgres) (*Server, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()

	// Rate governor: shared Redis counter with an in-process fallback,
	// constructed once and injected into the middleware.
	fallback := ratelimit.NewMemoryBackend(time.Duration(cfg.RateLimit.FallbackSweepSeconds) * time.Second)
	governor := ratelimit.NewGovernor(ratelimit.GovernorConfig{
		Policies:     ratelimit.NewPolicyTable(policyOverrides(cfg)),
		Primary:      ratelimit.NewRedisBackend(redis),
		Fallback:     fallback,
		StoreTimeout: time.Duration(cfg.RateLimit.StoreTimeoutMs) * time.Millisecond,
		Logger:       logger,
		Metrics:      m,
	})

	userRepo := repository.NewUserRepository(postgres)
	storyRepo := repository.NewStoryRepository(postgres)
	codeRepo := repository.NewAccessCodeRepository(postgres)
	entitlementRepo := repository.NewEntitlementRepository(postgres)
	requestLogRepo := repository.NewRequestLogRepository(postgres)

	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.ExpiryHours)
	codeService := service.NewAccessCodeService(codeRepo)
	analyticsService := service.NewAnalyticsService(requestLogRepo)

	resolver := entitlement.NewResolver(
		entitlementRepo,
		time.Duration(cfg.Entitlement.LookupTimeoutMs)*time.Millisecond,
		logger,
		m,
	)

	contentGate := gate.New(cfg.Gate.PreviewCharBudget)

	var aiPool *upstream.Pool
	if len(cfg.AI.Targets) > 0 {
		pool, err := upstream.NewPool(upstream.Config{
			Targets: cfg.AI.Targets,
			Health: upstream.HealthConfig{
				Endpoint: cfg.AI.HealthEndpoint,
				Interval: time.Duration(cfg.AI.HealthIntervalSeconds) * time.Second,
			},
		}, logger)
		if err != nil {
			return nil, err
		}
		aiPool = pool
	}

	s := &Server{
		router:           gin.New(),
		config:           cfg,
		logger:           logger,
		redis:            redis,
		postgres:         postgres,
		governor:         governor,
		fallback:         fallback,
		resolver:         resolver,
		gate:             contentGate,
		metrics:          m,
		aiPool:           aiPool,
		reqLogger:        middleware.NewRequestLogger(requestLogRepo, 1000, logger),
		authHandler:      handler.NewAuthHandler(authService),
		storyHandler:     handler.NewStoryHandler(storyRepo, resolver, contentGate, m),
		codeHandler:      handler.NewAccessCodeHandler(codeService),
		webhookHandler:   handler.NewWebhookHandler(userRepo, logger),
		analyticsHandler: handler.NewAnalyticsHandler(analyticsService),
		startTime:        time.Now(),
	}

	s.setupMiddleware(authService)
	s.setupRoutes()

	return s, nil
}

func policyOverrides(cfg *config.Config) map[string]ratelimit.Policy {
	overrides := make(map[string]ratelimit.Policy, len(cfg.RateLimit.Policies))
	for name, p := range cfg.RateLimit.Policies {
		overrides[name] = ratelimit.Policy{
			Window: time.Duration(p.WindowSeconds) * time.Second,
			Max:    p.MaxRequests,
		}
	}
	return overrides
}

func (s *Server) setupMiddleware(authService *service.AuthService) {
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Identity(authService))
	s.router.Use(middleware.RateLimit(s.governor))
	s.router.Use(s.reqLogger.Middleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/auth/register", s.authHandler.Register)
		api.POST("/auth/login", s.authHandler.Login)
		api.POST("/auth/password-reset", s.authHandler.PasswordReset)

		api.POST("/webhooks/payments", s.webhookHandler.Payments)

		api.GET("/stories", s.storyHandler.List)
		api.GET("/stories/:id", s.storyHandler.Get)

		api.GET("/me", middleware.RequireAuth(), s.authHandler.Me)

		api.POST("/codes/redeem", middleware.RequireAuth(), s.codeHandler.Redeem)

		if s.aiPool != nil {
			api.Any("/ai/*proxyPath", s.aiPool.Handle)
		}
	}

	admin := s.router.Group("/admin")
	admin.Use(middleware.RequireAuth(), middleware.RequireRole("admin"))
	{
		admin.GET("/status", s.adminStatus)
		admin.GET("/analytics", s.analyticsHandler.Summary)
		admin.GET("/logs", s.analyticsHandler.Logs)
		admin.POST("/codes", s.codeHandler.Issue)
		admin.GET("/codes", s.codeHandler.List)
		admin.POST("/stories", s.storyHandler.Create)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		s.logger.Warn().Err(err).Msg("redis health check failed")
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		s.logger.Warn().Err(err).Msg("database health check failed")
	}

	aiHealthy := true
	if s.aiPool != nil {
		aiHealthy = s.aiPool.Healthy()
	}

	status := "healthy"
	statusCode := http.StatusOK

	// Redis being down is degraded, not unhealthy: the in-process
	// fallback keeps rate limiting working on this instance.
	if !redisHealthy || !aiHealthy {
		status = "degraded"
	}
	if !dbHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "heritage-gateway",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
			"ai":       aiHealthy,
		},
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	status := gin.H{
		"gateway":          "running",
		"uptime":           time.Since(s.startTime).Seconds(),
		"fallback_windows": s.fallback.Len(),
		"timestamp":        time.Now().Unix(),
	}

	if s.aiPool != nil {
		status["ai_healthy"] = s.aiPool.Healthy()
		status["ai_breaker"] = s.aiPool.BreakerState().String()
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	s.logger.Info().
		Str("addr", addr).
		Str("environment", s.config.Server.Environment).
		Msg("starting heritage gateway")

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.fallback.Close()
	s.reqLogger.Close()
	if s.aiPool != nil {
		s.aiPool.Close()
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
