package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	accessapp "github.com/opsmatrix/governance/internal/application/access"
	approvalapp "github.com/opsmatrix/governance/internal/application/approval"
	governanceapp "github.com/opsmatrix/governance/internal/application/governance"
	limitsapp "github.com/opsmatrix/governance/internal/application/limits"
	stockapp "github.com/opsmatrix/governance/internal/application/stock"
	"github.com/opsmatrix/governance/internal/domain/limits"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/infrastructure/cache"
	"github.com/opsmatrix/governance/internal/infrastructure/config"
	"github.com/opsmatrix/governance/internal/infrastructure/logger"
	"github.com/opsmatrix/governance/internal/infrastructure/persistence"
	"github.com/opsmatrix/governance/internal/interfaces/http/handler"
	"github.com/opsmatrix/governance/internal/interfaces/http/middleware"
	"github.com/opsmatrix/governance/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting governance engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	// Grant cache: redis when reachable, in-process otherwise
	var grantCache accessapp.GrantCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unreachable, using in-process grant cache", zap.Error(err))
		grantCache = cache.NewInMemoryGrantCache(cfg.Access.GrantCacheTTL)
	} else {
		grantCache = cache.NewRedisGrantCache(redisClient, cfg.Access.GrantCacheTTL)
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
	}

	// Repositories
	ruleRepo := persistence.NewGormRuleRepository(db.DB)
	requestRepo := persistence.NewGormRequestRepository(db.DB)
	workflowRepo := persistence.NewGormWorkflowRepository(db.DB)
	personaRepo := persistence.NewGormPersonaRepository(db.DB)
	branchRepo := persistence.NewGormBranchRepository(db.DB)
	unitRepo := persistence.NewGormBusinessUnitRepository(db.DB)
	scopedRuleRepo := persistence.NewGormScopedRuleRepository(db.DB)
	quantRepo := persistence.NewGormStockQuantRepository(db.DB)
	auditSink := persistence.NewGormAuditSink(db.DB, log)
	directory := persistence.NewGormPrincipalDirectory(db.DB)
	recordGateway := persistence.NewGormRecordGateway(db.DB, log)

	// Domain resolvers
	accessResolver := matrix.NewAccessResolver(unitRepo)
	limitsResolver := limits.NewResolver(scopedRuleRepo)

	// Application services
	accessService := accessapp.NewService(accessResolver, grantCache, log)
	limitsService := limitsapp.NewService(
		limitsResolver, requestRepo, directory, accessResolver, auditSink, log)
	stockService := stockapp.NewService(quantRepo, accessService, log)
	approvalService := approvalapp.NewService(
		requestRepo, workflowRepo, directory, accessResolver, recordGateway, auditSink, log)
	enforcementService := governanceapp.NewEnforcementService(
		ruleRepo, requestRepo, workflowRepo, personaRepo, directory, accessResolver, auditSink, log)

	// HTTP handlers
	enforcementHandler := handler.NewEnforcementHandler(enforcementService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	ruleHandler := handler.NewRuleHandler(ruleRepo)
	limitsHandler := handler.NewLimitsHandler(limitsService, limitsResolver)
	accessHandler := handler.NewAccessHandler(accessService)
	stockHandler := handler.NewStockHandler(stockService)
	matrixHandler := handler.NewMatrixHandler(branchRepo, unitRepo)
	auditHandler := handler.NewAuditHandler(auditSink)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	// Health check endpoint, outside API versioning and authentication
	engine.GET("/health", healthHandler(db))

	// Every API route requires an authenticated principal
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.AuthMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer))
	r.Register(enforcementHandler).
		Register(approvalHandler).
		Register(ruleHandler).
		Register(limitsHandler).
		Register(accessHandler).
		Register(stockHandler).
		Register(matrixHandler).
		Register(auditHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness plus database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
