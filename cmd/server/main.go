package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"schema-registry/internal/artifact"
	"schema-registry/internal/config"
	"schema-registry/internal/controller"
	"schema-registry/internal/middleware"
	"schema-registry/internal/migration"
	"schema-registry/internal/model"
	"schema-registry/internal/policy"
	"schema-registry/internal/repository"
	"schema-registry/internal/security"
	"schema-registry/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	logger := config.NewLogger(&cfg.Logging)

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize the bookkeeping database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database: ", err)
	}
	logger.Info("Database connection established")

	// Auto migrate the two owned tables
	if err := db.AutoMigrate(&model.SchemaRegistry{}, &model.SchemaAudit{}); err != nil {
		logger.WithError(err).Warn("Database migration failed, continuing with existing schema")
	}

	// Initialize repositories
	registryRepo := repository.NewSchemaRegistryRepository(db)
	auditRepo := repository.NewSchemaAuditRepository(db)

	// Initialize the core: policy rule set and DDL generator
	validator := policy.NewValidator()
	generator := migration.NewGenerator()

	// Optional artifact store for exporting generated migration files
	var artifacts *artifact.Store
	if cfg.Artifacts.Enabled {
		artifacts, err = artifact.NewStore(context.Background(), &artifact.Config{
			Endpoint:  cfg.Artifacts.Endpoint,
			AccessKey: cfg.Artifacts.AccessKey,
			SecretKey: cfg.Artifacts.SecretKey,
			Bucket:    cfg.Artifacts.Bucket,
			Region:    cfg.Artifacts.Region,
			UseSSL:    cfg.Artifacts.UseSSL,
			Prefix:    cfg.Artifacts.Prefix,
		})
		if err != nil {
			logger.Fatal("Failed to initialize artifact store: ", err)
		}
		logger.WithField("bucket", cfg.Artifacts.Bucket).Info("Artifact store enabled")
	}

	// Initialize security
	jwtManager := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
	authMiddleware := security.NewAuthMiddleware(jwtManager)

	// Initialize rate limiting
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPM:             cfg.Security.RateLimitPerMinute,
		Burst:           cfg.Security.RateLimitBurst,
		CleanupInterval: 5 * time.Minute,
	})

	// Initialize metrics
	middleware.InitMetrics()

	// Initialize the registry service
	registryService := service.NewSchemaRegistryService(
		registryRepo, auditRepo, validator, generator, artifacts, logger)

	// Initialize controllers
	registryController := controller.NewRegistryController(registryService)
	auditController := controller.NewAuditController(registryService)
	healthController := controller.NewHealthController(db)

	// Create Gin router
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.PrometheusMiddleware())

	// Operational endpoints (always available, non-versioned)
	router.GET("/health", healthController.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	api := router.Group("/api/v1")
	if cfg.Security.EnableRateLimit {
		api.Use(rateLimiter.RateLimit())
	}

	// Read endpoints (no authentication required)
	schemas := api.Group("/schemas")
	{
		schemas.POST("/validate", registryController.ValidateSchemaDefinition)
		schemas.GET("/requests", registryController.ListSchemaRequests)
		schemas.GET("/requests/stats", registryController.GetRegistryStats)
		schemas.GET("/requests/:id", registryController.GetSchemaRequest)
		schemas.GET("/requests/:id/migration", registryController.GenerateMigrationPreview)
		schemas.GET("/requests/by-table/:tableName", registryController.GetSchemaRequestByTableName)
	}

	audit := api.Group("/audit")
	{
		audit.GET("/:tableName", auditController.GetAuditHistory)
	}

	// Mutating endpoints (authentication required when enabled)
	mutating := api.Group("/schemas")
	if cfg.Security.EnableAuth {
		mutating.Use(authMiddleware.RequireAuth())
	}
	{
		mutating.POST("/requests", registryController.CreateSchemaRequest)
		mutating.PUT("/requests/:id/status", registryController.UpdateSchemaRequestStatus)
		mutating.POST("/requests/:id/approve", registryController.ApproveSchemaRequest)
		mutating.POST("/requests/:id/reject", registryController.RejectSchemaRequest)
		mutating.POST("/requests/:id/migrate", registryController.MarkSchemaRequestMigrated)
		mutating.POST("/requests/:id/export", registryController.ExportMigrationArtifacts)
	}

	// Start server
	logger.WithField("port", cfg.Server.Port).Info("Starting schema registry server")

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: ", err)
	}
}
