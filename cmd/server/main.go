package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cargolink/portal-backend/internal/config"
	"github.com/cargolink/portal-backend/internal/database"
	"github.com/cargolink/portal-backend/internal/handlers"
	"github.com/cargolink/portal-backend/internal/middleware"
	"github.com/cargolink/portal-backend/internal/models"
	"github.com/cargolink/portal-backend/internal/services"
	"github.com/cargolink/portal-backend/pkg/jwt"
	"github.com/cargolink/portal-backend/pkg/mail"
	"github.com/cargolink/portal-backend/pkg/objstore"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting CargoLink Document Verification Portal")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	logger.Info("Connecting to object storage...")
	store, err := objstore.NewClient(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize object storage: %v", err)
	}
	bucketCtx, cancelBuckets := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureBuckets(bucketCtx); err != nil {
		cancelBuckets()
		logger.Fatalf("Failed to prepare storage buckets: %v", err)
	}
	cancelBuckets()
	logger.Info("Object storage ready")

	// Mail gateway: production calls the mailer function, dev only logs
	var mailGateway mail.Sender
	if cfg.Mail.Mode == "production" {
		mailGateway = mail.NewHTTPGateway(mail.HTTPGatewayConfig{
			FunctionURL: cfg.Mail.FunctionURL,
			APIKey:      cfg.Mail.APIKey,
			FromAddress: cfg.Mail.FromAddress,
			FromName:    cfg.Mail.FromName,
		})
	} else {
		logger.Info("Mail gateway in development mode (no email will be sent)")
		mailGateway = mail.NewDevGateway()
	}
	logger.Infof("Mail gateway: %s", mailGateway.GetName())

	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	profileRepo := database.NewProfileRepository(db)
	vehicleRepo := database.NewVehicleRepository(db)
	documentRepo := database.NewDocumentRepository(db)
	invoiceRepo := database.NewInvoiceRepository(db)
	activationRepo := database.NewActivationRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	auditService := services.NewAuditService(db, cfg.Security.EnableAuditLog)
	notificationService := services.NewNotificationService(notificationRepo, mailGateway, cfg.Outbox)
	approvalService := services.NewApprovalService(db, vehicleRepo, documentRepo, profileRepo, notificationService)
	invoiceService := services.NewInvoiceService(db, invoiceRepo, vehicleRepo, profileRepo, notificationService)
	activationService := services.NewActivationService(db, activationRepo, profileRepo, notificationService)
	logger.Info("Services initialized")

	if err := notificationService.Start(); err != nil {
		logger.Fatalf("Failed to start notification dispatcher: %v", err)
	}
	logger.Info("Notification dispatcher started")

	authHandler := handlers.NewAuthHandler(profileRepo, jwtService, auditService, cfg)
	vehicleHandler := handlers.NewVehicleHandler(approvalService)
	documentHandler := handlers.NewDocumentHandler(approvalService, store, cfg)
	reviewHandler := handlers.NewReviewHandler(approvalService, auditService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, auditService, store, cfg)
	activationHandler := handlers.NewActivationHandler(activationService, auditService, store, cfg)
	adminHandler := handlers.NewAdminHandler(profileRepo, vehicleRepo, invoiceRepo, activationRepo, auditService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	{
		// Public routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
		}

		// Authenticated routes; activation is reachable for accounts
		// still waiting on approval
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(jwtService))
		{
			authed.GET("/profile", authHandler.GetProfile)
			authed.PUT("/profile", authHandler.UpdateProfile)
			authed.GET("/notifications", notificationHandler.ListNotifications)

			authed.POST("/activation", activationHandler.Submit)
			authed.GET("/activation", activationHandler.Status)
		}

		// Customer workflow routes, active accounts only
		active := v1.Group("")
		active.Use(middleware.AuthMiddleware(jwtService))
		active.Use(middleware.RequireActiveAccount())
		{
			active.POST("/vehicles", vehicleHandler.RegisterVehicle)
			active.GET("/vehicles", vehicleHandler.ListVehicles)
			active.GET("/vehicles/:id", vehicleHandler.GetVehicle)
			active.POST("/vehicles/:id/submit", vehicleHandler.SubmitVehicle)
			active.GET("/vehicles/:id/documents", vehicleHandler.ListVehicleDocuments)
			active.POST("/vehicles/:id/documents", documentHandler.UploadDocument)
			active.GET("/documents/:id/download", documentHandler.DownloadDocument)
			active.DELETE("/documents/:id", documentHandler.DeleteDocument)

			active.POST("/vehicles/:id/invoice", invoiceHandler.RequestInvoice)
			active.GET("/invoices", invoiceHandler.ListInvoices)
			active.GET("/invoices/:id", invoiceHandler.GetInvoice)
			active.GET("/invoices/:id/download", invoiceHandler.DownloadInvoice)
		}

		// Staff review routes
		review := v1.Group("/review")
		review.Use(middleware.AuthMiddleware(jwtService))
		review.Use(middleware.RequireRole(string(models.RoleStaff), string(models.RoleAdmin)))
		{
			review.GET("/vehicles", reviewHandler.ListVehicles)
			review.GET("/vehicles/:id", reviewHandler.GetVehicle)
			review.POST("/vehicles/:id/decision", reviewHandler.DecideVehicle)
			review.POST("/documents/:id", reviewHandler.ReviewDocument)

			review.GET("/invoices", invoiceHandler.ListByStatus)
			review.POST("/invoices/:id/processing", invoiceHandler.MarkProcessing)
			review.POST("/invoices/:id/issue", invoiceHandler.Issue)
			review.POST("/vehicles/:id/invoice", invoiceHandler.IssueDirect)

			review.GET("/activations", activationHandler.ListPending)
			review.GET("/activations/:id/files/:kind", activationHandler.DownloadFile)
			review.POST("/activations/:id", activationHandler.Review)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireRole(string(models.RoleAdmin)))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/role", adminHandler.UpdateRole)
			admin.PUT("/users/:id/status", adminHandler.UpdateAccountStatus)
			admin.GET("/dashboard", adminHandler.Dashboard)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping notification dispatcher...")
	notificationService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger logs every HTTP request with latency and user context
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
			fields["role"] = userCtx.Role
		}

		entry := logger.WithFields(fields)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed")
		}
	}
}

// healthCheckHandler reports service and database health
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
