package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirestack/docflow/config"
	"github.com/hirestack/docflow/handler"
	"github.com/hirestack/docflow/middleware"
	"github.com/hirestack/docflow/pkg/logger"
	"github.com/hirestack/docflow/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	docusealSvc := service.NewDocusealService(&cfg.Docuseal)

	// Initialize stores
	service.InitDocumentStore(&cfg.Store)
	documentStore := service.GetDocumentStore()

	templateStore := service.GetTemplateStore()
	templateStore.SeedDefaults(&cfg.Docuseal, cfg.PDF.LogoURL)

	pdfSvc := service.NewPDFService(minioSvc, documentStore, templateStore, &cfg.PDF)
	submissionSvc := service.NewSubmissionService(documentStore, templateStore, docusealSvc)
	reconciler := service.NewReconciler(documentStore, docusealSvc, time.Duration(cfg.Docuseal.PollIntervalSeconds)*time.Second)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	documentHandler := handler.NewDocumentHandler(pdfSvc, submissionSvc, reconciler, minioSvc)
	webhookHandler := handler.NewWebhookHandler(&cfg.Docuseal, docusealSvc)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/webhooks/docuseal", webhookHandler.HandleWebhook)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/documents", documentHandler.Create)
		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/:kind/:id", documentHandler.Get)
		protected.POST("/documents/:kind/:id/pdf", documentHandler.GeneratePDF)
		protected.GET("/documents/:kind/:id/download", documentHandler.Download)
		protected.POST("/documents/:kind/:id/send", documentHandler.Send)
		protected.GET("/documents/:kind/:id/signature-status", documentHandler.SignatureStatus)
		protected.GET("/documents/:kind/:id/audit", documentHandler.Audit)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
