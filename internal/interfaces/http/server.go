// Package http provides the HTTP adapter for the application layer.
// This is a thin adapter that translates HTTP requests to engine and
// service calls; it holds no workflow rules of its own.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procurehub/purchase-workflow/internal/application/service"
	appworkflow "github.com/procurehub/purchase-workflow/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine

	engine    appworkflow.WorkflowEngine
	queries   service.QueryService
	audit     service.AuditTrail
	threshold service.ThresholdPolicy
	directory service.ManagerDirectory
	reports   service.ReportService
	logger    Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	engine appworkflow.WorkflowEngine,
	queries service.QueryService,
	audit service.AuditTrail,
	threshold service.ThresholdPolicy,
	directory service.ManagerDirectory,
	reports service.ReportService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:    config,
		router:    router,
		engine:    engine,
		queries:   queries,
		audit:     audit,
		threshold: threshold,
		directory: directory,
		reports:   reports,
		logger:    logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.engine, s.queries, s.audit, s.threshold, s.directory, s.reports, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// API routes
	api := s.router.Group("/api")
	{
		// Requests
		api.POST("/requests", handlers.CreateRequest)
		api.GET("/requests", handlers.ListRequests)
		api.GET("/requests/:id", handlers.GetRequest)
		api.GET("/requests/:id/history", handlers.GetHistory)

		// Workflow transitions
		api.POST("/requests/:id/approve", handlers.ApproveManagerStage)
		api.POST("/requests/:id/reject", handlers.RejectManagerStage)
		api.POST("/requests/:id/procurement/approve", handlers.ApproveProcurement)
		api.POST("/requests/:id/procurement/reject", handlers.RejectProcurement)
		api.POST("/requests/:id/procurement/alternative-vendor", handlers.RequestAlternativeVendor)
		api.POST("/requests/:id/finance/approve", handlers.ApproveFinance)
		api.POST("/requests/:id/finance/reject", handlers.RejectFinance)
		api.POST("/requests/:id/payment-letter", handlers.SubmitPaymentLetter)
		api.POST("/requests/:id/payment/confirm", handlers.ConfirmPayment)
		api.POST("/requests/:id/delivery/confirm", handlers.ConfirmDelivery)
		api.POST("/requests/:id/cancel", handlers.CancelRequest)

		// Work queues
		api.GET("/queues/roles/:role", handlers.PendingForRole)
		api.GET("/queues/managers/:managerID", handlers.PendingForManager)

		// Dashboard and reports
		api.GET("/dashboard", handlers.Dashboard)
		api.POST("/reports/register", handlers.ExportRegister)

		// Administration
		admin := api.Group("/admin")
		{
			admin.GET("/threshold", handlers.GetThreshold)
			admin.PUT("/threshold", handlers.SetThreshold)
			admin.GET("/managers", handlers.ListManagers)
			admin.POST("/managers", handlers.RegisterManager)
		}
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
