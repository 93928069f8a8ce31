// Package http provides the HTTP server adapter for the application layer.
// It translates HTTP requests to application service calls and nothing more.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthFunc reports overall health plus per-component detail
type HealthFunc func(ctx context.Context) (healthy bool, detail interface{})

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Services are the application services exposed over HTTP
type Services struct {
	Claims   service.ClaimService
	Payments service.PaymentService
	Vendors  service.VendorService
	Actors   port.ActorDirectory
	Health   HealthFunc
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server over services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		logger:   logger,
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

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"actor", c.GetHeader(ActorHeader),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, RequestIdentity{}, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	api.Use(IdentityMiddleware(s.services.Actors, s.logger))
	{
		api.GET("/me", h.Me)

		api.GET("/claims", h.ListClaims)
		api.POST("/claims", h.CreateClaim)
		api.GET("/claims/:id", h.GetClaim)
		api.PATCH("/claims/:id", h.EditClaim)
		api.DELETE("/claims/:id", h.DeleteClaim)
		api.GET("/claims/:id/history", h.ClaimHistory)
		api.GET("/claims/:id/triggers", h.AvailableTriggers)
		api.POST("/claims/:id/transitions", h.TransitionClaim)
		api.POST("/attachments", h.UploadAttachment)

		api.GET("/payments", h.ListPayments)
		api.POST("/payments", h.RunPayment)
		api.GET("/payments/:id", h.GetPayment)
		api.DELETE("/payments/:id", h.CancelPayment)
		api.GET("/payments/:id/export", h.ExportPayment)

		api.GET("/vendors", h.ListVendors)
		api.GET("/vendors/:id", h.GetVendor)
		api.GET("/vendor-requests", h.ListPendingRequests)
		api.POST("/vendor-requests", h.ProposeVendorChange)
		api.GET("/vendor-requests/:id", h.GetVendorRequest)
		api.GET("/vendor-requests/:id/diff", h.DiffVendorRequest)
		api.POST("/vendor-requests/:id/decision", h.DecideVendorRequest)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

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

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
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
