package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/dispatcher"
	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/application/service"
	"github.com/garyjia/claimflow/internal/application/workflow"
	"github.com/garyjia/claimflow/internal/config"
	"github.com/garyjia/claimflow/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *database.DB
	txManager    port.TransactionManager
	repositories *RepositoryBundle

	// Infrastructure - Storage and signals
	attachments port.AttachmentStore
	publishers  *PublisherBundle

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.ClaimEngine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access
type RepositoryBundle struct {
	Claims         port.ClaimRepository
	Payments       port.PaymentRepository
	Vendors        port.VendorRepository
	ChangeRequests port.ChangeRequestRepository
	Actors         port.ActorRepository
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Claims   service.ClaimService
	Payments service.PaymentService
	Vendors  service.VendorService
}

// HealthStatus represents the health of all components
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("driver", c.config.Database.Driver))

	if err := c.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage initialized", zap.String("driver", c.config.Storage.Driver))

	if err := c.initDispatcher(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.logger.Info("Dispatcher initialized", zap.Int("publishers", len(c.publishers.Publishers)))

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Waits for in-flight change signals before their publishers go away.
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.publishers != nil && c.publishers.RedisClient != nil {
		if err := c.publishers.RedisClient.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		} else {
			c.logger.Info("Redis client closed")
		}
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.repositories == nil:
		set("database", ComponentHealth{Healthy: false, Message: "not initialized"})
	case c.sqlDB == nil:
		set("database", ComponentHealth{Healthy: true, Message: "in-memory"})
	default:
		if err := c.sqlDB.PingContext(ctx); err != nil {
			set("database", ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	if c.publishers != nil && c.publishers.RedisClient != nil {
		if err := c.publishers.RedisClient.Ping(ctx).Err(); err != nil {
			// Signals are best effort, a dead broker does not fail the service.
			status.Components["redis"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
		} else {
			status.Components["redis"] = ComponentHealth{Healthy: true}
		}
	}

	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{Healthy: true})
	} else {
		set("dispatcher", ComponentHealth{Healthy: false, Message: "not initialized"})
	}

	if c.services != nil {
		set("services", ComponentHealth{Healthy: true})
	} else {
		set("services", ComponentHealth{Healthy: false, Message: "not initialized"})
	}

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = bundle.SQL
	c.txManager = bundle.TransactionMgr
	c.repositories = bundle.Repositories
	return nil
}

func (c *Container) initStorage() error {
	attachments, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.attachments = attachments
	return nil
}

func (c *Container) initDispatcher() error {
	c.publishers = ProvidePublishers(&c.config.Redis, &c.config.Lark, c.logger)

	disp, err := ProvideDispatcher(c.publishers.Publishers, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	return nil
}

func (c *Container) initServices() error {
	engine, services, err := ProvideServices(&ServiceDeps{
		Repos:       c.repositories,
		TxManager:   c.txManager,
		Attachments: c.attachments,
		Dispatcher:  c.dispatcher,
		CompanyName: c.config.Export.CompanyName,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}

	c.engine = engine
	c.services = services
	return nil
}

// Repositories returns all repositories
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Engine returns the claim engine
func (c *Container) Engine() workflow.ClaimEngine {
	return c.engine
}

// Services returns all application services
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration
func (c *Container) Config() *config.Config {
	return c.config
}
