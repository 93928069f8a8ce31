// Package container provides dependency injection and lifecycle management
// for the claimflow workflow services.
package container

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/dispatcher"
	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/application/service"
	"github.com/garyjia/claimflow/internal/application/workflow"
	"github.com/garyjia/claimflow/internal/config"
	"github.com/garyjia/claimflow/internal/infrastructure/export"
	infraLark "github.com/garyjia/claimflow/internal/infrastructure/external/lark"
	infraRedis "github.com/garyjia/claimflow/internal/infrastructure/external/redis"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/memory"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/claimflow/internal/infrastructure/storage"
	"github.com/garyjia/claimflow/migrations"
	"github.com/garyjia/claimflow/pkg/database"
	"github.com/garyjia/claimflow/pkg/utils"
)

// DatabaseBundle holds the store behind every repository port
type DatabaseBundle struct {
	SQL            *database.DB // nil for the memory driver
	TransactionMgr port.TransactionManager
	Repositories   *RepositoryBundle
}

// PublisherBundle holds the optional outbound change signal publishers
type PublisherBundle struct {
	Publishers  []port.ChangePublisher
	RedisClient *goredis.Client
}

// ProvideDatabase opens the configured store and returns its repositories.
// For sqlite, pending migrations run when AutoMigrate is set.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		return &DatabaseBundle{
			TransactionMgr: store,
			Repositories: &RepositoryBundle{
				Claims:         store.Claims(),
				Payments:       store.Payments(),
				Vendors:        store.Vendors(),
				ChangeRequests: store.ChangeRequests(),
				Actors:         store.Actors(),
			},
		}, nil

	case config.DriverSQLite:
		pdb, err := database.New(database.Config{
			Path:            cfg.Path,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}

		if cfg.AutoMigrate {
			if _, err := database.NewMigrator(pdb, logger).Run(migrations.FS); err != nil {
				_ = pdb.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		db := sqlite.NewDB(pdb.DB, logger)
		return &DatabaseBundle{
			SQL:            pdb,
			TransactionMgr: db,
			Repositories:   ProvideRepositories(db, logger),
		}, nil
	}

	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// ProvideRepositories creates all sqlite repositories
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) *RepositoryBundle {
	return &RepositoryBundle{
		Claims:         repository.NewClaimRepository(db, logger),
		Payments:       repository.NewPaymentRepository(db, logger),
		Vendors:        repository.NewVendorRepository(db, logger),
		ChangeRequests: repository.NewChangeRequestRepository(db, logger),
		Actors:         repository.NewActorRepository(db, logger),
	}
}

// ProvideStorage creates the attachment store for the configured driver
func ProvideStorage(cfg *config.StorageConfig, logger *zap.Logger) (port.AttachmentStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case config.StorageLocal:
		return storage.NewLocalAttachmentStore(cfg.BaseDir, logger), nil

	case config.StorageS3:
		client, err := storage.NewS3Client(storage.S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			Prefix:          cfg.Prefix,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3AttachmentStore(client, cfg.Bucket, cfg.Prefix, logger), nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// ProvidePublishers creates the enabled redis and lark publishers
func ProvidePublishers(redisCfg *config.RedisConfig, larkCfg *config.LarkConfig, logger *zap.Logger) *PublisherBundle {
	bundle := &PublisherBundle{}

	if redisCfg != nil && redisCfg.Enabled {
		client := infraRedis.NewClient(infraRedis.Config{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Prefix:   redisCfg.Prefix,
		})
		bundle.RedisClient = client
		bundle.Publishers = append(bundle.Publishers, infraRedis.NewPublisher(client, redisCfg.Prefix, logger))
		logger.Info("Redis change publisher enabled", zap.String("addr", redisCfg.Addr))
	}

	if larkCfg != nil && larkCfg.Enabled {
		client := infraLark.NewClient(infraLark.Config{
			AppID:     larkCfg.AppID,
			AppSecret: larkCfg.AppSecret,
			ChatID:    larkCfg.ChatID,
		})
		bundle.Publishers = append(bundle.Publishers, infraLark.NewNotifier(client.Im.Message, larkCfg.ChatID, logger))
		logger.Info("Lark finance notifier enabled", zap.String("chat_id", larkCfg.ChatID))
	}

	return bundle
}

// ProvideDispatcher creates the event dispatcher and subscribes a relay over publishers
func ProvideDispatcher(publishers []port.ChangePublisher, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	kv := utils.NewKVLogger(logger)
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(kv))
	if len(publishers) > 0 {
		d.SubscribeAll(service.NewSignalRelay(kv, publishers...))
	}
	return d, nil
}

// ServiceDeps holds dependencies required for creating services
type ServiceDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	Attachments port.AttachmentStore
	Dispatcher  dispatcher.Dispatcher
	CompanyName string
	Logger      *zap.Logger
}

// ProvideServices creates the claim engine and all application services
func ProvideServices(deps *ServiceDeps) (workflow.ClaimEngine, *ServiceBundle, error) {
	if deps == nil {
		return nil, nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, nil, fmt.Errorf("logger is required")
	}

	kv := utils.NewKVLogger(deps.Logger)

	engine := workflow.NewEngine(
		deps.Repos.Claims,
		deps.Repos.Actors,
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(kv),
	)

	services := &ServiceBundle{
		Claims: service.NewClaimService(
			deps.Repos.Claims,
			deps.Repos.Actors,
			deps.TxManager,
			engine,
			deps.Attachments,
			deps.Dispatcher,
			kv,
		),
		Payments: service.NewPaymentService(
			deps.Repos.Claims,
			deps.Repos.Payments,
			deps.Repos.Actors,
			deps.TxManager,
			engine,
			export.NewPaymentSheet(deps.CompanyName, deps.Logger),
			deps.Dispatcher,
			kv,
		),
		Vendors: service.NewVendorService(
			deps.Repos.Vendors,
			deps.Repos.ChangeRequests,
			deps.TxManager,
			deps.Dispatcher,
			kv,
		),
	}

	return engine, services, nil
}
