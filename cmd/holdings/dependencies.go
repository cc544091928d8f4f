package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/export"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/handler"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/notify"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/repository"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/service"
	"github.com/FACorreiaa/holdings-extractor/pkg/config"
	"github.com/FACorreiaa/holdings-extractor/pkg/db"
	"github.com/FACorreiaa/holdings-extractor/pkg/metrics"
	"github.com/FACorreiaa/holdings-extractor/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	SQLite *db.SQLite
	Logger *slog.Logger

	// Repositories
	StatementRepo repository.StatementRepository

	// Services
	FileStorage      storage.Storage
	Metrics          *metrics.Metrics
	Notifier         *notify.Notifier
	StatementService *service.Service

	// Handlers
	StatementHandler *handler.StatementHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		slog.String("db_driver", cfg.Database.Driver))

	return deps, nil
}

// initDatabase opens the configured database and runs migrations
func (d *Dependencies) initDatabase() error {
	switch d.Config.Database.Driver {
	case config.DriverPostgres:
		database, err := db.New(db.Config{
			DSN:             d.Config.Database.DSN(),
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: 5 * time.Minute,
			MaxConnIdleTime: 10 * time.Minute,
		}, d.Logger)
		if err != nil {
			return err
		}
		d.DB = database

		if err := d.DB.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

	case config.DriverSQLite:
		database, err := db.OpenSQLite(d.Config.Database.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.SQLite = database

		if err := d.SQLite.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

	default:
		d.Logger.Info("no database configured, statements are kept in memory only")
		return nil
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes the repository layer
func (d *Dependencies) initRepositories() {
	switch {
	case d.DB != nil:
		d.StatementRepo = repository.NewPostgresRepository(d.DB.Pool)
	case d.SQLite != nil:
		d.StatementRepo = repository.NewSQLiteRepository(d.SQLite.DB)
	}
}

// initServices initializes storage, metrics, notifications and the
// statement service
func (d *Dependencies) initServices() error {
	fileStorage, err := storage.New(&storage.Config{
		Type:      storage.StorageType(d.Config.Storage.Type),
		LocalPath: d.Config.Storage.LocalPath,
	})
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	d.FileStorage = fileStorage

	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New()
	}

	d.Notifier = notify.New(notify.Config{
		APIKey: d.Config.Notify.ResendAPIKey,
		From:   d.Config.Notify.FromEmail,
		To:     d.Config.Notify.To,
	}, d.Logger)

	extractCfg, err := extractorConfig(d.Config)
	if err != nil {
		return err
	}

	opts := []service.Option{
		service.WithStorage(d.FileStorage),
		service.WithNotifier(d.Notifier),
		service.WithCacheTTL(d.Config.Cache.TTL),
	}
	if d.StatementRepo != nil {
		opts = append(opts, service.WithRepository(d.StatementRepo))
	}
	if d.Metrics != nil {
		opts = append(opts, service.WithMetrics(d.Metrics))
	}
	d.StatementService = service.NewService(extractCfg, d.Logger, opts...)
	return nil
}

// initHandlers initializes the HTTP handlers
func (d *Dependencies) initHandlers() {
	d.StatementHandler = handler.NewStatementHandler(d.StatementService, d.Logger, export.FormatJSON, export.FormatCSV)
}

// Close releases database connections.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.SQLite != nil {
		if err := d.SQLite.Close(); err != nil {
			d.Logger.Warn("failed to close sqlite database", slog.Any("error", err))
		}
	}
}

// extractorConfig maps the EXTRACT_* settings onto the parser config.
func extractorConfig(cfg *config.Config) (parser.Config, error) {
	policy, err := parser.ParseContinuationPolicy(cfg.Extract.Continuation)
	if err != nil {
		return parser.Config{}, err
	}

	pc := parser.DefaultConfig()
	pc.YPrecision = cfg.Extract.YPrecision
	pc.Continuation = policy
	pc.ResetSectionPerPage = cfg.Extract.ResetSectionPerPage
	pc.Pages = cfg.Extract.Pages
	return pc, nil
}
