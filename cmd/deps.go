package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/asset"
	assetPostgres "github.com/frahmantamala/asset-attestation/internal/asset/postgres"
	"github.com/frahmantamala/asset-attestation/internal/attestation"
	attestationPostgres "github.com/frahmantamala/asset-attestation/internal/attestation/postgres"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	auditPostgres "github.com/frahmantamala/asset-attestation/internal/audit/postgres"
	"github.com/frahmantamala/asset-attestation/internal/auth"
	authPostgres "github.com/frahmantamala/asset-attestation/internal/auth/postgres"
	"github.com/frahmantamala/asset-attestation/internal/company"
	companyPostgres "github.com/frahmantamala/asset-attestation/internal/company/postgres"
	"github.com/frahmantamala/asset-attestation/internal/core/events"
	"github.com/frahmantamala/asset-attestation/internal/core/keystore"
	"github.com/frahmantamala/asset-attestation/internal/notification"
	"github.com/frahmantamala/asset-attestation/internal/scheduler"
	"github.com/frahmantamala/asset-attestation/internal/user"
	userPostgres "github.com/frahmantamala/asset-attestation/internal/user/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// services is the wired object graph shared by the server, scheduler and admin commands.
type services struct {
	Auth        *auth.Service
	User        *user.Service
	Company     *company.Service
	Asset       *asset.Service
	Attestation *attestation.Service
	Scheduler   *scheduler.Scheduler
	EventBus    *events.EventBus
	Dispatcher  *notification.Dispatcher
}

// Close gives queued notifications a few seconds to go out, then stops the workers.
func (s *services) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.Dispatcher.Drain(ctx)
	s.Dispatcher.Shutdown()
}

// syncPublisher runs event handlers before Publish returns. Short-lived commands
// use it so their notifications are queued before the process exits.
type syncPublisher struct {
	bus *events.EventBus
}

func (p syncPublisher) Publish(ctx context.Context, event events.Event) error {
	return p.bus.PublishSync(ctx, event)
}

func buildServices(cfg *internal.Config, db *gorm.DB, logger *slog.Logger, syncEvents bool) (*services, error) {
	auditLogger := audit.NewService(auditPostgres.NewAuditRepository(db), logger)

	userRepo := userPostgres.NewUserRepository(db)
	assetRepo := assetPostgres.NewAssetRepository(db)
	attestationRepo := attestationPostgres.NewAttestationRepository(db)

	transport := notification.NewTransport(cfg.Notification, logger)
	mailer, err := notification.NewMailer(transport, cfg.Notification.From, cfg.Notification.AppBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build mailer: %w", err)
	}
	dispatcher := notification.NewDispatcher(cfg.Notification.Workers, cfg.Notification.QueueSize, logger)

	eventBus := events.NewEventBus(logger)
	notification.NewEventHandler(mailer, dispatcher, logger).RegisterEventHandlers(eventBus)

	authService := auth.NewService(
		authPostgres.NewRepository(db),
		auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration, cfg.Security.RefreshTokenDuration),
		keystore.New[time.Time](nil),
		cfg.Security.BCryptCost,
		logger,
	)

	var publisher attestation.EventPublisher = eventBus
	if syncEvents {
		publisher = syncPublisher{bus: eventBus}
	}

	attestationService := attestation.NewService(attestationRepo, userRepo, assetRepo, publisher, auditLogger, cfg.Attestation, logger)
	ownership := asset.NewOwnership(assetRepo, userRepo, auditLogger, logger)

	return &services{
		Auth:        authService,
		User:        user.NewService(userRepo, ownership, attestationService, authService, auditLogger, logger),
		Company:     company.NewService(companyPostgres.NewCompanyRepository(db), assetRepo, auditLogger, logger),
		Asset:       asset.NewService(assetRepo, userRepo, auditLogger, logger),
		Attestation: attestationService,
		Scheduler:   scheduler.New(attestationRepo, userRepo, assetRepo, mailer, auditLogger, logger),
		EventBus:    eventBus,
		Dispatcher:  dispatcher,
	}, nil
}

// initDB opens the pgx pool through sqlx and applies the pool limits.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm runs gorm on top of the existing pool so both share one set of connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gdb, nil
}

// openStore loads config and opens both database handles.
func openStore() (*internal.Config, *sqlx.DB, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return cfg, db, gdb, nil
}
