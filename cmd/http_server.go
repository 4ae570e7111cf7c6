package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/asset"
	"github.com/frahmantamala/asset-attestation/internal/attestation"
	"github.com/frahmantamala/asset-attestation/internal/auth"
	"github.com/frahmantamala/asset-attestation/internal/company"
	"github.com/frahmantamala/asset-attestation/internal/transport"
	"github.com/frahmantamala/asset-attestation/internal/transport/rest"
	"github.com/frahmantamala/asset-attestation/internal/transport/swagger"
	"github.com/frahmantamala/asset-attestation/internal/user"
	"github.com/frahmantamala/asset-attestation/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Services *services
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepRevokedTokens(sweepCtx, deps.Services.Auth, deps.Logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			stopSweep()
			deps.Services.Close()
			os.Exit(1)
		}
	}

	stopSweep()
	deps.Services.Close()
	if err := deps.DB.Close(); err != nil {
		deps.Logger.Error("Database close error", "error", err)
	}

	deps.Logger.Info("Server stopped")
}

// sweepRevokedTokens drops expired logout revocations once a minute.
func sweepRevokedTokens(ctx context.Context, authService *auth.Service, log *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := authService.SweepRevoked(); n > 0 {
				log.Debug("swept revoked tokens", "count", n)
			}
		}
	}
}

func setupRoutes(deps *Dependencies) {
	svc := deps.Services

	opts := rest.Options{AllowedOrigins: deps.Config.Server.AllowedOrigins}
	if path := deps.Config.Server.OpenAPIPath; path != "" {
		doc, err := swagger.LoadSpec(path)
		if err != nil {
			deps.Logger.Warn("openapi spec not served", "error", err)
		} else {
			opts.OpenAPI = doc
		}
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, rest.Handlers{
		Auth:        auth.NewHandler(svc.Auth),
		RBAC:        auth.NewRBACAuthorization(deps.Logger),
		User:        user.NewHandler(svc.User),
		Company:     company.NewHandler(transport.NewBaseHandler(deps.Logger), svc.Company),
		Asset:       asset.NewHandler(svc.Asset),
		Attestation: attestation.NewHandler(svc.Attestation),
	}, opts, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, db, gdb, err := openStore()
	if err != nil {
		return nil, err
	}

	log := logger.LoggerWrapper()
	svc, err := buildServices(config, gdb, log, false)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   chi.NewRouter(),
		Services: svc,
		Logger:   log,
	}, nil
}
