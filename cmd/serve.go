package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onemec/gmeet-slash-cmd/internal/auth"
	"github.com/onemec/gmeet-slash-cmd/internal/calendar"
	"github.com/onemec/gmeet-slash-cmd/internal/config"
	"github.com/onemec/gmeet-slash-cmd/internal/google"
	"github.com/onemec/gmeet-slash-cmd/internal/instrumentation"
	"github.com/onemec/gmeet-slash-cmd/internal/kv"
	"github.com/onemec/gmeet-slash-cmd/internal/logging"
	"github.com/onemec/gmeet-slash-cmd/internal/server"
)

// serveFlags mirrors the settings that can be overridden on the command line.
type serveFlags struct {
	debug bool

	httpAddr           string
	publicBaseURL      string
	googleClientID     string
	googleClientSecret string
	googleRedirectURL  string

	storageType      string
	storageKeyPrefix string
	redisURL         string
	valkeyURL        string
	valkeyPassword   string
	valkeyTLS        bool
	valkeyDB         int
	sqlitePath       string
	databaseURL      string

	metricsEnabled bool
	metricsAddr    string

	logLevel  string
	logFormat string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the slash command HTTP server",
		Long: `Start the HTTP server answering the Slack /meet slash command.

Endpoints:
  POST /create    Slack slash command request URL
  GET  /auth      Link shown to users who have not granted access yet
  GET  /callback  Google OAuth redirect URL
  GET  /healthz, /readyz

Required configuration:
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URL
  PUBLIC_BASE_URL (host serving /auth, e.g. meet.example.com)

Storage (STORAGE_TYPE):
  memory    Records are lost on restart (default, development only)
  redis     REDIS_URL, e.g. redis://redis:6379/0
  valkey    VALKEY_URL, VALKEY_PASSWORD, VALKEY_TLS_ENABLED, VALKEY_DB
  sqlite    SQLITE_PATH
  postgres  DATABASE_URL

Flags take precedence over environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, flags, &cfg)
			cfg.Instrumentation.ServiceVersion = version

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServe(ctx, cfg)
		},
	}

	flags.register(cmd)

	return cmd
}

// register binds the flags to cmd.
func (f *serveFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging. Same as --log-level=debug.")
	fs.StringVar(&f.httpAddr, "http-addr", ":8080", "HTTP server address. Can also use HTTP_ADDR env var.")
	fs.StringVar(&f.publicBaseURL, "public-base-url", "", "Public host serving /auth, used in the authorization prompt. Can also use PUBLIC_BASE_URL env var.")
	fs.StringVar(&f.googleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	fs.StringVar(&f.googleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	fs.StringVar(&f.googleRedirectURL, "google-redirect-url", "", "Google OAuth redirect URL pointing at /callback. Can also use GOOGLE_REDIRECT_URL env var.")

	fs.StringVar(&f.storageType, "storage-type", string(kv.StorageTypeMemory), "Storage type: memory, redis, valkey, sqlite or postgres. Can also use STORAGE_TYPE env var.")
	fs.StringVar(&f.storageKeyPrefix, "storage-key-prefix", "gmeet:", "Key prefix for redis and valkey storage. Can also use STORAGE_KEY_PREFIX env var.")
	fs.StringVar(&f.redisURL, "redis-url", "", "Redis URL (e.g., redis://redis:6379/0). Can also use REDIS_URL env var.")
	fs.StringVar(&f.valkeyURL, "valkey-url", "", "Valkey server address (e.g., valkey.namespace.svc:6379). Can also use VALKEY_URL env var.")
	fs.StringVar(&f.valkeyPassword, "valkey-password", "", "Valkey authentication password. Can also use VALKEY_PASSWORD env var.")
	fs.BoolVar(&f.valkeyTLS, "valkey-tls", false, "Enable TLS for Valkey connections. Can also use VALKEY_TLS_ENABLED env var.")
	fs.IntVar(&f.valkeyDB, "valkey-db", 0, "Valkey database number. Can also use VALKEY_DB env var.")
	fs.StringVar(&f.sqlitePath, "sqlite-path", "", "SQLite database file. Can also use SQLITE_PATH env var.")
	fs.StringVar(&f.databaseURL, "database-url", "", "PostgreSQL connection string. Can also use DATABASE_URL env var.")

	fs.BoolVar(&f.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	fs.StringVar(&f.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	fs.StringVar(&f.logFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
}

// applyFlagOverrides copies explicitly set flags over the environment
// configuration. Flags left at their defaults do not override anything.
func applyFlagOverrides(cmd *cobra.Command, flags serveFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("http-addr") {
		cfg.HTTPAddr = flags.httpAddr
	}
	if changed("public-base-url") {
		cfg.PublicBaseURL = flags.publicBaseURL
	}
	if changed("google-client-id") {
		cfg.GoogleClientID = flags.googleClientID
	}
	if changed("google-client-secret") {
		cfg.GoogleClientSecret = flags.googleClientSecret
	}
	if changed("google-redirect-url") {
		cfg.GoogleRedirectURL = flags.googleRedirectURL
	}

	if changed("storage-type") {
		cfg.StorageType = flags.storageType
	}
	if changed("storage-key-prefix") {
		cfg.StorageKeyPrefix = flags.storageKeyPrefix
	}
	if changed("redis-url") {
		cfg.RedisURL = flags.redisURL
	}
	if changed("valkey-url") {
		cfg.ValkeyURL = flags.valkeyURL
	}
	if changed("valkey-password") {
		cfg.ValkeyPassword = flags.valkeyPassword
	}
	if changed("valkey-tls") {
		cfg.ValkeyTLS = flags.valkeyTLS
	}
	if changed("valkey-db") {
		cfg.ValkeyDB = flags.valkeyDB
	}
	if changed("sqlite-path") {
		cfg.SQLitePath = flags.sqlitePath
	}
	if changed("database-url") {
		cfg.DatabaseURL = flags.databaseURL
	}

	if changed("metrics-enabled") {
		cfg.MetricsEnabled = flags.metricsEnabled
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}

	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}
	if flags.debug {
		cfg.LogLevel = "debug"
	}
}

// app is the wired service.
type app struct {
	logger   *slog.Logger
	provider *instrumentation.Provider
	store    kv.Store
	health   *server.HealthChecker
	router   http.Handler
}

// newApp wires every component from cfg. Callers must call close.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	provider, err := instrumentation.NewProvider(ctx, cfg.Instrumentation)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	metrics := provider.Metrics()

	store, err := kv.Open(ctx, cfg.Storage())
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.StorageType, err)
	}

	oauth, err := google.NewClientFactory(cfg.OAuth(), metrics)
	if err != nil {
		_ = store.Close()
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	machine := auth.NewMachine(
		auth.NewStateStore(store, logger),
		oauth,
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
		auth.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, cfg.Instrumentation.AuditLogging)),
	)

	handler, err := server.NewHandler(server.HandlerConfig{
		Machine:       machine,
		OAuth:         oauth,
		Calendar:      calendar.NewFactory(oauth, logger, metrics),
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	})
	if err != nil {
		_ = store.Close()
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	health := server.NewHealthChecker(store)

	return &app{
		logger:   logger,
		provider: provider,
		store:    store,
		health:   health,
		router:   server.NewRouter(handler, health, metrics),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close storage", logging.Err(err))
	}
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger, err := logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
	}()

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && a.provider.ServesPrometheus() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: a.provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
	}

	httpServer := server.NewHTTPServer(cfg.HTTPAddr, a.router)

	logger.Info("slash command server starting",
		"addr", cfg.HTTPAddr,
		"storage", cfg.StorageType,
		"public_base_url", cfg.PublicBaseURL,
		"metrics", metricsServer != nil)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	}

	a.health.MarkShuttingDown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("error shutting down HTTP server: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
		}
	}
	if len(errs) == 0 {
		logger.Info("HTTP server gracefully stopped")
	}
	return errors.Join(errs...)
}
