package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appintegration "github.com/erp/commercesync/internal/application/integration"
	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/cache"
	"github.com/erp/commercesync/internal/infrastructure/config"
	"github.com/erp/commercesync/internal/infrastructure/ecommerce"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/erp/commercesync/internal/infrastructure/persistence"
	"github.com/erp/commercesync/internal/infrastructure/storage"
	"github.com/erp/commercesync/internal/infrastructure/telemetry"
	"github.com/erp/commercesync/internal/interfaces/http/handler"
	"github.com/erp/commercesync/internal/interfaces/http/middleware"
	"github.com/erp/commercesync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (default: ./config.toml when present)")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLog, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = baseLog.Sync() }()

	ctx := context.Background()

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		baseLog.Fatal("Invalid log level", zap.Error(err))
	}
	log := loggerProvider.Bridge(baseLog, level)

	log.Info("Starting commerce sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
	)

	metrics, err := telemetry.NewWebhookMetrics(meterProvider.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		log.Fatal("Failed to create webhook metrics", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level)),
		persistence.WithSlowThreshold(cfg.Database.SlowThreshold),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:            cfg.Telemetry.DBTraceEnabled,
			DBName:             cfg.Database.DBName,
			IncludeVariables:   cfg.Telemetry.DBLogFullSQL,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}),
		persistence.WithMetrics(telemetry.DBMetricsConfig{
			Meter:              meterProvider.Meter(cfg.Telemetry.ServiceName + "/db"),
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		log.Info("Database schema migrated")
	}

	appliedCache, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create applied event cache", zap.Error(err))
	}
	defer func() { _ = appliedCache.Close() }()

	tenants, err := newTenantResolver(cfg.Tenants, persistence.NewGormPlatformConnectionRepository(db.DB), log)
	if err != nil {
		log.Fatal("Invalid tenant bindings", zap.Error(err))
	}

	unattributed, err := cfg.Webhook.UnattributedOrganization()
	if err != nil {
		log.Fatal("Invalid unattributed organization id", zap.Error(err))
	}

	var archive integration.PayloadArchive
	switch {
	case !cfg.Archive.Enabled:
	case cfg.Archive.Driver == config.ArchiveDriverMemory:
		archive = storage.NewMemoryPayloadArchive(cfg.Archive.MemoryCapacity)
		log.Info("In-process payload archive enabled", zap.Int("capacity", cfg.Archive.MemoryCapacity))
	default:
		s3Archive, err := storage.NewS3PayloadArchive(ctx, &cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create payload archive", zap.Error(err))
		}
		if cfg.Archive.CreateBucket {
			if err := s3Archive.EnsureBucket(ctx); err != nil {
				log.Fatal("Failed to ensure archive bucket", zap.Error(err))
			}
		}
		archive = s3Archive
		log.Info("Raw payload archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	}

	syncLogs := persistence.NewGormSyncLogRepository(db.DB)
	reconciliation := persistence.NewGormReconciliationStore(db.DB)
	surface := appintegration.NewCachedReconciliationSurface(
		reconciliation,
		appliedCache,
		cfg.Webhook.IdempotencyTTL,
		log,
	)

	verifier := ecommerce.NewSignatureVerifier(platformSecrets(cfg.Platforms), log)
	for _, scheme := range ecommerce.DefaultSchemes() {
		if !verifier.HasSecret(scheme.Platform()) {
			log.Warn("Webhook signature verification disabled, no secret configured",
				zap.String("platform", scheme.Platform().String()),
			)
		}
	}

	webhookService := appintegration.NewWebhookService(appintegration.WebhookServiceConfig{
		Verifier:   verifier,
		Normalizer: ecommerce.NewPayloadNormalizer(),
		Tenants:    tenants,
		Dispatcher: appintegration.NewEventDispatcher(appintegration.EventDispatcherConfig{
			Handlers: appintegration.NewDefaultHandlers(surface),
			Timeout:  cfg.Webhook.DownstreamTimeout,
			Metrics:  metrics,
			Logger:   log,
		}),
		SyncLogger: appintegration.NewSyncLogger(appintegration.SyncLoggerConfig{
			Repo:            syncLogs,
			RetryAttempts:   cfg.Webhook.LogRetryAttempts,
			RetryInterval:   cfg.Webhook.LogRetryInterval,
			FallbackEnabled: cfg.Webhook.LogFallbackEnabled,
			Metrics:         metrics,
			Logger:          log,
		}),
		Archive:                    archive,
		UnattributedOrganizationID: unattributed,
		Metrics:                    metrics,
		Logger:                     log,
	})

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:           log,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   tracerProvider.IsEnabled(),
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		Meter:            meterProvider.Meter(cfg.Telemetry.ServiceName + "/http"),
		ProfilingEnabled: profiler.IsEnabled(),
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	checks := map[string]handler.Pinger{"database": db}
	if pinger, ok := appliedCache.(handler.Pinger); ok {
		checks["redis"] = pinger
	}
	handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, checks).RegisterRoutes(engine)

	internalNetworks, err := middleware.ParseNetworkAllowlist(cfg.HTTP.InternalNetworks)
	if err != nil {
		log.Fatal("Invalid internal networks", zap.Error(err))
	}
	router.NewRouter(engine,
		router.WithMaxBodyBytes(cfg.Webhook.MaxBodyBytes),
		router.WithInternalNetworks(internalNetworks),
	).
		RegisterWebhooks(handler.NewWebhookHandler(webhookService, cfg.Platforms.Shopline.VerifyToken)).
		Register(handler.NewSyncLogHandler(appintegration.NewSyncLogService(syncLogs))).
		Register(handler.NewChannelStateHandler(reconciliation)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	shutdownTelemetry(shutdownCtx, baseLog, tracerProvider, meterProvider, loggerProvider, profiler)

	log.Info("Server exited")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// newTenantResolver consults configured bindings before stored platform connections
func newTenantResolver(bindings []config.TenantConfig, connections integration.TenantResolver, log *zap.Logger) (integration.TenantResolver, error) {
	static := make([]appintegration.TenantBinding, 0, len(bindings))
	for _, b := range bindings {
		platform, err := integration.ParsePlatform(b.Platform)
		if err != nil {
			return nil, fmt.Errorf("tenant %s/%s: %w", b.Platform, b.ShopID, err)
		}
		orgID, err := uuid.Parse(b.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("tenant %s/%s: invalid organization id: %w", b.Platform, b.ShopID, err)
		}
		static = append(static, appintegration.TenantBinding{
			Platform:       platform,
			ShopID:         b.ShopID,
			OrganizationID: orgID,
		})
	}
	resolver, err := appintegration.NewStaticTenantResolver(static)
	if err != nil {
		return nil, err
	}
	log.Info("Tenant resolution configured", zap.Int("static_bindings", resolver.Len()))
	return appintegration.NewChainTenantResolver(resolver, connections), nil
}

func platformSecrets(p config.PlatformsConfig) map[integration.Platform]string {
	secrets := make(map[integration.Platform]string)
	for code, secret := range p.Secrets() {
		secrets[integration.Platform(code)] = secret
	}
	return secrets
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(ctx context.Context, log *zap.Logger, providers ...shutdowner) {
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
