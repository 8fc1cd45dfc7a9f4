package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cargosense/cargosense/config"
	"github.com/cargosense/cargosense/internal/data"
	"github.com/cargosense/cargosense/internal/observability/notify"
	"github.com/cargosense/cargosense/internal/observability/notify/pagerduty"
	"github.com/cargosense/cargosense/internal/observability/notify/slack"
	"github.com/cargosense/cargosense/internal/observability/statsd"
	"github.com/cargosense/cargosense/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *service.JobService
	Advisor       *service.AdvisorService
	Receipts      *service.ReceiptService
	Preferences   *service.PreferencesService
	Reminder      *service.ReminderService
	Auth          *service.AuthService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink    *statsd.Client
	MetricsConfig  config.ObservabilityMetricsConfig
	ReminderSink   notify.Sink
	EscalationSink notify.Sink
	NotifierConfig config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB              *sql.DB
	Redis           redis.UniversalClient
	JobRepo         *data.JobRepo
	HistoryRepo     *data.HistoryRepo
	AnalyticsRepo   *data.AnalyticsRepo
	PreferencesRepo *data.PreferencesRepo
	CacheRepo       *data.RedisCacheRepo
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "cargosense",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	reminderSink, escalationSink := buildNotifySinks(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:    metricsSink,
		MetricsConfig:  cfg.Metrics,
		ReminderSink:   reminderSink,
		EscalationSink: escalationSink,
		NotifierConfig: cfg.Notifications,
	}
}

// buildNotifySinks wires Slack for routine reminders and PagerDuty for the
// overdue escalation path. Without a configured webhook, reminders go to the
// log sink; the escalation sink may stay nil, which routes overdue reminders
// through the regular sink.
func buildNotifySinks(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) (notify.Sink, notify.Sink) {
	if !cfg.Enabled {
		return notify.NewLogSink(logger), nil
	}

	reminderSink := notify.NewLogSink(logger)
	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:   cfg.Slack.WebhookURL,
			Channel:      cfg.Slack.Channel,
			Username:     cfg.Slack.Username,
			Timeout:      cfg.Timeout,
			RetryLimit:   cfg.RetryLimit,
			JobURLPrefix: cfg.Slack.JobURLPrefix,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			reminderSink = client
		}
	}

	var escalationSink notify.Sink
	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			escalationSink = client
		}
	}

	return reminderSink, escalationSink
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repos := &serviceRepositories{
		DB:              db,
		Redis:           redisClient,
		JobRepo:         data.NewJobRepo(db, logger),
		HistoryRepo:     data.NewHistoryRepo(db, logger),
		AnalyticsRepo:   data.NewAnalyticsRepo(db, logger),
		PreferencesRepo: data.NewPreferencesRepo(db, logger),
	}
	if redisClient != nil {
		repos.CacheRepo = data.NewRedisCacheRepo(redisClient)
	}
	return repos
}

func newAuthService(cfg config.AuthConfig, redisClient redis.UniversalClient, logger *slog.Logger) *service.AuthService {
	return BuildAuthService(AuthConfig{
		Auth:        cfg,
		RedisClient: redisClient,
		Logger:      logger,
	})
}

func newAdvisorService(
	repos *serviceRepositories,
	cfg config.AIConfig,
	observability ObservabilityContainer,
	logger *slog.Logger,
) (*service.AdvisorService, error) {
	backend, err := BuildAdvisorBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return service.NewAdvisorService(service.AdvisorServiceOptions{
		Jobs:      repos.JobRepo,
		Backend:   backend,
		Analytics: repos.AnalyticsRepo,
		Cache:     service.NewContextCache(cfg.ContextTTL),
		Stats:     observability.MetricsSink,
		Logger:    logger,
	}), nil
}

func newReceiptService(repos *serviceRepositories, cfg config.BlobConfig, isDev bool, logger *slog.Logger) (*service.ReceiptService, error) {
	store, err := BuildBlobStore(cfg, isDev, logger)
	if err != nil {
		return nil, err
	}
	return service.NewReceiptService(service.ReceiptServiceOptions{
		Blobs:  store,
		Jobs:   repos.JobRepo,
		Logger: logger,
	}), nil
}

func newReminderService(
	repos *serviceRepositories,
	cfg config.ReminderConfig,
	observability ObservabilityContainer,
	logger *slog.Logger,
) *service.ReminderService {
	if repos.CacheRepo == nil {
		logger.Warn("reminder service disabled: redis cache not configured")
		return nil
	}
	return service.NewReminderService(service.ReminderServiceOptions{
		Jobs:  repos.JobRepo,
		Cache: repos.CacheRepo,
		Sink:  observability.ReminderSink,
		Prefs: repos.PreferencesRepo,
		Config: service.ReminderConfig{
			Schedule:   cfg.Schedule,
			Escalation: observability.EscalationSink,
		},
		Stats:  observability.MetricsSink,
		Logger: logger,
	})
}

// NewServices wires repositories, adapters, and domain services from the
// loaded configuration.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, logger)

	jobService := service.NewJobService(service.JobServiceOptions{
		Jobs:    repos.JobRepo,
		History: repos.HistoryRepo,
		Stats:   observability.MetricsSink,
		Logger:  logger,
	})

	advisorService, err := newAdvisorService(repos, appCfg.AI, observability, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build advisor service: %w", err)
	}

	receiptService, err := newReceiptService(repos, appCfg.Blob, appCfg.IsDev, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build receipt service: %w", err)
	}

	preferencesService := service.NewPreferencesService(service.PreferencesServiceOptions{
		Prefs:  repos.PreferencesRepo,
		Logger: logger,
	})

	reminderService := newReminderService(repos, appCfg.Reminder, observability, logger)
	authService := newAuthService(appCfg.Auth, deps.RedisClient, logger)

	return ServiceContainer{
		Jobs:          jobService,
		Advisor:       advisorService,
		Receipts:      receiptService,
		Preferences:   preferencesService,
		Reminder:      reminderService,
		Auth:          authService,
		Observability: observability,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newReminderBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReminder,
		name: "reminder scanner",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			return RunReminderScanner(ctx, deps.cfg.Services.Reminder)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newReminderBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	// Gracefully stop HTTP server if running
	if cfg.httpServer != nil {
		// The service context is already cancelled here; shutdown needs its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
