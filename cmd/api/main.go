package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coachly/internal/api"
	"coachly/internal/config"
	"coachly/internal/database"
	"coachly/internal/export"
	"coachly/internal/google"
	"coachly/internal/lock"
	"coachly/internal/logging"
	"coachly/internal/metrics"
	"coachly/internal/models"
	"coachly/internal/notify"
	"coachly/internal/profiles"
	"coachly/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedAvailabilities(db, &logger); err != nil {
		return err
	}

	locker := initLocker(cfg, &logger)

	var (
		calendarBridge scheduler.CalendarBridge
		eventSource    api.EventSource
	)
	if cfg.Google.CredentialsFile != "" {
		calendarService := google.NewCalendarService(cfg.Google, &logger)
		calendarBridge = calendarService
		eventSource = calendarService
	} else {
		logger.Warn().Msg("google calendar not configured, appointments will not be mirrored")
	}

	dispatcher := notify.NewDispatcher(
		notify.NewMailTransport(cfg.Notifications.Primary),
		notify.NewTemplateTransport(cfg.Notifications.Fallback),
		&logger,
	)

	var profileDir scheduler.ProfileDirectory
	if cfg.Notifications.Profiles.BaseURL != "" {
		profileDir = profiles.NewClient(cfg.Notifications.Profiles)
	} else {
		logger.Warn().Msg("profiles service not configured, coaches will not be notified")
	}

	sched := scheduler.NewService(db, locker, calendarBridge, dispatcher, profileDir, &logger, scheduler.Options{
		MeetBaseURL:    cfg.Notifications.MeetBaseURL,
		MaxBookingDays: cfg.Scheduling.MaxBookingDays,
	})

	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)

	httpServer := api.NewHTTPServer(cfg.API, sched, eventSource, exporter, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	return serve(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// seedAvailabilities preloads published schedules from a yaml file,
// useful for demo environments and local development. Missing file
// means nothing to seed.
func seedAvailabilities(db *database.DB, logger *zerolog.Logger) error {
	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		seedPath = "configs/seed_availability.yaml"
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("read seed file")
		return err
	}

	var seed struct {
		Availabilities []models.Availability `yaml:"availabilities"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("parse seed file")
		return err
	}

	ctx := context.Background()
	for i := range seed.Availabilities {
		if err := db.SaveAvailability(ctx, &seed.Availabilities[i]); err != nil {
			return fmt.Errorf("seed availability %s: %w", seed.Availabilities[i].Key(), err)
		}
	}
	if len(seed.Availabilities) > 0 {
		logger.Info().Int("count", len(seed.Availabilities)).Msg("seeded coach availabilities")
	}
	return nil
}

// initLocker builds the slot locker: redis-backed when configured,
// degrading to the in-process locker when redis is down.
func initLocker(cfg *config.Config, logger *zerolog.Logger) lock.SlotLocker {
	memory := lock.NewMemorySlotLocker()
	if cfg.Redis.Address == "" {
		return memory
	}

	client := lock.NewRedisClient(cfg.Redis)
	if err := lock.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, using in-process slot locks")
		return memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return lock.NewFailoverSlotLocker(lock.NewRedisSlotLocker(client), memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("scheduling engine started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info().Msg("scheduling engine stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
