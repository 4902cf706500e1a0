package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"villamar/internal/api"
	"villamar/internal/config"
	"villamar/internal/database"
	"villamar/internal/domain"
	"villamar/internal/events"
	"villamar/internal/google"
	"villamar/internal/logging"
	"villamar/internal/metrics"
	"villamar/internal/models"
	"villamar/internal/notify"
	"villamar/internal/repository"
	"villamar/internal/service"
	"villamar/internal/storage"
	"villamar/internal/sweeper"
	"villamar/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
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
		defer closer.Close()
	}

	cottages, err := loadCottages(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, cottages, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := storage.NewLocalFileStore(cfg.Uploads.Dir)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.Uploads.Dir).Msg("init upload store")
		return err
	}

	redisClient := initRedis(cfg, &logger)
	state := initStateRepository(redisClient, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var syncWorker domain.SyncWorker
	if sheetsWorker := initSheetsWorker(cfg, db, redisClient, &logger); sheetsWorker != nil {
		go sheetsWorker.Start(ctx)
		syncWorker = sheetsWorker
	}

	eventBus := events.NewEventBus()
	svc := service.NewReservationService(db, files, eventBus, syncWorker, cfg.Location(), &logger)
	wireNotifier(cfg, eventBus, svc, &logger)

	if cfg.Sweeper.Enabled {
		go sweeper.New(svc, cfg.Sweeper.Hour, cfg.Location(), &logger).Start(ctx)
	}

	if cfg.Backup.Enabled {
		go database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger).Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg, svc, state, files, db, &logger)
	return startServer(ctx, httpServer, cfg, &logger)
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

// loadCottages prefers the catalog embedded in the main config and falls
// back to the standalone cottages file.
func loadCottages(cfg *config.Config, logger *zerolog.Logger) ([]models.Cottage, error) {
	if len(cfg.Cottages) > 0 {
		return cfg.Cottages, nil
	}

	cottagesPath := os.Getenv("COTTAGES_PATH")
	if cottagesPath == "" {
		cottagesPath = "configs/cottages.yaml"
	}
	data, err := os.ReadFile(cottagesPath)
	if err != nil {
		logger.Error().Err(err).Str("cottages_path", cottagesPath).Msg("read cottages")
		return nil, err
	}

	var cottagesConfig struct {
		Cottages []models.Cottage `yaml:"cottages"`
	}
	if err := yaml.Unmarshal(data, &cottagesConfig); err != nil {
		logger.Error().Err(err).Str("cottages_path", cottagesPath).Msg("parse cottages")
		return nil, err
	}

	if err := config.ValidateCottages(cottagesConfig.Cottages); err != nil {
		return nil, err
	}
	return cottagesConfig.Cottages, nil
}

func initDatabase(cfg *config.Config, cottages []models.Cottage, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	cottagePointers := make([]*models.Cottage, len(cottages))
	for i := range cottages {
		cottagePointers[i] = &cottages[i]
	}
	db.SetCottages(cottagePointers)
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initStateRepository(redisClient *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	memory := repository.NewMemoryStateRepository()
	if redisClient == nil {
		logger.Warn().Msg("redis unavailable, using in-memory state repository")
		return memory
	}
	return repository.NewFailoverStateRepository(
		repository.NewRedisStateRepository(redisClient), memory, logger)
}

func initSheetsWorker(cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.SheetsWorker {
	if !cfg.Google.Enabled || cfg.Google.CredentialsFile == "" || cfg.Google.ReservationsSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.ReservationsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	logger.Info().Msg("google sheets connected")

	return worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, logger)
}

// wireNotifier subscribes the Telegram notifier to reservation events. The
// event payload is a snapshot, so the handler reloads the full row.
func wireNotifier(cfg *config.Config, bus *events.EventBus, svc domain.ReservationService, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" || len(cfg.Telegram.ChatIDs) == 0 {
		return
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram notifier init failed, continuing without notifications")
		return
	}

	loadReservation := func(event *events.Event) (*events.ReservationEventPayload, *models.Reservation, error) {
		var payload events.ReservationEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reservation, err := svc.GetReservation(ctx, payload.ReservationID)
		if err != nil {
			return nil, nil, err
		}
		return &payload, reservation, nil
	}

	bus.Subscribe(events.EventReservationCreated, func(event *events.Event) error {
		_, reservation, err := loadReservation(event)
		if err != nil {
			return err
		}
		notifier.NotifyReservationCreated(reservation)
		return nil
	})

	bus.Subscribe(events.EventReservationCancelled, func(event *events.Event) error {
		payload, reservation, err := loadReservation(event)
		if err != nil {
			return err
		}
		notifier.NotifyReservationCancelled(reservation, payload.ChangedBy == "admin")
		return nil
	})
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

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
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
