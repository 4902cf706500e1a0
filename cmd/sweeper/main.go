// Command sweeper runs a single lifecycle sweep and exits. Useful for
// cron-style deployments and for catching up after downtime.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"villamar/internal/config"
	"villamar/internal/database"
	"villamar/internal/logging"
	"villamar/internal/models"
	"villamar/internal/service"

	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := baseLogger.With().Str("component", "sweeper-main").Logger()

	cottages := cfg.Cottages
	if len(cottages) == 0 {
		cottagesPath := os.Getenv("COTTAGES_PATH")
		if cottagesPath == "" {
			cottagesPath = "configs/cottages.yaml"
		}
		data, err := os.ReadFile(cottagesPath)
		if err != nil {
			return fmt.Errorf("read cottages: %w", err)
		}
		var cottagesConfig struct {
			Cottages []models.Cottage `yaml:"cottages"`
		}
		if err := yaml.Unmarshal(data, &cottagesConfig); err != nil {
			return fmt.Errorf("parse cottages: %w", err)
		}
		cottages = cottagesConfig.Cottages
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	cottagePointers := make([]*models.Cottage, len(cottages))
	for i := range cottages {
		cottagePointers[i] = &cottages[i]
	}
	db.SetCottages(cottagePointers)

	svc := service.NewReservationService(db, nil, nil, nil, cfg.Location(), &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	transitioned, err := svc.SweepCompleted(ctx, time.Now().In(cfg.Location()))
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	logger.Info().Int64("transitioned", transitioned).Msg("sweep finished")
	return nil
}
