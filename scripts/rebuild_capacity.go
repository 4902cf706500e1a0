// Rebuilds the daily_capacity counters from the reservation ledger. Run it
// after restoring a backup or editing rows by hand, when the counters can
// drift from the ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"villamar/internal/config"
	"villamar/internal/database"
	"villamar/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type CottagesConfig struct {
	Cottages []models.Cottage `yaml:"cottages"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		cottagesPath = flag.String("cottages", "configs/cottages.yaml", "path to cottages.yaml")
		dbPath       = flag.String("db", "./data/reservations.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*cottagesPath)
	if err != nil {
		return fmt.Errorf("read cottages: %w", err)
	}
	var cfg CottagesConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse cottages: %w", err)
	}
	if err = config.ValidateCottages(cfg.Cottages); err != nil {
		return err
	}
	capacities := make(map[string]int64, len(cfg.Cottages))
	for _, cottage := range cfg.Cottages {
		capacities[cottage.ID] = cottage.MaxCapacity
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM daily_capacity`); err != nil {
		return fmt.Errorf("clear capacity table: %w", err)
	}

	// Slots are held by every reservation that is not cancelled, keyed by
	// check-in day.
	rows, err := tx.QueryContext(ctx, `
		SELECT cottage_id, date(check_in), COUNT(*)
		FROM reservations
		WHERE status != ?
		GROUP BY cottage_id, date(check_in)`, models.StatusCancelled)
	if err != nil {
		return fmt.Errorf("aggregate ledger: %w", err)
	}
	defer rows.Close()

	type counter struct {
		cottageID string
		day       string
		booked    int64
	}
	var counters []counter
	for rows.Next() {
		var c counter
		if err = rows.Scan(&c.cottageID, &c.day, &c.booked); err != nil {
			return fmt.Errorf("scan counter: %w", err)
		}
		counters = append(counters, c)
	}
	if err = rows.Err(); err != nil {
		return err
	}

	rebuilt := 0
	skipped := 0
	for _, c := range counters {
		capacity, ok := capacities[c.cottageID]
		if !ok {
			logger.Warn().Str("cottage_id", c.cottageID).Str("day", c.day).Msg("cottage not in catalog, skipping")
			skipped++
			continue
		}
		if c.booked > capacity {
			logger.Warn().Str("cottage_id", c.cottageID).Str("day", c.day).
				Int64("booked", c.booked).Int64("capacity", capacity).
				Msg("ledger exceeds capacity, keeping ledger count")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO daily_capacity (cottage_id, day, booked_count, max_capacity)
			VALUES (?, ?, ?, ?)`, c.cottageID, c.day, c.booked, capacity)
		if err != nil {
			return fmt.Errorf("insert counter %s/%s: %w", c.cottageID, c.day, err)
		}
		rebuilt++
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	fmt.Printf("done: rebuilt=%d skipped=%d\n", rebuilt, skipped)
	return nil
}
