package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"villamar/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the SQLite handle together with the in-memory cottage catalog.
// The catalog is configuration, not runtime state; it is loaded once at
// startup and consulted for capacity limits and price snapshots.
type DB struct {
	*sql.DB
	mu            sync.RWMutex
	cottagesCache map[string]models.Cottage
	sortedIDs     []string
	logger        *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout keeps concurrent writers queued instead of failing with
	// SQLITE_BUSY while an admission transaction holds the write lock.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, cottagesCache: make(map[string]models.Cottage), logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            cottage_id TEXT NOT NULL,
            cottage_name TEXT NOT NULL,
            cottage_price REAL NOT NULL,
            guest_name TEXT NOT NULL,
            email TEXT NOT NULL,
            contact_number TEXT NOT NULL,
            number_of_guests INTEGER NOT NULL,
            address TEXT NOT NULL,
            check_in DATETIME NOT NULL,
            check_out DATETIME NOT NULL,
            payment TEXT NOT NULL,
            proof_of_payment TEXT NOT NULL,
            total_amount REAL NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS daily_capacity (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            cottage_id TEXT NOT NULL,
            day TEXT NOT NULL,
            booked_count INTEGER NOT NULL DEFAULT 0,
            max_capacity INTEGER NOT NULL,
            UNIQUE(cottage_id, day)
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            reservation_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_user_id ON reservations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_cottage_checkin ON reservations(cottage_id, check_in)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_capacity_key ON daily_capacity(cottage_id, day)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetCottages replaces the cottage catalog cache.
func (db *DB) SetCottages(cottages []*models.Cottage) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.cottagesCache = make(map[string]models.Cottage, len(cottages))
	db.sortedIDs = db.sortedIDs[:0]
	for _, c := range cottages {
		db.cottagesCache[c.ID] = *c
		db.sortedIDs = append(db.sortedIDs, c.ID)
	}
}

func (db *DB) GetCottageByID(id string) (*models.Cottage, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.cottagesCache[id]
	if !ok {
		return nil, false
	}
	return &c, true
}

// GetActiveCottages returns the catalog in config order.
func (db *DB) GetActiveCottages() []*models.Cottage {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*models.Cottage, 0, len(db.sortedIDs))
	for _, id := range db.sortedIDs {
		c := db.cottagesCache[id]
		if !c.IsActive {
			continue
		}
		out = append(out, &c)
	}
	return out
}
