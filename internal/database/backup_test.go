package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"villamar/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()

	dbPath := filepath.Join(tempDir, "source.db")
	storagePath := filepath.Join(tempDir, "backups")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	db.Close()

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	logger := zerolog.Nop()
	s := NewBackupService(dbPath, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		err := s.PerformBackup()
		assert.NoError(t, err)

		files, err := os.ReadDir(storagePath)
		assert.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		stale := filepath.Join(storagePath, "reservations_old.db")
		require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
		twoDaysAgo := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(stale, twoDaysAgo, twoDaysAgo))

		s.CleanupOldBackups()

		_, err := os.Stat(stale)
		assert.True(t, os.IsNotExist(err), "stale backup should be removed")

		files, err := os.ReadDir(storagePath)
		assert.NoError(t, err)
		assert.Len(t, files, 1, "fresh backup survives cleanup")
	})

	t.Run("DisabledService", func(t *testing.T) {
		disabled := NewBackupService(dbPath, config.BackupConfig{Enabled: false}, &logger)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		// Returns immediately without creating anything.
		disabled.Start(ctx)
	})
}
