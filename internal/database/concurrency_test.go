package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"villamar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentAdmission(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	checkIn := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour)

	// Rock cottage holds 3 slots per day; ten guests race for them.
	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(userID int64) {
			defer wg.Done()
			results <- db.CreateReservationWithLock(ctx, newReservation(userID, "rock", checkIn))
		}(int64(i + 1))
	}

	wg.Wait()
	close(results)

	successCount := 0
	capacityErrors := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, ErrCapacityExceeded):
			capacityErrors++
		default:
			t.Fatalf("unexpected admission error: %v", err)
		}
	}

	assert.Equal(t, 3, successCount, "exactly three admissions should win the three slots")
	assert.Equal(t, numGoroutines-3, capacityErrors)

	count, err := db.GetBookedCount(ctx, "rock", checkIn)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	reservations, err := db.GetReservationsByDateRange(ctx, checkIn, checkIn)
	require.NoError(t, err)
	assert.Len(t, reservations, 3)
}

func TestCancelThenRebook(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	checkIn := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour)

	// Fill rock cottage to its 3 slots.
	admitted := make([]*models.Reservation, 0, 3)
	for userID := int64(1); userID <= 3; userID++ {
		r := newReservation(userID, "rock", checkIn)
		require.NoError(t, db.CreateReservationWithLock(ctx, r))
		admitted = append(admitted, r)
	}

	err := db.CreateReservationWithLock(ctx, newReservation(4, "rock", checkIn))
	require.ErrorIs(t, err, ErrCapacityExceeded)

	// Cancelling one admission frees exactly one slot.
	_, err = db.CancelReservationWithLock(ctx, admitted[1].ID, admitted[1].Version)
	require.NoError(t, err)

	count, err := db.GetBookedCount(ctx, "rock", checkIn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, db.CreateReservationWithLock(ctx, newReservation(4, "rock", checkIn)))

	// Full again: the next guest bounces.
	err = db.CreateReservationWithLock(ctx, newReservation(5, "rock", checkIn))
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	count, err = db.GetBookedCount(ctx, "rock", checkIn)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestConcurrentCancel(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	checkIn := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour)

	r := newReservation(1, "rock", checkIn)
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	// Two actors race to cancel with the same version: the versioned update
	// lets exactly one through, so the slot is released once, not twice.
	const attempts = 2
	var wg sync.WaitGroup
	wg.Add(attempts)
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := db.CancelReservationWithLock(ctx, r.ID, r.Version)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successCount := 0
	conflictCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, ErrConcurrentModification):
			conflictCount++
		default:
			t.Fatalf("unexpected cancel error: %v", err)
		}
	}

	assert.Equal(t, 1, successCount)
	assert.Equal(t, 1, conflictCount)

	count, err := db.GetBookedCount(ctx, "rock", checkIn)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
