package database

import (
	"testing"

	"villamar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCottageCatalog(t *testing.T) {
	db := setupTestDB(t)

	t.Run("GetCottageByID", func(t *testing.T) {
		cottage, ok := db.GetCottageByID("rock")
		require.True(t, ok)
		assert.Equal(t, "Rock Cottage", cottage.Name)
		assert.Equal(t, int64(3), cottage.MaxCapacity)

		_, ok = db.GetCottageByID("treehouse")
		assert.False(t, ok)
	})

	t.Run("GetActiveCottages", func(t *testing.T) {
		cottages := db.GetActiveCottages()
		require.Len(t, cottages, 3)
		// Config order is preserved.
		assert.Equal(t, "pondside", cottages[0].ID)
		assert.Equal(t, "rock", cottages[1].ID)
		assert.Equal(t, "umbrella", cottages[2].ID)
	})

	t.Run("InactiveCottagesHidden", func(t *testing.T) {
		db.SetCottages([]*models.Cottage{
			{ID: "rock", Name: "Rock Cottage", MaxCapacity: 3, IsActive: true},
			{ID: "closed", Name: "Closed Cottage", MaxCapacity: 2, IsActive: false},
		})
		cottages := db.GetActiveCottages()
		require.Len(t, cottages, 1)
		assert.Equal(t, "rock", cottages[0].ID)

		// Inactive cottages stay resolvable for existing reservations.
		_, ok := db.GetCottageByID("closed")
		assert.True(t, ok)
	})
}
