package export

import (
	"strings"
	"testing"
	"time"

	"villamar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOccupancyWorkbook(t *testing.T) {
	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	cottages := []*models.Cottage{
		{ID: "rock", Name: "Rock Cottage", MaxCapacity: 3},
		{ID: "pondside", Name: "Pondside Cottage", MaxCapacity: 1},
	}

	daily := map[string][]*models.Reservation{
		"2026-09-10": {
			{CottageID: "rock", GuestName: "Maria Santos", ContactNumber: "09171234567", Status: models.StatusConfirmed},
			{CottageID: "rock", GuestName: "Juan Cruz", ContactNumber: "09179876543", Status: models.StatusPending},
		},
		"2026-09-11": {
			{CottageID: "pondside", GuestName: "Ana Reyes", ContactNumber: "09175554433", Status: models.StatusCancelled},
		},
	}

	f, err := BuildOccupancyWorkbook(cottages, daily, start, end)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Period: 2026-09-10 - 2026-09-12", title)

	// Date headers start in column B.
	header, _ := f.GetCellValue(sheetName, "B2")
	assert.Equal(t, "09-10", header)
	header, _ = f.GetCellValue(sheetName, "D2")
	assert.Equal(t, "09-12", header)

	// Cottage rows carry the capacity.
	rockHeader, _ := f.GetCellValue(sheetName, "A3")
	assert.Equal(t, "Rock Cottage (3)", rockHeader)
	pondHeader, _ := f.GetCellValue(sheetName, "A4")
	assert.Equal(t, "Pondside Cottage (1)", pondHeader)

	// Rock on 09-10 holds both guests and the tally counts only active ones.
	rockCell, _ := f.GetCellValue(sheetName, "B3")
	assert.Contains(t, rockCell, "Maria Santos")
	assert.Contains(t, rockCell, "Juan Cruz")
	assert.Contains(t, rockCell, "Booked: 2/3")

	// The cancelled pondside reservation still shows but does not count.
	pondCell, _ := f.GetCellValue(sheetName, "C4")
	assert.Contains(t, pondCell, "Ana Reyes")
	assert.Contains(t, pondCell, "Booked: 0/1")

	// Unoccupied cell is free.
	freeCell, _ := f.GetCellValue(sheetName, "B4")
	assert.True(t, strings.HasPrefix(freeCell, "Free"), "got %q", freeCell)

	// The scaffolding sheet is gone.
	idx, err := f.GetSheetIndex("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestBuildOccupancyWorkbookEmpty(t *testing.T) {
	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	f, err := BuildOccupancyWorkbook(nil, map[string][]*models.Reservation{}, start, start)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "2026-09-10")
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, iconConfirmed, statusIcon(models.StatusConfirmed))
	assert.Equal(t, iconConfirmed, statusIcon(models.StatusCompleted))
	assert.Equal(t, iconPending, statusIcon(models.StatusPending))
	assert.Equal(t, iconCancelled, statusIcon(models.StatusCancelled))
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "A", columnName(1))
	assert.Equal(t, "Z", columnName(26))
	assert.Equal(t, "AA", columnName(27))
	assert.Equal(t, "AB", columnName(28))
}
