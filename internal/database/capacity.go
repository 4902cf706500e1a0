package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"villamar/internal/models"
)

func (db *DB) GetDailyCapacity(ctx context.Context, cottageID string, day time.Time) (*models.DailyCapacity, error) {
	query := `SELECT id, cottage_id, day, booked_count, max_capacity FROM daily_capacity
	          WHERE cottage_id = ? AND day = ?`
	var dc models.DailyCapacity
	var dayStr string
	err := db.QueryRowContext(ctx, query, cottageID, day.Format(models.DayFormat)).Scan(
		&dc.ID, &dc.CottageID, &dayStr, &dc.BookedCount, &dc.MaxCapacity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily capacity: %w", err)
	}

	if dc.Day, err = time.Parse(models.DayFormat, dayStr); err != nil {
		return nil, fmt.Errorf("failed to parse capacity day %s: %w", dayStr, err)
	}
	return &dc, nil
}

// GetBookedCount returns the committed counter for (cottage, day); zero when
// the row was never created.
func (db *DB) GetBookedCount(ctx context.Context, cottageID string, day time.Time) (int64, error) {
	dc, err := db.GetDailyCapacity(ctx, cottageID, day)
	if err != nil {
		return 0, err
	}
	if dc == nil {
		return 0, nil
	}
	return dc.BookedCount, nil
}

func (db *DB) GetAvailabilityForPeriod(ctx context.Context, cottageID string, startDate time.Time, days int) ([]*models.Availability, error) {
	cottage, ok := db.GetCottageByID(cottageID)
	if !ok {
		return nil, ErrUnknownCottage
	}

	endDate := startDate.AddDate(0, 0, days-1)
	query := `SELECT day, booked_count FROM daily_capacity
	          WHERE cottage_id = ? AND day BETWEEN ? AND ?`
	rows, err := db.QueryContext(ctx, query, cottageID,
		startDate.Format(models.DayFormat), endDate.Format(models.DayFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to get availability batch: %w", err)
	}
	defer rows.Close()

	bookedCounts := make(map[string]int64)
	for rows.Next() {
		var dayStr string
		var count int64
		if err := rows.Scan(&dayStr, &count); err != nil {
			return nil, err
		}
		bookedCounts[dayStr] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var availability []*models.Availability
	for i := 0; i < days; i++ {
		date := startDate.AddDate(0, 0, i)
		booked := bookedCounts[date.Format(models.DayFormat)]

		available := cottage.MaxCapacity - booked
		if available < 0 {
			available = 0
		}

		availability = append(availability, &models.Availability{
			Date:      date,
			CottageID: cottageID,
			Booked:    booked,
			Available: available,
			Total:     cottage.MaxCapacity,
		})
	}
	return availability, nil
}
