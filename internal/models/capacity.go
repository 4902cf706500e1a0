package models

import "time"

// DailyCapacity is one admission counter row per (cottage, calendar day).
// Rows are created lazily on first admission and never deleted.
type DailyCapacity struct {
	ID          int64     `json:"id"`
	CottageID   string    `json:"cottage_id"`
	Day         time.Time `json:"day"`
	BookedCount int64     `json:"booked_count"`
	MaxCapacity int64     `json:"max_capacity"`
}

type Availability struct {
	Date      time.Time `json:"date"`
	CottageID string    `json:"cottage_id"`
	Booked    int64     `json:"booked"`
	Available int64     `json:"available"`
	Total     int64     `json:"total"`
}
