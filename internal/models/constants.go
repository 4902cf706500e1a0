package models

const (
	// DayFormat is how calendar days are stored and compared.
	DayFormat = "2006-01-02"

	// ContactNumberDigits is the required contact number length.
	ContactNumberDigits = 11

	// SweepHour is the default local hour for the daily lifecycle sweep.
	SweepHour = 0

	// DefaultMaxBookingDays ограничивает глубину бронирования вперёд.
	DefaultMaxBookingDays = 365

	// RateLimitRequests / RateLimitWindow are the per-user admission
	// attempt limits enforced through the state repository.
	RateLimitRequests = 20
	RateLimitWindow   = 60 // seconds

	// AvailabilityCacheTTL время жизни кэша доступности в Redis (секунды).
	AvailabilityCacheTTL = 60

	// WorkerQueueSize размер очереди воркера синхронизации.
	WorkerQueueSize = 1000

	// DefaultExportRangeMonthsBefore / After bound the staff export window.
	DefaultExportRangeMonthsBefore = 1
	DefaultExportRangeMonthsAfter  = 2
)
