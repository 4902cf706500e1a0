package domain

import (
	"context"
	"io"
	"time"

	"villamar/internal/models"
)

type Repository interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CreateReservationWithLock(ctx context.Context, r *models.Reservation) error
	CancelReservationWithLock(ctx context.Context, id int64, version int64) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id int64, status string) error
	UpdateReservationStatusWithVersion(ctx context.Context, id int64, version int64, status string) error
	CompleteFinishedReservations(ctx context.Context, today time.Time) (int64, error)
	HasActiveReservation(ctx context.Context, userID int64, cottageID string, checkInDay time.Time) (bool, error)
	GetUserReservations(ctx context.Context, userID int64) ([]*models.Reservation, error)
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)
	GetDailyReservations(ctx context.Context, start, end time.Time) (map[string][]*models.Reservation, error)
	GetDailyCapacity(ctx context.Context, cottageID string, day time.Time) (*models.DailyCapacity, error)
	GetBookedCount(ctx context.Context, cottageID string, day time.Time) (int64, error)
	GetAvailabilityForPeriod(ctx context.Context, cottageID string, startDate time.Time, days int) ([]*models.Availability, error)
	GetActiveCottages() []*models.Cottage
	GetCottageByID(id string) (*models.Cottage, bool)
	SetCottages(cottages []*models.Cottage)
}

type StateRepository interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
	GetCached(ctx context.Context, key string) ([]byte, error)
	SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// FileStore keeps opaque payment-proof uploads.
type FileStore interface {
	Save(originalName string, content io.Reader) (string, error)
	Remove(filename string) error
	Dir() string
}

type Notifier interface {
	NotifyReservationCreated(r *models.Reservation)
	NotifyReservationCancelled(r *models.Reservation, byAdmin bool)
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, reservationID int64, r *models.Reservation, status string) error
}

type ReservationService interface {
	Admit(ctx context.Context, req *AdmissionRequest) (*models.Reservation, error)
	Cancel(ctx context.Context, reservationID, actingUserID int64, admin bool) (*models.Reservation, error)
	Confirm(ctx context.Context, reservationID int64, version int64) error
	SweepCompleted(ctx context.Context, today time.Time) (int64, error)
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetUserReservations(ctx context.Context, userID int64) ([]*models.Reservation, error)
	GetAvailability(ctx context.Context, cottageID string, startDate time.Time, days int) ([]*models.Availability, error)
	GetDailyReservations(ctx context.Context, start, end time.Time) (map[string][]*models.Reservation, error)
}

// AdmissionRequest carries one prospective booking through validation and
// the capacity check.
type AdmissionRequest struct {
	UserID         int64
	CottageID      string
	GuestName      string
	Email          string
	ContactNumber  string
	NumberOfGuests int64
	Address        string
	CheckIn        time.Time
	CheckOut       time.Time
	Payment        string
	TermsAgreed    bool
	ProofName      string
	Proof          io.Reader
}
