package service

import (
	"context"
	"regexp"
	"time"

	"villamar/internal/database"
	"villamar/internal/domain"
	"villamar/internal/events"
	"villamar/internal/models"

	"github.com/rs/zerolog"
)

var contactNumberRe = regexp.MustCompile(`^\d{11}$`)

// ReservationService implements admission control, cancellation and the
// lifecycle sweep over the injected repository. The capacity critical
// section lives in the repository; this layer owns validation, the payment
// proof side effect and event fan-out.
type ReservationService struct {
	repo       domain.Repository
	files      domain.FileStore
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	location   *time.Location
	logger     *zerolog.Logger
}

func NewReservationService(repo domain.Repository, files domain.FileStore, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, location *time.Location, logger *zerolog.Logger) *ReservationService {
	if location == nil {
		location = time.UTC
	}
	return &ReservationService{
		repo:       repo,
		files:      files,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		location:   location,
		logger:     logger,
	}
}

// NormalizeDay truncates a timestamp to midnight in the reference timezone.
func (s *ReservationService) NormalizeDay(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
}

func (s *ReservationService) validate(req *domain.AdmissionRequest) error {
	switch {
	case req.CottageID == "":
		return newValidationError("cottageId", "required")
	case req.GuestName == "":
		return newValidationError("guestName", "required")
	case req.Email == "":
		return newValidationError("email", "required")
	case req.ContactNumber == "":
		return newValidationError("contactNumber", "required")
	case req.Address == "":
		return newValidationError("address", "required")
	case req.Payment == "":
		return newValidationError("payment", "required")
	case req.CheckIn.IsZero():
		return newValidationError("checkIn", "required")
	case req.CheckOut.IsZero():
		return newValidationError("checkOut", "required")
	case req.Proof == nil:
		return newValidationError("proofOfPayment", "required")
	case !req.TermsAgreed:
		return newValidationError("termsAgreed", "terms must be accepted")
	}

	if !contactNumberRe.MatchString(req.ContactNumber) {
		return newValidationError("contactNumber", "must be 11 digits")
	}
	if req.NumberOfGuests < 1 {
		return newValidationError("numberOfGuest", "must be at least 1")
	}
	if !req.CheckOut.After(req.CheckIn) {
		return newValidationError("checkOut", "must be after check-in date")
	}
	return nil
}

// Admit validates a prospective booking and admits it against the capacity
// table. Validation failures leave no side effects. The proof file is
// written before the admission transaction; if the transaction does not
// commit the file is removed again, and if the file cannot be written the
// admission never starts, so a failed admission never consumes a slot.
func (s *ReservationService) Admit(ctx context.Context, req *domain.AdmissionRequest) (*models.Reservation, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	cottage, ok := s.repo.GetCottageByID(req.CottageID)
	if !ok {
		return nil, database.ErrUnknownCottage
	}

	checkInDay := s.NormalizeDay(req.CheckIn)
	checkOutDay := s.NormalizeDay(req.CheckOut)

	// Early duplicate check for a friendlier error before the file write.
	// The admission transaction re-checks under lock.
	exists, err := s.repo.HasActiveReservation(ctx, req.UserID, req.CottageID, checkInDay)
	if err != nil {
		return nil, &StorageError{Op: "duplicate check", Err: err}
	}
	if exists {
		return nil, database.ErrDuplicateBooking
	}

	filename, err := s.files.Save(req.ProofName, req.Proof)
	if err != nil {
		return nil, &StorageError{Op: "proof upload", Err: err}
	}

	reservation := &models.Reservation{
		UserID:         req.UserID,
		CottageID:      cottage.ID,
		CottageName:    cottage.Name,
		CottagePrice:   cottage.PricePerGuest,
		GuestName:      req.GuestName,
		Email:          req.Email,
		ContactNumber:  req.ContactNumber,
		NumberOfGuests: req.NumberOfGuests,
		Address:        req.Address,
		CheckIn:        checkInDay,
		CheckOut:       checkOutDay,
		Payment:        req.Payment,
		ProofOfPayment: filename,
		TotalAmount:    cottage.PricePerGuest * float64(req.NumberOfGuests),
		Status:         models.StatusPending,
	}

	if err := s.repo.CreateReservationWithLock(ctx, reservation); err != nil {
		if removeErr := s.files.Remove(filename); removeErr != nil {
			s.logger.Error().Err(removeErr).Str("file", filename).Msg("failed to remove orphaned proof file")
		}
		return nil, err
	}

	s.publishEvent(ctx, events.EventReservationCreated, reservation, "user", req.UserID)
	s.enqueueSync(ctx, reservation, "upsert")

	return reservation, nil
}

// Cancel reverses a prior admission. Only the owner or an admin may cancel,
// and only from pending or confirmed.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, actingUserID int64, admin bool) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if !admin && reservation.UserID != actingUserID {
		return nil, ErrForbidden
	}

	if !models.CanTransition(reservation.Status, models.StatusCancelled) {
		return nil, &InvalidTransitionError{From: reservation.Status, To: models.StatusCancelled}
	}

	cancelled, err := s.repo.CancelReservationWithLock(ctx, reservationID, reservation.Version)
	if err != nil {
		return nil, err
	}

	changedBy := "user"
	if admin {
		changedBy = "admin"
	}
	s.publishEvent(ctx, events.EventReservationCancelled, cancelled, changedBy, actingUserID)
	s.enqueueSync(ctx, cancelled, "update_status")

	return cancelled, nil
}

// Confirm applies the external pending -> confirmed transition.
func (s *ReservationService) Confirm(ctx context.Context, reservationID int64, version int64) error {
	reservation, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}

	if !models.CanTransition(reservation.Status, models.StatusConfirmed) {
		return &InvalidTransitionError{From: reservation.Status, To: models.StatusConfirmed}
	}

	if err := s.repo.UpdateReservationStatusWithVersion(ctx, reservationID, version, models.StatusConfirmed); err != nil {
		return err
	}

	if updated, err := s.repo.GetReservation(ctx, reservationID); err == nil {
		s.publishEvent(ctx, events.EventReservationConfirmed, updated, "admin", 0)
		s.enqueueSync(ctx, updated, "update_status")
	}

	return nil
}

// SweepCompleted transitions confirmed reservations whose stay has ended to
// completed. Safe to run repeatedly.
func (s *ReservationService) SweepCompleted(ctx context.Context, today time.Time) (int64, error) {
	count, err := s.repo.CompleteFinishedReservations(ctx, s.NormalizeDay(today))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info().Int64("count", count).Msg("reservations transitioned to completed")
	}
	return count, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *ReservationService) GetUserReservations(ctx context.Context, userID int64) ([]*models.Reservation, error) {
	return s.repo.GetUserReservations(ctx, userID)
}

func (s *ReservationService) GetAvailability(ctx context.Context, cottageID string, startDate time.Time, days int) ([]*models.Availability, error) {
	return s.repo.GetAvailabilityForPeriod(ctx, cottageID, s.NormalizeDay(startDate), days)
}

func (s *ReservationService) GetDailyReservations(ctx context.Context, start, end time.Time) (map[string][]*models.Reservation, error) {
	return s.repo.GetDailyReservations(ctx, start, end)
}

func (s *ReservationService) publishEvent(ctx context.Context, eventType string, r *models.Reservation, changedBy string, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		GuestName:     r.GuestName,
		CottageID:     r.CottageID,
		CottageName:   r.CottageName,
		Status:        r.Status,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		TotalAmount:   r.TotalAmount,
		ChangedBy:     changedBy,
		ChangedByID:   changedByID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}

func (s *ReservationService) enqueueSync(ctx context.Context, r *models.Reservation, taskType string) {
	if s.syncWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = r.Status
	}

	if err := s.syncWorker.EnqueueTask(ctx, taskType, r.ID, r, status); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", r.ID).Str("task", taskType).Msg("sync enqueue error")
	}
}
