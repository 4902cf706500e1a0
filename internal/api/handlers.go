package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"villamar/internal/database"
	"villamar/internal/domain"
	"villamar/internal/export"
	"villamar/internal/metrics"
	"villamar/internal/models"
	"villamar/internal/service"
)

const maxUploadBytes = 10 << 20

// reservationResponse mirrors the ledger row plus the public URL of the
// uploaded payment proof.
type reservationResponse struct {
	*models.Reservation
	ProofOfPaymentURL string `json:"proofOfPaymentUrl"`
}

func (s *HTTPServer) reservationResponse(r *models.Reservation) reservationResponse {
	return reservationResponse{
		Reservation:       r,
		ProofOfPaymentURL: s.cfg.Uploads.PublicPath + r.ProofOfPayment,
	}
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := identityFrom(r)

	allowed, err := s.state.CheckRateLimit(r.Context(), identity.UserID,
		s.cfg.RateLimit.UserRequests, time.Duration(s.cfg.RateLimit.UserWindow)*time.Second)
	if err != nil {
		s.logger.Error().Err(err).Msg("rate limit check failed")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, service.ErrRateLimited.Error())
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := &domain.AdmissionRequest{
		UserID:        identity.UserID,
		CottageID:     r.FormValue("cottageId"),
		GuestName:     r.FormValue("guestName"),
		Email:         r.FormValue("email"),
		ContactNumber: r.FormValue("contactNumber"),
		Address:       r.FormValue("address"),
		Payment:       r.FormValue("payment"),
	}

	if raw := r.FormValue("numberOfGuest"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "numberOfGuest must be a number")
			return
		}
		req.NumberOfGuests = n
	}

	if raw := r.FormValue("termsAgreed"); raw != "" {
		agreed, err := strconv.ParseBool(raw)
		if err == nil {
			req.TermsAgreed = agreed
		}
	}

	for _, field := range []struct {
		name string
		dst  *time.Time
	}{
		{"checkIn", &req.CheckIn},
		{"checkOut", &req.CheckOut},
	} {
		raw := r.FormValue(field.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(models.DayFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", field.name))
			return
		}
		*field.dst = t
	}

	if file, header, err := r.FormFile("proofOfPayment"); err == nil {
		defer file.Close()
		req.Proof = file
		req.ProofName = header.Filename
	}

	reservation, err := s.service.Admit(r.Context(), req)
	if err != nil {
		s.respondAdmissionError(w, err)
		return
	}

	metrics.IncAdmission("admitted")
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"message":     "Reservation created successfully",
		"reservation": s.reservationResponse(reservation),
	})
}

func (s *HTTPServer) respondAdmissionError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var storageErr *service.StorageError

	switch {
	case errors.As(err, &validationErr):
		metrics.IncAdmission("validation")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": validationErr.Message,
			"field":   validationErr.Field,
		})
	case errors.Is(err, database.ErrUnknownCottage):
		metrics.IncAdmission("validation")
		writeError(w, http.StatusBadRequest, "Invalid cottage ID or capacity not configured")
	case errors.Is(err, database.ErrDuplicateBooking):
		metrics.IncAdmission("duplicate")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":   false,
			"message":   "You have already booked this cottage for the selected check-in date.",
			"duplicate": true,
		})
	case errors.Is(err, database.ErrCapacityExceeded):
		metrics.IncAdmission("capacity_exceeded")
		writeError(w, http.StatusBadRequest, "This cottage is fully booked for the selected date")
	case errors.As(err, &storageErr):
		metrics.IncAdmission("error")
		writeError(w, http.StatusInternalServerError, "Error saving reservation")
	default:
		metrics.IncAdmission("error")
		s.logger.Error().Err(err).Msg("admission failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *HTTPServer) handleUserReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := identityFrom(r)
	reservations, err := s.service.GetUserReservations(r.Context(), identity.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", identity.UserID).Msg("list reservations failed")
		writeError(w, http.StatusInternalServerError, "Error retrieving reservations")
		return
	}

	out := make([]reservationResponse, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, s.reservationResponse(reservation))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, ok := pathID(w, r.URL.Path, "/reservations/cancel/")
	if !ok {
		return
	}

	identity := identityFrom(r)
	reservation, err := s.service.Cancel(r.Context(), id, identity.UserID, identity.IsAdmin())
	if err != nil {
		var transitionErr *service.InvalidTransitionError
		switch {
		case errors.Is(err, database.ErrNotFound):
			writeError(w, http.StatusNotFound, "Reservation not found")
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "You do not have permission to cancel this reservation")
		case errors.As(err, &transitionErr):
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Cannot cancel a reservation that is already %s", transitionErr.From))
		case errors.Is(err, database.ErrConcurrentModification):
			writeError(w, http.StatusConflict, "Reservation was modified concurrently, try again")
		default:
			s.logger.Error().Err(err).Int64("reservation_id", id).Msg("cancel failed")
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	metrics.IncCancellation()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Reservation cancelled successfully",
		"reservation": s.reservationResponse(reservation),
	})
}

func (s *HTTPServer) handleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, ok := pathID(w, r.URL.Path, "/api/v1/reservations/confirm/")
	if !ok {
		return
	}

	reservation, err := s.service.GetReservation(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Reservation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if err := s.service.Confirm(r.Context(), id, reservation.Version); err != nil {
		var transitionErr *service.InvalidTransitionError
		switch {
		case errors.As(err, &transitionErr):
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Cannot confirm a reservation that is %s", transitionErr.From))
		case errors.Is(err, database.ErrConcurrentModification):
			writeError(w, http.StatusConflict, "Reservation was modified concurrently, try again")
		default:
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Reservation confirmed"})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/availability/"
	cottageID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if cottageID == "" || strings.Contains(cottageID, "/") {
		writeError(w, http.StatusBadRequest, "cottage id is required")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse(models.DayFormat, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	days := 1
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 90 {
			days = parsed
		}
	}

	cacheKey := fmt.Sprintf("availability:%s:%s:%d", cottageID, dateStr, days)
	if cached, err := s.state.GetCached(r.Context(), cacheKey); err == nil && cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	availability, err := s.service.GetAvailability(r.Context(), cottageID, date, days)
	if err != nil {
		if errors.Is(err, database.ErrUnknownCottage) {
			writeError(w, http.StatusNotFound, "cottage not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	body, err := json.Marshal(map[string]any{"results": availability})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if err := s.state.SetCached(r.Context(), cacheKey, body,
		models.AvailabilityCacheTTL*time.Second); err != nil {
		s.logger.Warn().Err(err).Msg("availability cache write failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *HTTPServer) handleAvailabilityBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type request struct {
		Cottages []string `json:"cottages"`
		Dates    []string `json:"dates"`
	}

	var body request
	if r.Method == http.MethodGet {
		body.Cottages = splitCSV(r.URL.Query().Get("cottages"))
		body.Dates = splitCSV(r.URL.Query().Get("dates"))
	} else {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if len(body.Cottages) == 0 {
		writeError(w, http.StatusBadRequest, "cottages is required")
		return
	}
	if len(body.Dates) == 0 {
		writeError(w, http.StatusBadRequest, "dates is required")
		return
	}

	results := make([]*models.Availability, 0, len(body.Cottages)*len(body.Dates))
	for _, rawCottage := range body.Cottages {
		cottageID := strings.TrimSpace(rawCottage)
		if cottageID == "" {
			continue
		}
		for _, rawDate := range body.Dates {
			dateStr := strings.TrimSpace(rawDate)
			if dateStr == "" {
				continue
			}
			date, err := time.Parse(models.DayFormat, dateStr)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date format: %s", dateStr))
				return
			}

			availability, err := s.service.GetAvailability(r.Context(), cottageID, date, 1)
			if err != nil {
				// Unknown cottages are skipped rather than failing the batch.
				continue
			}
			results = append(results, availability...)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *HTTPServer) handleCottages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cottages": s.cottages.GetActiveCottages()})
}

func (s *HTTPServer) handleExportReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now()
	start := now.AddDate(0, -models.DefaultExportRangeMonthsBefore, 0)
	end := now.AddDate(0, models.DefaultExportRangeMonthsAfter, 0)

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(models.DayFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date; expected YYYY-MM-DD")
			return
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(models.DayFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date; expected YYYY-MM-DD")
			return
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end date is before start date")
		return
	}

	daily, err := s.service.GetDailyReservations(r.Context(), start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("export query failed")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	workbook, err := export.BuildOccupancyWorkbook(s.cottages.GetActiveCottages(), daily, start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("export build failed")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("reservations_%s_%s.xlsx",
		start.Format(models.DayFormat), end.Format(models.DayFormat))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := workbook.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("export write failed")
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(w http.ResponseWriter, path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusBadRequest, "reservation id is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return 0, false
	}
	return id, true
}
