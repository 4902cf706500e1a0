package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"villamar/internal/models"
)

const reservationColumns = `id, user_id, cottage_id, cottage_name, cottage_price, guest_name,
                 email, contact_number, number_of_guests, address, date(check_in),
                 date(check_out), payment, proof_of_payment, total_amount, status,
                 created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	r := &models.Reservation{}
	var checkInStr, checkOutStr string
	err := row.Scan(
		&r.ID, &r.UserID, &r.CottageID, &r.CottageName, &r.CottagePrice, &r.GuestName,
		&r.Email, &r.ContactNumber, &r.NumberOfGuests, &r.Address, &checkInStr,
		&checkOutStr, &r.Payment, &r.ProofOfPayment, &r.TotalAmount, &r.Status,
		&r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}

	if r.CheckIn, err = time.Parse(models.DayFormat, checkInStr); err != nil {
		return nil, fmt.Errorf("failed to parse check-in date %s: %w", checkInStr, err)
	}
	if r.CheckOut, err = time.Parse(models.DayFormat, checkOutStr); err != nil {
		return nil, fmt.Errorf("failed to parse check-out date %s: %w", checkOutStr, err)
	}
	return r, nil
}

// CreateReservationWithLock admits a reservation atomically: the duplicate
// guard, the conditional capacity increment and the ledger insert all run
// inside one transaction, so two concurrent admissions for the last slot of
// a (cottage, day) can never both commit.
func (db *DB) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	cottage, ok := db.GetCottageByID(r.CottageID)
	if !ok {
		return ErrUnknownCottage
	}

	day := r.CheckIn.Format(models.DayFormat)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Duplicate guard: same user, cottage and check-in day, not cancelled.
	var dupes int
	queryDup := `SELECT COUNT(*) FROM reservations
	             WHERE user_id = ? AND cottage_id = ? AND date(check_in) = ? AND status != ?`
	err = tx.QueryRowContext(ctx, queryDup, r.UserID, r.CottageID, day, models.StatusCancelled).Scan(&dupes)
	if err != nil {
		return fmt.Errorf("failed to check duplicate booking in tx: %w", err)
	}
	if dupes > 0 {
		return ErrDuplicateBooking
	}

	// 2. Lazily create the capacity row for this (cottage, day).
	queryInit := `INSERT INTO daily_capacity (cottage_id, day, booked_count, max_capacity)
	              VALUES (?, ?, 0, ?)
	              ON CONFLICT(cottage_id, day) DO NOTHING`
	if _, err = tx.ExecContext(ctx, queryInit, r.CottageID, day, cottage.MaxCapacity); err != nil {
		return fmt.Errorf("failed to init capacity row in tx: %w", err)
	}

	// 3. Conditional increment. The precondition booked_count < max_capacity
	// is checked by the same statement that increments, so a plain
	// read-then-write race is impossible.
	queryInc := `UPDATE daily_capacity SET booked_count = booked_count + 1
	             WHERE cottage_id = ? AND day = ? AND booked_count < max_capacity`
	result, err := tx.ExecContext(ctx, queryInc, r.CottageID, day)
	if err != nil {
		return fmt.Errorf("failed to increment capacity in tx: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected in tx: %w", err)
	}
	if rows == 0 {
		return ErrCapacityExceeded
	}

	// 4. Ledger insert.
	queryInsert := `INSERT INTO reservations (
	            user_id, cottage_id, cottage_name, cottage_price, guest_name, email,
	            contact_number, number_of_guests, address, check_in, check_out,
	            payment, proof_of_payment, total_amount, status, created_at, updated_at, version
	        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	insertResult, err := tx.ExecContext(ctx, queryInsert,
		r.UserID,
		r.CottageID,
		r.CottageName,
		r.CottagePrice,
		r.GuestName,
		r.Email,
		r.ContactNumber,
		r.NumberOfGuests,
		r.Address,
		r.CheckIn.Format(models.DayFormat),
		r.CheckOut.Format(models.DayFormat),
		r.Payment,
		r.ProofOfPayment,
		r.TotalAmount,
		r.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := insertResult.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	return tx.Commit()
}

// CancelReservationWithLock flips the status to cancelled and releases the
// capacity slot in the same transaction. The decrement is floored at zero;
// a missing capacity row skips the decrement rather than failing the
// cancellation.
func (db *DB) CancelReservationWithLock(ctx context.Context, id, version int64) (*models.Reservation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation in tx: %w", err)
	}

	queryStatus := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ?
	                WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, queryStatus, models.StatusCancelled, time.Now(), id, version)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reservation in tx: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrConcurrentModification
	}

	day := r.CheckIn.Format(models.DayFormat)
	queryDec := `UPDATE daily_capacity SET booked_count = MAX(booked_count - 1, 0)
	             WHERE cottage_id = ? AND day = ?`
	if _, err = tx.ExecContext(ctx, queryDec, r.CottageID, day); err != nil {
		return nil, fmt.Errorf("failed to release capacity in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.Status = models.StatusCancelled
	r.Version = version + 1
	return r, nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func (db *DB) UpdateReservationStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// CompleteFinishedReservations transitions every confirmed reservation whose
// check-out is on or before today to completed. Re-running selects only rows
// still confirmed, so the sweep is idempotent. Capacity is intentionally not
// released for naturally completed stays.
func (db *DB) CompleteFinishedReservations(ctx context.Context, today time.Time) (int64, error) {
	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ?
	          WHERE status = ? AND date(check_out) <= ?`
	result, err := db.ExecContext(ctx, query,
		models.StatusCompleted, time.Now(), models.StatusConfirmed, today.Format(models.DayFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to complete finished reservations: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

func (db *DB) HasActiveReservation(ctx context.Context, userID int64, cottageID string, checkInDay time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM reservations
	          WHERE user_id = ? AND cottage_id = ? AND date(check_in) = ? AND status != ?`
	var count int
	err := db.QueryRowContext(ctx, query, userID, cottageID,
		checkInDay.Format(models.DayFormat), models.StatusCancelled).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active reservation: %w", err)
	}
	return count > 0, nil
}

func (db *DB) GetUserReservations(ctx context.Context, userID int64) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func (db *DB) GetReservationsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE date(check_in) >= ? AND date(check_in) <= ? ORDER BY check_in ASC, created_at ASC`
	rows, err := db.QueryContext(ctx, query,
		startDate.Format(models.DayFormat), endDate.Format(models.DayFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by date range: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func (db *DB) GetDailyReservations(ctx context.Context, startDate, endDate time.Time) (map[string][]*models.Reservation, error) {
	reservations, err := db.GetReservationsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	daily := make(map[string][]*models.Reservation)
	for _, r := range reservations {
		dateKey := r.CheckIn.Format(models.DayFormat)
		daily[dateKey] = append(daily[dateKey], r)
	}
	return daily, nil
}
