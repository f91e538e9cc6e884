package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coachly/internal/models"

	"github.com/google/uuid"
)

const appointmentColumns = `id, coach_id, coach_name, talent_id, talent_name, talent_email,
		date, time, duration, type, status, notes, google_event_id, meet_link, calendar_link,
		created_at, updated_at`

// CreateAppointment inserts a new pending appointment after checking,
// inside the same transaction, that no non-cancelled appointment holds
// the (coach, date, time) key. Returns *ConflictError when it does.
func (db *DB) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var holder string
	queryConflict := `SELECT talent_name FROM appointments
		WHERE coach_id = ? AND date = ? AND time = ? AND status IN (?, ?)
		LIMIT 1`
	err = tx.QueryRowContext(ctx, queryConflict,
		appt.CoachID, appt.Date, appt.Time,
		models.StatusPending, models.StatusConfirmed).Scan(&holder)
	switch {
	case err == nil:
		return &ConflictError{
			CoachID:    appt.CoachID,
			Date:       appt.Date,
			Time:       appt.Time,
			TalentName: holder,
		}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check slot conflict: %w", err)
	}

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now()
	appt.Status = models.StatusPending
	appt.CreatedAt = now
	appt.UpdatedAt = now

	queryInsert := `INSERT INTO appointments (
			id, coach_id, coach_name, talent_id, talent_name, talent_email,
			date, time, duration, type, status, notes, google_event_id,
			meet_link, calendar_link, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		appt.ID,
		appt.CoachID,
		appt.CoachName,
		appt.TalentID,
		appt.TalentName,
		appt.TalentEmail,
		appt.Date,
		appt.Time,
		appt.Duration,
		appt.Type,
		appt.Status,
		nullable(appt.Notes),
		nullable(appt.GoogleEventID),
		nullable(appt.MeetLink),
		nullable(appt.CalendarLink),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit appointment: %w", err)
	}

	db.logger.Info().
		Str("appointment_id", appt.ID).
		Str("coach_id", appt.CoachID).
		Str("date", appt.Date).
		Str("time", appt.Time).
		Msg("appointment created")
	return nil
}

func (db *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	appt, err := scanAppointment(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// UpdateAppointmentStatus moves an appointment forward through the
// pending -> confirmed -> cancelled machine. Cancelled is terminal.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	if !models.ValidStatus(status) {
		return ErrInvalidStatus
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM appointments WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load appointment status: %w", err)
	}

	if current == models.StatusCancelled && status != models.StatusCancelled {
		return ErrCancelledTerminal
	}
	if !validTransition(current, status) {
		return ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}

	db.logger.Info().
		Str("appointment_id", id).
		Str("from", current).
		Str("to", status).
		Msg("appointment status updated")
	return nil
}

// validTransition reports whether the status machine allows moving
// from current to next. Repeating the current status is an idempotent
// no-op; otherwise the status only moves forward.
func validTransition(current, next string) bool {
	if current == next {
		return true
	}
	switch current {
	case models.StatusPending:
		return next == models.StatusConfirmed || next == models.StatusCancelled
	case models.StatusConfirmed:
		return next == models.StatusCancelled
	}
	return false
}

// SetCalendarEvent stores the external event id and link after a sync.
func (db *DB) SetCalendarEvent(ctx context.Context, id, eventID, calendarLink string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE appointments SET google_event_id = ?, calendar_link = ?, updated_at = ? WHERE id = ?`,
		eventID, nullable(calendarLink), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set calendar event: %w", err)
	}
	return checkAffected(res)
}

// SetMeetLink stores the generated meeting-room link.
func (db *DB) SetMeetLink(ctx context.Context, id, meetLink string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE appointments SET meet_link = ?, updated_at = ? WHERE id = ?`,
		meetLink, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set meet link: %w", err)
	}
	return checkAffected(res)
}

// GetActiveSlotHolders returns time -> talent name for every
// non-cancelled appointment of a coach on a date.
func (db *DB) GetActiveSlotHolders(ctx context.Context, coachID, date string) (map[string]string, error) {
	query := `SELECT time, talent_name FROM appointments
		WHERE coach_id = ? AND date = ? AND status IN (?, ?)`
	rows, err := db.QueryContext(ctx, query, coachID, date,
		models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get booked slots: %w", err)
	}
	defer rows.Close()

	holders := make(map[string]string)
	for rows.Next() {
		var slot, talent string
		if err := rows.Scan(&slot, &talent); err != nil {
			return nil, fmt.Errorf("failed to scan booked slot: %w", err)
		}
		holders[slot] = talent
	}
	return holders, rows.Err()
}

func (db *DB) GetAppointmentsByCoach(ctx context.Context, coachID string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE coach_id = ? ORDER BY date, time`
	return db.queryAppointments(ctx, query, coachID)
}

func (db *DB) GetAppointmentsByTalent(ctx context.Context, talentID string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE talent_id = ? ORDER BY date, time`
	return db.queryAppointments(ctx, query, talentID)
}

// GetConfirmedAppointments returns every confirmed appointment of a
// coach, used by batch calendar re-sync.
func (db *DB) GetConfirmedAppointments(ctx context.Context, coachID string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE coach_id = ? AND status = ? ORDER BY date, time`
	return db.queryAppointments(ctx, query, coachID, models.StatusConfirmed)
}

func (db *DB) GetAppointmentsByDateRange(ctx context.Context, coachID, startDate, endDate string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE coach_id = ? AND date BETWEEN ? AND ? ORDER BY date, time`
	return db.queryAppointments(ctx, query, coachID, startDate, endDate)
}

// DeleteAppointment hard-deletes a record. Not used by the booking
// flow, which cancels instead; kept for administrative cleanup.
func (db *DB) DeleteAppointment(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return checkAffected(res)
}

func (db *DB) queryAppointments(ctx context.Context, query string, args ...any) ([]*models.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appts []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var appt models.Appointment
	var notes, eventID, meetLink, calendarLink sql.NullString
	err := row.Scan(
		&appt.ID,
		&appt.CoachID,
		&appt.CoachName,
		&appt.TalentID,
		&appt.TalentName,
		&appt.TalentEmail,
		&appt.Date,
		&appt.Time,
		&appt.Duration,
		&appt.Type,
		&appt.Status,
		&notes,
		&eventID,
		&meetLink,
		&calendarLink,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.Notes = notes.String
	appt.GoogleEventID = eventID.String
	appt.MeetLink = meetLink.String
	appt.CalendarLink = calendarLink.String
	return &appt, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
