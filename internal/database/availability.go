package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coachly/internal/models"
)

// SaveAvailability replaces the published slot set for (coach, date).
// Full replace, not merge: the incoming set wins.
func (db *DB) SaveAvailability(ctx context.Context, av *models.Availability) error {
	slots, err := json.Marshal(models.NormalizeSlots(av.TimeSlots))
	if err != nil {
		return fmt.Errorf("failed to encode time slots: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO coach_availabilities (key, coach_id, date, time_slots, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			time_slots = excluded.time_slots,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at`
	_, err = db.ExecContext(ctx, query,
		av.Key(),
		av.CoachID,
		av.Date,
		string(slots),
		av.Timezone,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save availability: %w", err)
	}

	db.logger.Info().
		Str("coach_id", av.CoachID).
		Str("date", av.Date).
		Int("slots", len(av.TimeSlots)).
		Msg("availability saved")
	return nil
}

// GetAvailability returns the published record for (coach, date), or
// nil when the coach published nothing for that date.
func (db *DB) GetAvailability(ctx context.Context, coachID, date string) (*models.Availability, error) {
	query := `SELECT coach_id, date, time_slots, timezone, created_at, updated_at
		FROM coach_availabilities WHERE key = ?`

	var av models.Availability
	var slots string
	err := db.QueryRowContext(ctx, query, coachID+"_"+date).Scan(
		&av.CoachID,
		&av.Date,
		&slots,
		&av.Timezone,
		&av.CreatedAt,
		&av.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}

	if err := json.Unmarshal([]byte(slots), &av.TimeSlots); err != nil {
		return nil, fmt.Errorf("failed to decode time slots: %w", err)
	}
	return &av, nil
}

// GetCoachAvailabilities lists every published date for a coach,
// newest first.
func (db *DB) GetCoachAvailabilities(ctx context.Context, coachID string) ([]*models.Availability, error) {
	query := `SELECT coach_id, date, time_slots, timezone, created_at, updated_at
		FROM coach_availabilities WHERE coach_id = ? ORDER BY date DESC`

	rows, err := db.QueryContext(ctx, query, coachID)
	if err != nil {
		return nil, fmt.Errorf("failed to query availabilities: %w", err)
	}
	defer rows.Close()

	var out []*models.Availability
	for rows.Next() {
		var av models.Availability
		var slots string
		if err := rows.Scan(&av.CoachID, &av.Date, &slots, &av.Timezone, &av.CreatedAt, &av.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		if err := json.Unmarshal([]byte(slots), &av.TimeSlots); err != nil {
			return nil, fmt.Errorf("failed to decode time slots: %w", err)
		}
		out = append(out, &av)
	}
	return out, rows.Err()
}
