package models

import "time"

type Appointment struct {
	ID            string    `json:"id"`
	CoachID       string    `json:"coach_id"`
	CoachName     string    `json:"coach_name"`
	TalentID      string    `json:"talent_id"`
	TalentName    string    `json:"talent_name"`
	TalentEmail   string    `json:"talent_email"`
	Date          string    `json:"date"` // YYYY-MM-DD, coach-local calendar date
	Time          string    `json:"time"` // HH:MM, coach-local wall clock
	Duration      int       `json:"duration"`
	Type          string    `json:"type"`
	Status        string    `json:"status"` // pending, confirmed, cancelled
	Notes         string    `json:"notes,omitempty"`
	GoogleEventID string    `json:"google_event_id,omitempty"`
	MeetLink      string    `json:"meet_link,omitempty"`
	CalendarLink  string    `json:"calendar_link,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsActive reports whether the appointment still holds its slot.
func (a *Appointment) IsActive() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// IsUpcoming reports whether the appointment is confirmed and not yet past.
func (a *Appointment) IsUpcoming(today string) bool {
	return a.Status == StatusConfirmed && a.Date >= today
}

// IsPast classifies by date only; a cancelled appointment on a past
// date still counts as past.
func (a *Appointment) IsPast(today string) bool {
	return a.Date < today
}
