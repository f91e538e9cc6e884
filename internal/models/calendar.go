package models

import "time"

// CalendarEvent mirrors a confirmed appointment in the external
// calendar. It is derived state: the appointment record owns the
// truth and the event is reconciled to it.
type CalendarEvent struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Timezone    string     `json:"timezone"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	MeetLink    string     `json:"meet_link,omitempty"`
	HTMLLink    string     `json:"html_link,omitempty"`
}

type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// EventPatch carries a partial update; nil fields are left untouched.
type EventPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Timezone    *string    `json:"timezone,omitempty"`
}
