package models

import "time"

// Availability is the set of slots a coach offers for one calendar date.
// Keyed by (CoachID, Date); saving replaces the whole slot set.
type Availability struct {
	CoachID   string    `json:"coach_id" yaml:"coach_id"`
	Date      string    `json:"date" yaml:"date"`
	TimeSlots []string  `json:"time_slots" yaml:"time_slots"`
	Timezone  string    `json:"timezone" yaml:"timezone"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Key encodes the composite document key used by the store.
func (a *Availability) Key() string {
	return a.CoachID + "_" + a.Date
}
