package models

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	TypeCVReview   = "cv_review"
	TypeInterview  = "interview_prep"
	TypeConfidence = "confidence_coaching"
	TypeOther      = "other"
)

const (
	RoleCoach  = "coach"
	RoleTalent = "talent"
)

const (
	// DateLayout is the canonical calendar-date encoding.
	DateLayout = "2006-01-02"

	// TimeLayout is the canonical slot time-of-day encoding.
	TimeLayout = "15:04"

	// SlotMinutes is the slot grid granularity.
	SlotMinutes = 30

	// DefaultDuration is the session length when a booking omits it.
	DefaultDuration = 30

	// DefaultTimezone is used when a coach publishes availability
	// without an explicit zone.
	DefaultTimezone = "UTC"
)

const (
	// SlotLockTTL bounds how long a booking may hold the advisory
	// lock on a (coach, date, time) key.
	SlotLockTTL = 10 * time.Second

	// SideEffectTimeout bounds calendar sync and notification sends
	// so a slow provider cannot stall a status update.
	SideEffectTimeout = 15 * time.Second
)

// ValidType reports whether t is a known session type.
func ValidType(t string) bool {
	switch t {
	case TypeCVReview, TypeInterview, TypeConfidence, TypeOther:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}
