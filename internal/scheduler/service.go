// Package scheduler is the booking orchestrator: it resolves bookable
// slots, turns booking requests into at-most-one appointment per slot,
// drives the appointment status machine and triggers the best-effort
// calendar and notification side effects.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coachly/internal/lock"
	"coachly/internal/logging"
	"coachly/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrPastDate rejects bookings and availability for dates already gone.
	ErrPastDate = errors.New("date is in the past")

	// ErrDateTooFar rejects bookings beyond the allowed window.
	ErrDateTooFar = errors.New("date is too far in the future")

	// ErrSlotNotOffered rejects a booking for a slot the coach never published.
	ErrSlotNotOffered = errors.New("slot is not offered by the coach")

	// ErrSlotContended means another booking holds the advisory lock
	// for this slot right now; the caller should simply retry.
	ErrSlotContended = errors.New("slot is being booked by someone else, try again")
)

// Store is the persistence the orchestrator depends on.
type Store interface {
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string) error
	SetCalendarEvent(ctx context.Context, id, eventID, calendarLink string) error
	SetMeetLink(ctx context.Context, id, meetLink string) error
	GetActiveSlotHolders(ctx context.Context, coachID, date string) (map[string]string, error)
	GetAppointmentsByCoach(ctx context.Context, coachID string) ([]*models.Appointment, error)
	GetAppointmentsByTalent(ctx context.Context, talentID string) ([]*models.Appointment, error)
	GetConfirmedAppointments(ctx context.Context, coachID string) ([]*models.Appointment, error)
	SaveAvailability(ctx context.Context, av *models.Availability) error
	GetAvailability(ctx context.Context, coachID, date string) (*models.Availability, error)
}

// CalendarBridge mirrors confirmed appointments into the external calendar.
type CalendarBridge interface {
	CreateEvent(ctx context.Context, ev *models.CalendarEvent) (*models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// Notifier delivers transactional emails; every call is best-effort.
type Notifier interface {
	SendNewAppointment(ctx context.Context, payload models.NotificationPayload) bool
	SendAppointmentConfirmation(ctx context.Context, payload models.NotificationPayload) bool
	SendStatusUpdate(ctx context.Context, payload models.NotificationPayload) bool
}

// ProfileDirectory resolves a user's email and display name.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, userID, role string) (*models.Profile, error)
}

type Service struct {
	store    Store
	locker   lock.SlotLocker
	calendar CalendarBridge
	notifier Notifier
	profiles ProfileDirectory
	logger   zerolog.Logger

	meetBaseURL    string
	maxBookingDays int
	effectTimeout  time.Duration
}

type Options struct {
	MeetBaseURL    string
	MaxBookingDays int
	EffectTimeout  time.Duration
}

func NewService(
	store Store,
	locker lock.SlotLocker,
	calendar CalendarBridge,
	notifier Notifier,
	profiles ProfileDirectory,
	logger *zerolog.Logger,
	opts Options,
) *Service {
	svcLogger := logging.Component(logger, "scheduler")
	if opts.MaxBookingDays <= 0 {
		opts.MaxBookingDays = 90
	}
	if opts.EffectTimeout <= 0 {
		opts.EffectTimeout = models.SideEffectTimeout
	}
	return &Service{
		store:          store,
		locker:         locker,
		calendar:       calendar,
		notifier:       notifier,
		profiles:       profiles,
		logger:         svcLogger,
		meetBaseURL:    opts.MeetBaseURL,
		maxBookingDays: opts.MaxBookingDays,
		effectTimeout:  opts.EffectTimeout,
	}
}

// SaveAvailability publishes a coach's slot set for one date,
// replacing whatever was published before.
func (s *Service) SaveAvailability(ctx context.Context, coachID, date string, slots []string, tz string) error {
	if coachID == "" {
		return fmt.Errorf("%w: coach id is required", models.ErrValidation)
	}
	if err := models.ValidateDate(date); err != nil {
		return err
	}
	for _, slot := range slots {
		if err := models.ValidateSlot(slot); err != nil {
			return err
		}
	}
	if tz == "" {
		tz = models.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", models.ErrValidation, tz)
	}

	return s.store.SaveAvailability(ctx, &models.Availability{
		CoachID:   coachID,
		Date:      date,
		TimeSlots: slots,
		Timezone:  tz,
	})
}

// GetAvailability returns the published slot set; empty when the
// coach published nothing for that date.
func (s *Service) GetAvailability(ctx context.Context, coachID, date string) (*models.Availability, error) {
	av, err := s.store.GetAvailability(ctx, coachID, date)
	if err != nil {
		return nil, err
	}
	if av == nil {
		return &models.Availability{
			CoachID:   coachID,
			Date:      date,
			TimeSlots: []string{},
			Timezone:  models.DefaultTimezone,
		}, nil
	}
	return av, nil
}

// AvailableSlots computes the actually bookable slots: published minus
// those held by a non-cancelled appointment. Always recomputed; slots
// are contended by concurrent talents so nothing here may be cached.
func (s *Service) AvailableSlots(ctx context.Context, coachID, date string) ([]string, error) {
	av, err := s.GetAvailability(ctx, coachID, date)
	if err != nil {
		return nil, err
	}
	if len(av.TimeSlots) == 0 {
		return []string{}, nil
	}

	holders, err := s.store.GetActiveSlotHolders(ctx, coachID, date)
	if err != nil {
		return nil, err
	}

	open := make([]string, 0, len(av.TimeSlots))
	for _, slot := range av.TimeSlots {
		if _, taken := holders[slot]; !taken {
			open = append(open, slot)
		}
	}
	return open, nil
}

// IsSlotAvailable is the advisory pre-flight check the booking UI
// runs before asking for a reason. The authoritative check happens
// again inside CreateAppointment at write time.
func (s *Service) IsSlotAvailable(ctx context.Context, coachID, date, slot string) (bool, error) {
	open, err := s.AvailableSlots(ctx, coachID, date)
	if err != nil {
		return false, err
	}
	for _, o := range open {
		if o == slot {
			return true, nil
		}
	}
	return false, nil
}

func today() string {
	return time.Now().Format(models.DateLayout)
}

// effectContext detaches a side effect from the request's cancellation
// while still bounding it, so a slow provider cannot stall the
// user-visible transaction result beyond the timeout.
func (s *Service) effectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.effectTimeout)
}
