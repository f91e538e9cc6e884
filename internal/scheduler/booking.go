package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coachly/internal/database"
	"coachly/internal/metrics"
	"coachly/internal/models"
)

// BookingRequest carries a talent's booking action.
type BookingRequest struct {
	CoachID     string `json:"coach_id"`
	CoachName   string `json:"coach_name"`
	TalentID    string `json:"talent_id"`
	TalentName  string `json:"talent_name"`
	TalentEmail string `json:"talent_email"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    int    `json:"duration"`
	Type        string `json:"type"`
	Notes       string `json:"notes"`
}

func (r *BookingRequest) validate() error {
	switch {
	case r.CoachID == "":
		return fmt.Errorf("%w: coach id is required", models.ErrValidation)
	case r.TalentID == "":
		return fmt.Errorf("%w: talent id is required", models.ErrValidation)
	case r.TalentName == "":
		return fmt.Errorf("%w: talent name is required", models.ErrValidation)
	case r.TalentEmail == "":
		return fmt.Errorf("%w: talent email is required", models.ErrValidation)
	}
	if err := models.ValidateDate(r.Date); err != nil {
		return err
	}
	if err := models.ValidateSlot(r.Time); err != nil {
		return err
	}
	if r.Type != "" && !models.ValidType(r.Type) {
		return fmt.Errorf("%w: unknown session type %q", models.ErrValidation, r.Type)
	}
	return nil
}

// CreateAppointment resolves a booking request into at most one
// pending appointment for the slot. The UI's IsSlotAvailable check is
// advisory; the conflict check here, behind the slot lock and inside
// the store transaction, is the authoritative one.
func (s *Service) CreateAppointment(ctx context.Context, req BookingRequest) (*models.Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := s.checkBookingWindow(req.Date); err != nil {
		return nil, err
	}

	av, err := s.store.GetAvailability(ctx, req.CoachID, req.Date)
	if err != nil {
		return nil, err
	}
	if av == nil || !contains(av.TimeSlots, req.Time) {
		return nil, ErrSlotNotOffered
	}

	acquired, err := s.locker.Acquire(ctx, req.CoachID, req.Date, req.Time, models.SlotLockTTL)
	if err != nil {
		// The failover locker already degraded; a hard error here
		// means both layers failed. Proceed on the transactional
		// check alone rather than blocking all bookings.
		s.logger.Error().Err(err).Msg("slot lock unavailable, relying on store conflict check")
	} else if !acquired {
		return nil, ErrSlotContended
	} else {
		defer func() {
			_ = s.locker.Release(ctx, req.CoachID, req.Date, req.Time)
		}()
	}

	appt := &models.Appointment{
		CoachID:     req.CoachID,
		CoachName:   req.CoachName,
		TalentID:    req.TalentID,
		TalentName:  req.TalentName,
		TalentEmail: req.TalentEmail,
		Date:        req.Date,
		Time:        req.Time,
		Duration:    req.Duration,
		Type:        req.Type,
		Notes:       strings.TrimSpace(req.Notes),
	}
	if appt.Duration <= 0 {
		appt.Duration = models.DefaultDuration
	}
	if appt.Type == "" {
		appt.Type = models.TypeOther
	}

	if err := s.store.CreateAppointment(ctx, appt); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncBooking("conflict")
		} else {
			metrics.IncBooking("error")
		}
		return nil, err
	}
	metrics.IncBooking("created")

	// Notifications are fire-and-forget relative to the booking:
	// the appointment exists whether or not anyone hears about it.
	s.notifyBoth(ctx, appt, av.Timezone, notifyNew)

	return appt, nil
}

func (s *Service) checkBookingWindow(date string) error {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return err
	}
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(todayStart) {
		return ErrPastDate
	}
	if d.After(todayStart.AddDate(0, 0, s.maxBookingDays)) {
		return ErrDateTooFar
	}
	return nil
}

func contains(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

type notifyKind int

const (
	notifyNew notifyKind = iota
	notifyConfirmed
	notifyUpdate
)

// notifyBoth notifies talent and coach independently; a failure for
// one recipient never blocks the other, and neither failure surfaces.
func (s *Service) notifyBoth(ctx context.Context, appt *models.Appointment, tz string, kind notifyKind) {
	if s.notifier == nil {
		return
	}
	effectCtx, cancel := s.effectContext(ctx)
	defer cancel()

	base := models.NotificationPayload{
		CoachName:   appt.CoachName,
		TalentName:  appt.TalentName,
		Date:        appt.Date,
		Time:        appt.Time,
		Timezone:    tz,
		Duration:    appt.Duration,
		SessionType: appt.Type,
		MeetLink:    appt.MeetLink,
	}

	talent := base
	talent.RecipientEmail = appt.TalentEmail
	talent.RecipientName = appt.TalentName
	s.dispatch(effectCtx, appt.ID, "talent", talent, kind)

	coachPayload, ok := s.coachPayload(effectCtx, appt, base)
	if !ok {
		return
	}
	s.dispatch(effectCtx, appt.ID, "coach", coachPayload, kind)
}

func (s *Service) coachPayload(ctx context.Context, appt *models.Appointment, base models.NotificationPayload) (models.NotificationPayload, bool) {
	if s.profiles == nil {
		return base, false
	}
	profile, err := s.profiles.GetProfile(ctx, appt.CoachID, models.RoleCoach)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("coach_id", appt.CoachID).
			Msg("coach profile lookup failed, coach not notified")
		return base, false
	}
	base.RecipientEmail = profile.Email
	base.RecipientName = profile.DisplayName
	return base, true
}

func (s *Service) dispatch(ctx context.Context, apptID, role string, payload models.NotificationPayload, kind notifyKind) {
	var delivered bool
	switch kind {
	case notifyNew:
		delivered = s.notifier.SendNewAppointment(ctx, payload)
	case notifyConfirmed:
		delivered = s.notifier.SendAppointmentConfirmation(ctx, payload)
	default:
		delivered = s.notifier.SendStatusUpdate(ctx, payload)
	}
	if !delivered {
		s.logger.Warn().
			Str("appointment_id", apptID).
			Str("recipient_role", role).
			Msg("notification not delivered")
	}
}
