package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coachly/internal/metrics"
	"coachly/internal/models"

	"github.com/google/uuid"
)

// UpdateAppointmentStatus moves the appointment through its status
// machine and triggers the downstream effects. The status write is
// the transaction; calendar sync and notifications run after it and
// their failures never roll it back.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	if err := s.store.UpdateAppointmentStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}

	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return fmt.Errorf("reload appointment: %w", err)
	}

	tz := s.appointmentTimezone(ctx, appt)

	kind := notifyUpdate
	if status == models.StatusConfirmed {
		kind = notifyConfirmed
		s.confirmEffects(ctx, appt, tz)
		// Pick up the meet link the effects may have stored.
		if fresh, err := s.store.GetAppointment(ctx, id); err == nil {
			appt = fresh
		}
	}
	if status == models.StatusCancelled {
		s.cancelEffects(ctx, appt)
	}

	s.notifyBoth(ctx, appt, tz, kind)
	return nil
}

// CancelAppointment is sugar for the cancelled transition.
func (s *Service) CancelAppointment(ctx context.Context, id string) error {
	return s.UpdateAppointmentStatus(ctx, id, models.StatusCancelled)
}

// confirmEffects generates the meeting link and mirrors the
// appointment into the external calendar. Both are best-effort: the
// confirmation stands even if the provider is down, and the meeting
// link is saved regardless of the calendar outcome because the link,
// not the event, is what users join with.
func (s *Service) confirmEffects(ctx context.Context, appt *models.Appointment, tz string) {
	effectCtx, cancel := s.effectContext(ctx)
	defer cancel()

	if appt.MeetLink == "" {
		link := s.generateMeetLink()
		if err := s.store.SetMeetLink(effectCtx, appt.ID, link); err != nil {
			s.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("failed to save meet link")
		} else {
			appt.MeetLink = link
		}
	}

	if s.calendar == nil {
		metrics.IncCalendarSync("skipped")
		return
	}
	// Idempotency: a second confirm call must not create a second event.
	if appt.GoogleEventID != "" {
		metrics.IncCalendarSync("skipped")
		return
	}

	created, err := s.calendar.CreateEvent(effectCtx, s.buildEvent(appt, tz))
	if err != nil {
		metrics.IncCalendarSync("failed")
		s.logger.Warn().Err(err).
			Str("appointment_id", appt.ID).
			Msg("calendar sync failed, appointment remains confirmed")
		return
	}

	if err := s.store.SetCalendarEvent(effectCtx, appt.ID, created.ID, created.HTMLLink); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("failed to store calendar event id")
	}
	appt.GoogleEventID = created.ID

	// A provider-issued conference link supersedes the generated one.
	if created.MeetLink != "" {
		if err := s.store.SetMeetLink(effectCtx, appt.ID, created.MeetLink); err == nil {
			appt.MeetLink = created.MeetLink
		}
	}
	metrics.IncCalendarSync("ok")
}

// cancelEffects removes the mirrored event so the external calendar
// does not advertise a cancelled session.
func (s *Service) cancelEffects(ctx context.Context, appt *models.Appointment) {
	if s.calendar == nil || appt.GoogleEventID == "" {
		return
	}
	effectCtx, cancel := s.effectContext(ctx)
	defer cancel()

	if err := s.calendar.DeleteEvent(effectCtx, appt.GoogleEventID); err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", appt.ID).
			Str("event_id", appt.GoogleEventID).
			Msg("failed to delete calendar event for cancelled appointment")
	}
}

func (s *Service) generateMeetLink() string {
	base := strings.TrimSuffix(s.meetBaseURL, "/")
	return fmt.Sprintf("%s/coachly-%s", base, uuid.NewString()[:8])
}

func (s *Service) appointmentTimezone(ctx context.Context, appt *models.Appointment) string {
	av, err := s.store.GetAvailability(ctx, appt.CoachID, appt.Date)
	if err != nil || av == nil || av.Timezone == "" {
		return models.DefaultTimezone
	}
	return av.Timezone
}

func (s *Service) buildEvent(appt *models.Appointment, tz string) *models.CalendarEvent {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
		tz = models.DefaultTimezone
	}
	start, err := time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, appt.Date+" "+appt.Time, loc)
	if err != nil {
		start = time.Now().In(loc)
	}

	description := fmt.Sprintf("Coachly session between %s and %s.", appt.CoachName, appt.TalentName)
	if appt.Notes != "" {
		description += "\n\nNotes: " + appt.Notes
	}
	if appt.MeetLink != "" {
		description += "\n\nJoin: " + appt.MeetLink
	}

	return &models.CalendarEvent{
		Title:       fmt.Sprintf("Coaching session: %s with %s", appt.CoachName, appt.TalentName),
		Description: description,
		Start:       start,
		End:         start.Add(time.Duration(appt.Duration) * time.Minute),
		Timezone:    tz,
		Attendees: []models.Attendee{
			{Email: appt.TalentEmail, DisplayName: appt.TalentName},
		},
	}
}

// SyncReport summarizes a batch re-sync.
type SyncReport struct {
	Synced int      `json:"synced"`
	Errors []string `json:"errors,omitempty"`
}

// SyncAllAppointments mirrors every confirmed appointment of a coach
// into the calendar. Partial failure is reported per item, never
// fatal to the batch.
func (s *Service) SyncAllAppointments(ctx context.Context, coachID string) (*SyncReport, error) {
	if s.calendar == nil {
		return nil, fmt.Errorf("calendar bridge is not configured")
	}

	appts, err := s.store.GetConfirmedAppointments(ctx, coachID)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	for _, appt := range appts {
		if appt.GoogleEventID != "" {
			continue // already mirrored
		}
		tz := s.appointmentTimezone(ctx, appt)
		created, err := s.calendar.CreateEvent(ctx, s.buildEvent(appt, tz))
		if err != nil {
			metrics.IncCalendarSync("failed")
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", appt.ID, err))
			continue
		}
		if err := s.store.SetCalendarEvent(ctx, appt.ID, created.ID, created.HTMLLink); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: store event id: %v", appt.ID, err))
			continue
		}
		metrics.IncCalendarSync("ok")
		report.Synced++
	}
	return report, nil
}

// UpcomingAppointments returns confirmed appointments on or after
// today. Derived at read time, never stored.
func (s *Service) UpcomingAppointments(ctx context.Context, coachID string) ([]*models.Appointment, error) {
	appts, err := s.store.GetAppointmentsByCoach(ctx, coachID)
	if err != nil {
		return nil, err
	}
	now := today()
	out := make([]*models.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.IsUpcoming(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// PastAppointments returns appointments dated before today,
// regardless of status.
func (s *Service) PastAppointments(ctx context.Context, coachID string) ([]*models.Appointment, error) {
	appts, err := s.store.GetAppointmentsByCoach(ctx, coachID)
	if err != nil {
		return nil, err
	}
	now := today()
	out := make([]*models.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.IsPast(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// TalentAppointments lists a talent's bookings in chronological order.
func (s *Service) TalentAppointments(ctx context.Context, talentID string) ([]*models.Appointment, error) {
	return s.store.GetAppointmentsByTalent(ctx, talentID)
}

// GetAppointment exposes a single record for display.
func (s *Service) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	return s.store.GetAppointment(ctx, id)
}
