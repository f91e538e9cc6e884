// Package google mirrors confirmed appointments into Google Calendar.
// The appointment record owns the truth; events here are derived and
// reconciled to it, never the reverse.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"coachly/internal/config"
	"coachly/internal/logging"
	"coachly/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	// ErrNotAuthenticated means no usable calendar credential exists;
	// callers should prompt re-auth instead of treating this as an
	// empty calendar.
	ErrNotAuthenticated = errors.New("calendar: not authenticated")

	// ErrSessionExpired means the provider rejected a previously
	// working credential; the cached session has been cleared.
	ErrSessionExpired = errors.New("calendar: session expired")
)

type CalendarService struct {
	cfg    config.GoogleConfig
	logger zerolog.Logger

	mu  sync.Mutex
	svc *calendar.Service
}

func NewCalendarService(cfg config.GoogleConfig, logger *zerolog.Logger) *CalendarService {
	return &CalendarService{cfg: cfg, logger: logging.Component(logger, "calendar")}
}

// service lazily builds the calendar client from the stored OAuth
// credential. Missing or unreadable credential files surface as
// ErrNotAuthenticated, not as a crash.
func (s *CalendarService) service(ctx context.Context) (*calendar.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc != nil {
		return s.svc, nil
	}

	if s.cfg.CredentialsFile == "" || s.cfg.TokenFile == "" {
		return nil, ErrNotAuthenticated
	}

	credentialsJSON, err := os.ReadFile(s.cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read credentials: %v", ErrNotAuthenticated, err)
	}

	oauthCfg, err := googleauth.ConfigFromJSON(credentialsJSON, calendar.CalendarEventsScope, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse credentials: %v", ErrNotAuthenticated, err)
	}

	tokenJSON, err := os.ReadFile(s.cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read token: %v", ErrNotAuthenticated, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("%w: parse token: %v", ErrNotAuthenticated, err)
	}

	client := oauthCfg.Client(ctx, &token)
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	s.svc = svc
	return svc, nil
}

// clearSession drops the cached client so the next call rebuilds the
// credential from disk.
func (s *CalendarService) clearSession() {
	s.mu.Lock()
	s.svc = nil
	s.mu.Unlock()
}

// CreateEvent inserts the event into the configured calendar and
// requests a conference room for it.
func (s *CalendarService) CreateEvent(ctx context.Context, ev *models.CalendarEvent) (*models.CalendarEvent, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	created, err := svc.Events.Insert(s.cfg.CalendarID, toGoogleEvent(ev)).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.translateError(err, "insert event")
	}
	return fromGoogleEvent(created), nil
}

// UpdateEvent applies a partial patch; only fields present in the
// patch are sent to the provider.
func (s *CalendarService) UpdateEvent(ctx context.Context, eventID string, patch models.EventPatch) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	_, err = svc.Events.Patch(s.cfg.CalendarID, eventID, patchToGoogleEvent(patch)).
		Context(ctx).
		Do()
	if err != nil {
		return s.translateError(err, "patch event")
	}
	return nil
}

func (s *CalendarService) DeleteEvent(ctx context.Context, eventID string) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(s.cfg.CalendarID, eventID).Context(ctx).Do(); err != nil {
		return s.translateError(err, "delete event")
	}
	return nil
}

// GetEvents lists events between two RFC3339 instants for the
// calendar-grid display. An authentication failure clears the cached
// session and surfaces ErrSessionExpired, distinct from "no events".
func (s *CalendarService) GetEvents(ctx context.Context, startISO, endISO string) ([]models.CalendarEvent, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	list, err := svc.Events.List(s.cfg.CalendarID).
		TimeMin(startISO).
		TimeMax(endISO).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.translateError(err, "list events")
	}

	events := make([]models.CalendarEvent, 0, len(list.Items))
	for _, item := range list.Items {
		events = append(events, *fromGoogleEvent(item))
	}
	return events, nil
}

func (s *CalendarService) translateError(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		s.clearSession()
		s.logger.Warn().Int("code", apiErr.Code).Msg("calendar credential rejected, session cleared")
		return ErrSessionExpired
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toGoogleEvent(ev *models.CalendarEvent) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.Timezone,
		},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: ev.Title + ev.Start.Format("20060102T1504"),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, &calendar.EventAttendee{
			Email:       a.Email,
			DisplayName: a.DisplayName,
		})
	}
	return out
}

func fromGoogleEvent(ev *calendar.Event) *models.CalendarEvent {
	out := &models.CalendarEvent{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		MeetLink:    ev.HangoutLink,
		HTMLLink:    ev.HtmlLink,
	}
	if ev.Start != nil {
		out.Timezone = ev.Start.TimeZone
		if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
			out.Start = t
		}
	}
	if ev.End != nil {
		if t, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
			out.End = t
		}
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, models.Attendee{
			Email:       a.Email,
			DisplayName: a.DisplayName,
		})
	}
	return out
}

func patchToGoogleEvent(patch models.EventPatch) *calendar.Event {
	out := &calendar.Event{}
	if patch.Title != nil {
		out.Summary = *patch.Title
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	tz := ""
	if patch.Timezone != nil {
		tz = *patch.Timezone
	}
	if patch.Start != nil {
		out.Start = &calendar.EventDateTime{DateTime: patch.Start.Format(time.RFC3339), TimeZone: tz}
	}
	if patch.End != nil {
		out.End = &calendar.EventDateTime{DateTime: patch.End.Format(time.RFC3339), TimeZone: tz}
	}
	return out
}
