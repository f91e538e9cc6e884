package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coachly/internal/config"
	"coachly/internal/database"
	"coachly/internal/google"
	"coachly/internal/lock"
	"coachly/internal/models"
	"coachly/internal/scheduler"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCalendar struct {
	events []models.CalendarEvent
	err    error
	n      int
}

func (s *stubCalendar) CreateEvent(_ context.Context, ev *models.CalendarEvent) (*models.CalendarEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.n++
	return &models.CalendarEvent{ID: fmt.Sprintf("evt-%d", s.n), Title: ev.Title}, nil
}

func (s *stubCalendar) DeleteEvent(context.Context, string) error { return s.err }

func (s *stubCalendar) GetEvents(context.Context, string, string) ([]models.CalendarEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

type stubNotifier struct{}

func (stubNotifier) SendNewAppointment(context.Context, models.NotificationPayload) bool { return true }
func (stubNotifier) SendAppointmentConfirmation(context.Context, models.NotificationPayload) bool {
	return true
}
func (stubNotifier) SendStatusUpdate(context.Context, models.NotificationPayload) bool { return true }

type stubProfiles struct{}

func (stubProfiles) GetProfile(context.Context, string, string) (*models.Profile, error) {
	return &models.Profile{Email: "coach@example.com", DisplayName: "Coach"}, nil
}

type testAPI struct {
	handler  http.Handler
	calendar *stubCalendar
	date     string
}

func newTestAPI(t *testing.T, cfg config.APIConfig) *testAPI {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	calendar := &stubCalendar{}
	sched := scheduler.NewService(db, lock.NewMemorySlotLocker(), calendar, stubNotifier{}, stubProfiles{}, &logger, scheduler.Options{
		MeetBaseURL: "https://meet.example",
	})

	srv := NewHTTPServer(cfg, sched, calendar, nil, &logger)
	return &testAPI{
		handler:  srv.Handler(),
		calendar: calendar,
		date:     time.Now().AddDate(0, 0, 7).Format(models.DateLayout),
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) publish(t *testing.T, slots ...string) {
	t.Helper()
	rec := a.do(t, http.MethodPut, "/api/v1/coaches/coach-1/availability", map[string]any{
		"date":     a.date,
		"slots":    slots,
		"timezone": "America/Toronto",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (a *testAPI) book(t *testing.T, talentID, talentName, slot string) map[string]any {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"coach_id":     "coach-1",
		"coach_name":   "Carol Coach",
		"talent_id":    talentID,
		"talent_name":  talentName,
		"talent_email": talentID + "@example.com",
		"date":         a.date,
		"time":         slot,
		"type":         models.TypeCVReview,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(t, rec)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func openConfig() config.APIConfig {
	return config.APIConfig{HTTP: config.APIHTTPConfig{Port: 0}}
}

func TestPublishAndReadAvailability(t *testing.T) {
	a := newTestAPI(t, openConfig())
	a.publish(t, "09:00", "09:30")

	rec := a.do(t, http.MethodGet, "/api/v1/coaches/coach-1/availability?date="+a.date, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "America/Toronto", body["timezone"])
	assert.Len(t, body["time_slots"], 2)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t, openConfig())
	a.publish(t, "09:00", "09:30")

	created := a.book(t, "t1", "Tina Talent", "09:00")
	id := created["id"].(string)
	assert.Equal(t, models.StatusPending, created["status"])

	// Conflicting booking names the current holder.
	rec := a.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"coach_id":     "coach-1",
		"coach_name":   "Carol Coach",
		"talent_id":    "t2",
		"talent_name":  "Tom Talent",
		"talent_email": "t2@example.com",
		"date":         a.date,
		"time":         "09:00",
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decodeBody(t, rec)
	assert.Equal(t, "Tina Talent", conflict["booked_by"])

	// Confirm.
	rec = a.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/status", map[string]any{
		"status": models.StatusConfirmed,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decodeBody(t, rec)
	assert.Equal(t, models.StatusConfirmed, confirmed["status"])
	assert.NotEmpty(t, confirmed["meet_link"])

	// Only the free slot is offered.
	rec = a.do(t, http.MethodGet, "/api/v1/coaches/coach-1/slots?date="+a.date, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decodeBody(t, rec)
	assert.Equal(t, []any{"09:30"}, slots["slots"])

	// Cancel frees it again.
	rec = a.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/coaches/coach-1/slots?date="+a.date, nil, nil)
	slots = decodeBody(t, rec)
	assert.Equal(t, []any{"09:00", "09:30"}, slots["slots"])

	// Cancelled is terminal.
	rec = a.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/status", map[string]any{
		"status": models.StatusConfirmed,
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatusCannotMoveBackward(t *testing.T) {
	a := newTestAPI(t, openConfig())
	a.publish(t, "09:00")
	created := a.book(t, "t1", "Tina Talent", "09:00")
	id := created["id"].(string)

	rec := a.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/status", map[string]any{
		"status": models.StatusConfirmed,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/status", map[string]any{
		"status": models.StatusPending,
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/appointments/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusConfirmed, decodeBody(t, rec)["status"])
}

func TestSlotsWithViewerTimezone(t *testing.T) {
	a := newTestAPI(t, openConfig())
	a.publish(t, "09:00")

	rec := a.do(t, http.MethodGet, "/api/v1/coaches/coach-1/slots?date="+a.date+"&tz=Europe/London", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Europe/London", body["viewer_timezone"])

	display := body["display"].([]any)
	require.Len(t, display, 1)
	entry := display[0].(map[string]any)
	assert.Equal(t, "09:00", entry["time"])
	// Toronto-to-London is +4 or +5 hours depending on DST, never a day shift here.
	assert.Equal(t, float64(0), entry["day_offset"])
	assert.NotEqual(t, "09:00", entry["viewer_time"])
}

func TestBookingValidationErrors(t *testing.T) {
	a := newTestAPI(t, openConfig())
	a.publish(t, "09:00")

	// Missing required fields.
	rec := a.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"coach_id": "coach-1",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Slot not in the published set.
	rec = a.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"coach_id":     "coach-1",
		"coach_name":   "Carol Coach",
		"talent_id":    "t1",
		"talent_name":  "Tina",
		"talent_email": "t1@example.com",
		"date":         a.date,
		"time":         "22:00",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown field in body.
	rec = a.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"coach_id": "coach-1",
		"bogus":    true,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentNotFound(t *testing.T) {
	a := newTestAPI(t, openConfig())

	rec := a.do(t, http.MethodGet, "/api/v1/appointments/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/appointments/nope/cancel", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTalentAppointments(t *testing.T) {
	a := newTestAPI(t, openConfig())
	a.publish(t, "09:00", "09:30")
	a.book(t, "t1", "Tina Talent", "09:00")
	a.book(t, "t1", "Tina Talent", "09:30")

	rec := a.do(t, http.MethodGet, "/api/v1/talents/t1/appointments", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["appointments"], 2)
}

func TestSyncEndpoint(t *testing.T) {
	a := newTestAPI(t, openConfig())
	a.publish(t, "09:00")
	created := a.book(t, "t1", "Tina Talent", "09:00")
	id := created["id"].(string)

	rec := a.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/status", map[string]any{
		"status": models.StatusConfirmed,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Already mirrored at confirm time, so the batch has nothing to do.
	rec = a.do(t, http.MethodPost, "/api/v1/coaches/coach-1/sync", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["synced"])
}

func TestCalendarEventsAuthErrors(t *testing.T) {
	a := newTestAPI(t, openConfig())

	a.calendar.events = []models.CalendarEvent{{ID: "evt-1", Title: "Busy"}}
	rec := a.do(t, http.MethodGet, "/api/v1/calendar/events?start=2026-09-01T00:00:00Z&end=2026-09-02T00:00:00Z", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["events"], 1)

	a.calendar.err = google.ErrNotAuthenticated
	rec = a.do(t, http.MethodGet, "/api/v1/calendar/events?start=2026-09-01T00:00:00Z&end=2026-09-02T00:00:00Z", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "calendar_not_connected", decodeBody(t, rec)["code"])

	a.calendar.err = google.ErrSessionExpired
	rec = a.do(t, http.MethodGet, "/api/v1/calendar/events?start=2026-09-01T00:00:00Z&end=2026-09-02T00:00:00Z", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "calendar_session_expired", decodeBody(t, rec)["code"])
}

func TestMethodNotAllowed(t *testing.T) {
	a := newTestAPI(t, openConfig())

	rec := a.do(t, http.MethodDelete, "/api/v1/coaches/coach-1/slots?date=2026-09-10", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/appointments", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
