package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"coachly/internal/database"
	"coachly/internal/google"
	"coachly/internal/metrics"
	"coachly/internal/models"
	"coachly/internal/scheduler"
	"coachly/internal/timezone"
)

// handleCoaches routes /api/v1/coaches/{coachID}/{resource}.
func (s *HTTPServer) handleCoaches(w http.ResponseWriter, r *http.Request) {
	coachID, resource, ok := splitResource(r.URL.Path, "/api/v1/coaches/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch resource {
	case "availability":
		s.handleAvailability(w, r, coachID)
	case "slots":
		s.handleSlots(w, r, coachID)
	case "appointments":
		s.handleCoachAppointments(w, r, coachID)
	case "sync":
		s.handleSync(w, r, coachID)
	case "export":
		s.handleExport(w, r, coachID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request, coachID string) {
	metrics.IncHTTP("availability")

	switch r.Method {
	case http.MethodPut, http.MethodPost:
		type request struct {
			Date     string   `json:"date"`
			Slots    []string `json:"slots"`
			Timezone string   `json:"timezone"`
		}
		var body request
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.scheduler.SaveAvailability(r.Context(), coachID, body.Date, body.Slots, body.Timezone); err != nil {
			s.writeSchedulerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	case http.MethodGet:
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		if date == "" {
			writeError(w, http.StatusBadRequest, "date is required")
			return
		}
		av, err := s.scheduler.GetAvailability(r.Context(), coachID, date)
		if err != nil {
			s.writeSchedulerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, av)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request, coachID string) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	open, err := s.scheduler.AvailableSlots(r.Context(), coachID, date)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}

	resp := map[string]any{
		"coach_id": coachID,
		"date":     date,
		"slots":    open,
	}

	// An optional viewer zone converts slot times for display; the
	// stored coach-local slots stay untouched.
	if viewerTZ := strings.TrimSpace(r.URL.Query().Get("tz")); viewerTZ != "" {
		av, err := s.scheduler.GetAvailability(r.Context(), coachID, date)
		if err != nil {
			s.writeSchedulerError(w, err)
			return
		}
		display := make([]map[string]any, 0, len(open))
		for _, slot := range open {
			local, offset, err := timezone.Convert(slot, date, av.Timezone, viewerTZ)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			display = append(display, map[string]any{
				"time":        slot,
				"viewer_time": local,
				"day_offset":  offset,
			})
		}
		resp["viewer_timezone"] = viewerTZ
		resp["display"] = display
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleCoachAppointments(w http.ResponseWriter, r *http.Request, coachID string) {
	metrics.IncHTTP("coach_appointments")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		appts []*models.Appointment
		err   error
	)
	switch view := r.URL.Query().Get("view"); view {
	case "", "upcoming":
		appts, err = s.scheduler.UpcomingAppointments(r.Context(), coachID)
	case "past":
		appts, err = s.scheduler.PastAppointments(r.Context(), coachID)
	default:
		writeError(w, http.StatusBadRequest, "view must be upcoming or past")
		return
	}
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request, coachID string) {
	metrics.IncHTTP("sync")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report, err := s.scheduler.SyncAllAppointments(r.Context(), coachID)
	if err != nil {
		s.writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, coachID string) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return
	}

	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	path, err := s.exporter.ExportAppointments(r.Context(), coachID, start, end)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": filepath.Base(path)})
}

func (s *HTTPServer) handleAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req scheduler.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appt, err := s.scheduler.CreateAppointment(r.Context(), req)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// handleAppointment routes /api/v1/appointments/{id}[/status|/cancel].
func (s *HTTPServer) handleAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointment")

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/appointments/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		appt, err := s.scheduler.GetAppointment(r.Context(), id)
		if err != nil {
			s.writeSchedulerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)

	case "status":
		if r.Method != http.MethodPost && r.Method != http.MethodPatch {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.scheduler.UpdateAppointmentStatus(r.Context(), id, body.Status); err != nil {
			s.writeSchedulerError(w, err)
			return
		}
		appt, err := s.scheduler.GetAppointment(r.Context(), id)
		if err != nil {
			s.writeSchedulerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)

	case "cancel":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.scheduler.CancelAppointment(r.Context(), id); err != nil {
			s.writeSchedulerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusCancelled})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleTalents routes /api/v1/talents/{talentID}/appointments.
func (s *HTTPServer) handleTalents(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("talent_appointments")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	talentID, resource, ok := splitResource(r.URL.Path, "/api/v1/talents/")
	if !ok || resource != "appointments" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	appts, err := s.scheduler.TalentAppointments(r.Context(), talentID)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

func (s *HTTPServer) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar_events")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar is not configured")
		return
	}

	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required (RFC3339)")
		return
	}

	events, err := s.events.GetEvents(r.Context(), start, end)
	if err != nil {
		s.writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// writeSchedulerError maps domain errors onto HTTP statuses. A slot
// conflict names the holder so the frontend can show who got there
// first.
func (s *HTTPServer) writeSchedulerError(w http.ResponseWriter, err error) {
	var conflict *database.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":     "slot is already booked",
			"booked_by": conflict.TalentName,
			"date":      conflict.Date,
			"time":      conflict.Time,
		})
	case errors.Is(err, scheduler.ErrSlotContended):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": err.Error(),
			"retry": "true",
		})
	case errors.Is(err, database.ErrCancelledTerminal),
		errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, scheduler.ErrPastDate),
		errors.Is(err, scheduler.ErrDateTooFar),
		errors.Is(err, scheduler.ErrSlotNotOffered),
		errors.Is(err, database.ErrInvalidStatus),
		errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeCalendarError keeps the two authentication failure modes
// distinct so the frontend can tell "connect your calendar" apart
// from "your session expired, reconnect".
func (s *HTTPServer) writeCalendarError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, google.ErrNotAuthenticated):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "google calendar is not connected",
			"code":  "calendar_not_connected",
		})
	case errors.Is(err, google.ErrSessionExpired):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "google session expired, reconnect the calendar",
			"code":  "calendar_session_expired",
		})
	default:
		s.logger.Error().Err(err).Msg("calendar request failed")
		writeError(w, http.StatusBadGateway, "calendar request failed")
	}
}

func splitResource(path, prefix string) (id, resource string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", "", false
	}
	id, resource, _ = strings.Cut(rest, "/")
	if id == "" || resource == "" || strings.Contains(resource, "/") {
		return "", "", false
	}
	return id, resource, true
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
