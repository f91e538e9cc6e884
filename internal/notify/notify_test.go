package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"coachly/internal/config"
	"coachly/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	name  string
	err   error
	calls int
	kinds []EventKind
}

func (s *stubTransport) Name() string { return s.name }

func (s *stubTransport) Send(_ context.Context, kind EventKind, _ models.NotificationPayload) error {
	s.calls++
	s.kinds = append(s.kinds, kind)
	return s.err
}

func testPayload() models.NotificationPayload {
	return models.NotificationPayload{
		RecipientEmail: "tina@example.com",
		RecipientName:  "Tina Talent",
		CoachName:      "Carol Coach",
		TalentName:     "Tina Talent",
		Date:           "2025-03-10",
		Time:           "09:00",
		Timezone:       "America/Toronto",
		Duration:       30,
		SessionType:    models.TypeCVReview,
	}
}

func newTestDispatcher(primary, fallback Transport) *Dispatcher {
	logger := zerolog.New(io.Discard)
	return NewDispatcher(primary, fallback, &logger)
}

func TestDispatcherPrimarySucceeds(t *testing.T) {
	primary := &stubTransport{name: "primary"}
	fallback := &stubTransport{name: "fallback"}
	d := newTestDispatcher(primary, fallback)

	delivered := d.SendNewAppointment(context.Background(), testPayload())
	assert.True(t, delivered)
	assert.Equal(t, 1, primary.calls)
	// Fallback must not run when primary succeeds.
	assert.Equal(t, 0, fallback.calls)
}

func TestDispatcherFallsBack(t *testing.T) {
	primary := &stubTransport{name: "primary", err: errors.New("provider down")}
	fallback := &stubTransport{name: "fallback"}
	d := newTestDispatcher(primary, fallback)

	delivered := d.SendAppointmentConfirmation(context.Background(), testPayload())
	assert.True(t, delivered)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, []EventKind{EventConfirmed}, fallback.kinds)
}

func TestDispatcherBothFail(t *testing.T) {
	primary := &stubTransport{name: "primary", err: errors.New("down")}
	fallback := &stubTransport{name: "fallback", err: errors.New("also down")}
	d := newTestDispatcher(primary, fallback)

	delivered := d.SendNewAppointment(context.Background(), testPayload())
	assert.False(t, delivered)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestMailTransportSend(t *testing.T) {
	var got mailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	transport := NewMailTransport(config.PrimaryMail{
		BaseURL:     srv.URL,
		APIKey:      "secret",
		SenderEmail: "noreply@coachly.io",
		SenderName:  "Coachly",
	})

	err := transport.Send(context.Background(), EventNewAppointment, testPayload())
	require.NoError(t, err)
	require.Len(t, got.To, 1)
	assert.Equal(t, "tina@example.com", got.To[0].Email)
	assert.Contains(t, got.Subject, "2025-03-10")
	assert.Contains(t, got.HTMLContent, "CV review")
}

func TestMailTransportNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	transport := NewMailTransport(config.PrimaryMail{BaseURL: srv.URL, APIKey: "secret"})
	err := transport.Send(context.Background(), EventNewAppointment, testPayload())
	assert.ErrorContains(t, err, "402")
}

func TestMailTransportUnconfigured(t *testing.T) {
	transport := NewMailTransport(config.PrimaryMail{})
	err := transport.Send(context.Background(), EventNewAppointment, testPayload())
	assert.Error(t, err)
}

func TestTemplateTransportSend(t *testing.T) {
	var got templateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/email/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := NewTemplateTransport(config.TemplateMail{
		BaseURL:            srv.URL,
		ServiceID:          "svc-1",
		PublicKey:          "pk-1",
		NewBookingTemplate: "tmpl-new",
		ConfirmedTemplate:  "tmpl-confirmed",
	})

	err := transport.Send(context.Background(), EventConfirmed, testPayload())
	require.NoError(t, err)
	assert.Equal(t, "tmpl-confirmed", got.TemplateID)
	assert.Equal(t, "svc-1", got.ServiceID)
	assert.Equal(t, "tina@example.com", got.Params["to_email"])
	assert.Equal(t, "CV review", got.Params["session_type"])
}

func TestTemplateTransportPicksNewBookingTemplate(t *testing.T) {
	var got templateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	transport := NewTemplateTransport(config.TemplateMail{
		BaseURL:            srv.URL,
		ServiceID:          "svc-1",
		NewBookingTemplate: "tmpl-new",
		ConfirmedTemplate:  "tmpl-confirmed",
	})

	require.NoError(t, transport.Send(context.Background(), EventNewAppointment, testPayload()))
	assert.Equal(t, "tmpl-new", got.TemplateID)
}
