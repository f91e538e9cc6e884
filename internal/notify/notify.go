// Package notify delivers transactional appointment emails through a
// primary REST provider with a template-based provider as fallback.
// Delivery is best-effort: failures are logged and reported as a
// boolean, never propagated into the booking transaction.
package notify

import (
	"context"

	"coachly/internal/logging"
	"coachly/internal/metrics"
	"coachly/internal/models"

	"github.com/rs/zerolog"
)

type EventKind string

const (
	EventNewAppointment EventKind = "new_appointment"
	EventConfirmed      EventKind = "appointment_confirmed"
	EventStatusUpdate   EventKind = "appointment_update"
)

// Transport sends one rendered notification to one recipient.
type Transport interface {
	Name() string
	Send(ctx context.Context, kind EventKind, payload models.NotificationPayload) error
}

// Dispatcher chains the primary transport with the fallback. Each
// call is isolated: one recipient, own try/fallback.
type Dispatcher struct {
	primary  Transport
	fallback Transport
	logger   zerolog.Logger
}

func NewDispatcher(primary, fallback Transport, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		primary:  primary,
		fallback: fallback,
		logger:   logging.Component(logger, "notify"),
	}
}

// SendNewAppointment notifies one recipient about a fresh booking.
func (d *Dispatcher) SendNewAppointment(ctx context.Context, payload models.NotificationPayload) bool {
	return d.send(ctx, EventNewAppointment, payload)
}

// SendAppointmentConfirmation notifies one recipient that the coach
// confirmed the session.
func (d *Dispatcher) SendAppointmentConfirmation(ctx context.Context, payload models.NotificationPayload) bool {
	return d.send(ctx, EventConfirmed, payload)
}

// SendStatusUpdate covers the remaining transitions (cancellation).
func (d *Dispatcher) SendStatusUpdate(ctx context.Context, payload models.NotificationPayload) bool {
	return d.send(ctx, EventStatusUpdate, payload)
}

func (d *Dispatcher) send(ctx context.Context, kind EventKind, payload models.NotificationPayload) bool {
	if d.primary != nil {
		err := d.primary.Send(ctx, kind, payload)
		if err == nil {
			metrics.IncNotification("primary")
			return true
		}
		d.logger.Warn().Err(err).
			Str("transport", d.primary.Name()).
			Str("kind", string(kind)).
			Str("recipient", payload.RecipientEmail).
			Msg("primary notification transport failed, trying fallback")
	}

	if d.fallback != nil {
		err := d.fallback.Send(ctx, kind, payload)
		if err == nil {
			metrics.IncNotification("fallback")
			return true
		}
		d.logger.Error().Err(err).
			Str("transport", d.fallback.Name()).
			Str("kind", string(kind)).
			Str("recipient", payload.RecipientEmail).
			Msg("fallback notification transport failed")
	}

	metrics.IncNotification("failed")
	return false
}
