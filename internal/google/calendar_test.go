package google

import (
	"context"
	"io"
	"testing"
	"time"

	"coachly/internal/config"
	"coachly/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnconfiguredServiceIsNotAuthenticated(t *testing.T) {
	logger := zerolog.New(io.Discard)
	svc := NewCalendarService(config.GoogleConfig{CalendarID: "primary"}, &logger)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, &models.CalendarEvent{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = svc.GetEvents(ctx, "2025-03-10T00:00:00Z", "2025-03-11T00:00:00Z")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	err = svc.DeleteEvent(ctx, "evt-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestMissingCredentialFilesAreNotAuthenticated(t *testing.T) {
	logger := zerolog.New(io.Discard)
	svc := NewCalendarService(config.GoogleConfig{
		CredentialsFile: "/nonexistent/credentials.json",
		TokenFile:       "/nonexistent/token.json",
		CalendarID:      "primary",
	}, &logger)

	_, err := svc.CreateEvent(context.Background(), &models.CalendarEvent{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestToGoogleEvent(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	ev := &models.CalendarEvent{
		Title:       "CV review: Carol with Tina",
		Description: "Bring your CV",
		Start:       start,
		End:         start.Add(30 * time.Minute),
		Timezone:    "America/Toronto",
		Attendees: []models.Attendee{
			{Email: "tina@example.com", DisplayName: "Tina Talent"},
		},
	}

	got := toGoogleEvent(ev)
	assert.Equal(t, "CV review: Carol with Tina", got.Summary)
	assert.Equal(t, "America/Toronto", got.Start.TimeZone)
	assert.Equal(t, "2025-03-10T09:00:00Z", got.Start.DateTime)
	assert.Equal(t, "2025-03-10T09:30:00Z", got.End.DateTime)
	require.Len(t, got.Attendees, 1)
	assert.Equal(t, "tina@example.com", got.Attendees[0].Email)
	require.NotNil(t, got.ConferenceData)
	assert.Equal(t, "hangoutsMeet", got.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
}

func TestPatchToGoogleEventPartial(t *testing.T) {
	title := "New title"
	got := patchToGoogleEvent(models.EventPatch{Title: &title})

	assert.Equal(t, "New title", got.Summary)
	// Untouched fields stay empty so the provider keeps them.
	assert.Empty(t, got.Description)
	assert.Nil(t, got.Start)
	assert.Nil(t, got.End)
}

func TestPatchToGoogleEventTimes(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	tz := "Europe/Berlin"
	got := patchToGoogleEvent(models.EventPatch{Start: &start, End: &end, Timezone: &tz})

	require.NotNil(t, got.Start)
	assert.Equal(t, "Europe/Berlin", got.Start.TimeZone)
	require.NotNil(t, got.End)
	assert.Equal(t, "2025-03-10T15:00:00Z", got.End.DateTime)
}
