package export

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"coachly/internal/database"
	"coachly/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupStore(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestExportAppointments(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()

	appts := []*models.Appointment{
		{
			CoachID: "coach-1", CoachName: "Carol",
			TalentID: "t1", TalentName: "Tina Talent", TalentEmail: "t1@example.com",
			Date: "2026-09-10", Time: "09:00", Duration: 30, Type: models.TypeCVReview,
			Notes: "bring CV",
		},
		{
			CoachID: "coach-1", CoachName: "Carol",
			TalentID: "t2", TalentName: "Tom Talent", TalentEmail: "t2@example.com",
			Date: "2026-09-11", Time: "14:00", Duration: 30, Type: models.TypeInterview,
		},
	}
	for _, a := range appts {
		require.NoError(t, db.CreateAppointment(ctx, a))
	}
	require.NoError(t, db.UpdateAppointmentStatus(ctx, appts[0].ID, models.StatusConfirmed))

	dir := t.TempDir()
	exporter := NewExporter(db, dir, nil)

	path, err := exporter.ExportAppointments(ctx, "coach-1", "2026-09-10", "2026-09-12")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	_, err = os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	// Title, header, two data rows.
	require.GreaterOrEqual(t, len(rows), 4)
	assert.Equal(t, "Date", rows[1][0])
	assert.Equal(t, "Tina Talent", rows[2][2])
	assert.Equal(t, models.StatusConfirmed, rows[2][6])
	assert.Equal(t, "Tom Talent", rows[3][2])
}

func TestExportFiltersByRangeAndCoach(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()

	inRange := &models.Appointment{
		CoachID: "coach-1", CoachName: "Carol",
		TalentID: "t1", TalentName: "In Range", TalentEmail: "t1@example.com",
		Date: "2026-09-10", Time: "09:00", Duration: 30, Type: models.TypeOther,
	}
	outOfRange := &models.Appointment{
		CoachID: "coach-1", CoachName: "Carol",
		TalentID: "t2", TalentName: "Out Of Range", TalentEmail: "t2@example.com",
		Date: "2026-10-01", Time: "09:00", Duration: 30, Type: models.TypeOther,
	}
	otherCoach := &models.Appointment{
		CoachID: "coach-2", CoachName: "Other",
		TalentID: "t3", TalentName: "Other Coach", TalentEmail: "t3@example.com",
		Date: "2026-09-10", Time: "09:00", Duration: 30, Type: models.TypeOther,
	}
	for _, a := range []*models.Appointment{inRange, outOfRange, otherCoach} {
		require.NoError(t, db.CreateAppointment(ctx, a))
	}

	exporter := NewExporter(db, t.TempDir(), nil)
	path, err := exporter.ExportAppointments(ctx, "coach-1", "2026-09-01", "2026-09-30")
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "In Range", rows[2][2])
}

func TestExportRejectsBadDates(t *testing.T) {
	exporter := NewExporter(setupStore(t), t.TempDir(), nil)

	_, err := exporter.ExportAppointments(context.Background(), "coach-1", "10.09.2026", "2026-09-30")
	assert.Error(t, err)

	_, err = exporter.ExportAppointments(context.Background(), "coach-1", "2026-09-01", "bogus")
	assert.Error(t, err)
}
