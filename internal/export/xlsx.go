// Package export produces appointment reports for coaches and ops.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"coachly/internal/logging"
	"coachly/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Appointments"

// Store is the query surface the exporter reads from.
type Store interface {
	GetAppointmentsByDateRange(ctx context.Context, coachID, startDate, endDate string) ([]*models.Appointment, error)
}

type Exporter struct {
	store  Store
	path   string
	logger zerolog.Logger
}

func NewExporter(store Store, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{store: store, path: path, logger: logging.Component(logger, "export")}
}

// ExportAppointments writes one coach's appointments in [startDate,
// endDate] to an xlsx file and returns its path.
func (e *Exporter) ExportAppointments(ctx context.Context, coachID, startDate, endDate string) (string, error) {
	if err := models.ValidateDate(startDate); err != nil {
		return "", err
	}
	if err := models.ValidateDate(endDate); err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	appts, err := e.store.GetAppointmentsByDateRange(ctx, coachID, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("load appointments: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	title := fmt.Sprintf("Appointments %s to %s", startDate, endDate)
	_ = f.SetCellValue(sheetName, "A1", title)
	_ = f.MergeCell(sheetName, "A1", "I1")
	if style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err == nil {
		_ = f.SetCellStyle(sheetName, "A1", "A1", style)
	}

	headers := []string{"Date", "Time", "Talent", "Email", "Type", "Duration (min)", "Status", "Meet link", "Notes"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, appt := range appts {
		row := i + 3
		values := []any{
			appt.Date,
			appt.Time,
			appt.TalentName,
			appt.TalentEmail,
			appt.Type,
			appt.Duration,
			appt.Status,
			appt.MeetLink,
			appt.Notes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		if styleID, err := e.statusStyle(f, appt.Status); err == nil {
			statusCell, _ := excelize.CoordinatesToCellName(7, row)
			_ = f.SetCellStyle(sheetName, statusCell, statusCell, styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 12)
	_ = f.SetColWidth(sheetName, "C", "D", 25)
	_ = f.SetColWidth(sheetName, "E", "G", 15)
	_ = f.SetColWidth(sheetName, "H", "I", 35)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("appointments_%s_%s_to_%s.xlsx", coachID, startDate, endDate)
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	e.logger.Info().
		Str("file_path", filePath).
		Int("appointments", len(appts)).
		Msg("appointments export created")
	return filePath, nil
}

func (e *Exporter) statusStyle(f *excelize.File, status string) (int, error) {
	color := "#FFFFFF"
	switch status {
	case models.StatusConfirmed:
		color = "#C6EFCE"
	case models.StatusPending:
		color = "#FFEB9C"
	case models.StatusCancelled:
		color = "#FFC7CE"
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
}
