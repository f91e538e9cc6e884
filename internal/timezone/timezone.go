// Package timezone converts slot wall-clock times between IANA zones
// for display. Stored data is never converted: slots stay coach-local
// with an explicit zone tag, and conversion happens only at
// presentation boundaries.
package timezone

import (
	"fmt"
	"time"

	"coachly/internal/models"
)

// Convert interprets timeStr on dateStr in fromZone and returns the
// equivalent wall-clock time in toZone, together with a day offset
// (-1, 0 or +1) when the conversion crosses midnight.
func Convert(timeStr, dateStr, fromZone, toZone string) (string, int, error) {
	from, err := time.LoadLocation(fromZone)
	if err != nil {
		return "", 0, fmt.Errorf("load zone %q: %w", fromZone, err)
	}
	to, err := time.LoadLocation(toZone)
	if err != nil {
		return "", 0, fmt.Errorf("load zone %q: %w", toZone, err)
	}

	local, err := time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, dateStr+" "+timeStr, from)
	if err != nil {
		return "", 0, fmt.Errorf("parse %q %q: %w", dateStr, timeStr, err)
	}

	converted := local.In(to)

	offset := 0
	switch convertedDate := converted.Format(models.DateLayout); {
	case convertedDate > dateStr:
		offset = 1
	case convertedDate < dateStr:
		offset = -1
	}

	return converted.Format(models.TimeLayout), offset, nil
}

// ShiftDate moves a YYYY-MM-DD date by days.
func ShiftDate(dateStr string, days int) (string, error) {
	d, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", dateStr, err)
	}
	return d.AddDate(0, 0, days).Format(models.DateLayout), nil
}

// Format renders a slot time with its zone abbreviation for display,
// e.g. "09:00 EST". dateStr matters because abbreviations follow DST.
func Format(timeStr, dateStr, zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("load zone %q: %w", zone, err)
	}
	t, err := time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, dateStr+" "+timeStr, loc)
	if err != nil {
		return "", fmt.Errorf("parse %q %q: %w", dateStr, timeStr, err)
	}
	return t.Format(models.TimeLayout + " MST"), nil
}
