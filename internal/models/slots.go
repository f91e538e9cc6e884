package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrValidation tags malformed request input so transport layers can
// map it to a client error without matching message text.
var ErrValidation = errors.New("invalid request")

// ValidateSlot checks that s is an HH:MM wall-clock string on the
// slot grid boundary.
func ValidateSlot(s string) error {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return fmt.Errorf("%w: time slot %q, expected HH:MM", ErrValidation, s)
	}
	if t.Minute()%SlotMinutes != 0 {
		return fmt.Errorf("%w: time slot %q is not on a %d-minute boundary", ErrValidation, s, SlotMinutes)
	}
	return nil
}

// ValidateDate checks the canonical YYYY-MM-DD encoding.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: date %q, expected YYYY-MM-DD", ErrValidation, s)
	}
	return nil
}

// NormalizeSlots deduplicates and sorts a published slot set.
// Storage order is not significant but a stable order keeps
// responses and exports deterministic.
func NormalizeSlots(slots []string) []string {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
