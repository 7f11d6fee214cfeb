package lifecycle

import (
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
)

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect.
// Touching endpoints count as an overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !bStart.After(aEnd) && !bEnd.Before(aStart)
}

// CheckWindow validates a proposed window and records problems under the
// given field names.
func CheckWindow(v *apperrors.ValidationError, startField, endField string, start, end time.Time) {
	if start.IsZero() {
		v.Add(startField, "is required")
	}
	if end.IsZero() {
		v.Add(endField, "is required")
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		v.Add(endField, "must not be before "+startField)
	}
}

// DaysBetween counts calendar days (UTC) from a to b; negative when b is
// before a.
func DaysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
