package fulfillment

import (
	"time"

	"github.com/Additional-Code/suratjalan/internal/entity"
)

// Advance moves a waiting note to in transit once its delivery day has arrived.
// Days are compared on the calendar (time of day ignored); now should already be
// in the business time zone. Any other status is returned unchanged.
func Advance(date time.Time, status entity.NoteStatus, now time.Time) entity.NoteStatus {
	if status != entity.NoteWaiting {
		return status
	}
	if Day(date).After(Day(now)) {
		return status
	}
	return entity.NoteInTransit
}

// Day truncates t to its calendar date, keeping the year/month/day t has in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
