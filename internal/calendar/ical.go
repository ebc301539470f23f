package calendar

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/zapponejosh/parish-api/internal/database"
)

// defaultServiceLength is the assumed duration of a service in the feed.
const defaultServiceLength = time.Hour

// ICalFeed renders schedule entries as an iCalendar document. Entries carry
// a local wall-clock time and are converted to UTC instants in loc.
func ICalFeed(name string, entries []database.Schedule, loc *time.Location, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//parish-api//schedule//EN")
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	for _, e := range entries {
		start, err := entryStart(e, loc)
		if err != nil {
			return "", fmt.Errorf("schedule %d: %w", e.ID, err)
		}

		event := cal.AddEvent(fmt.Sprintf("schedule-%d@parish-api", e.ID))
		event.SetDtStampTime(now)
		event.SetCreatedTime(e.CreatedAt)
		event.SetModifiedAt(e.UpdatedAt)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(defaultServiceLength))
		event.SetSummary(e.Title)
		if e.Description != nil {
			event.SetDescription(*e.Description)
		}
	}

	return cal.Serialize(), nil
}

// entryStart combines the civil date of an entry with its HH:mm time.
func entryStart(e database.Schedule, loc *time.Location) (time.Time, error) {
	date := e.Date
	if date == "" {
		date = FormatLocalDate(e.Stored, loc)
	}
	return time.ParseInLocation(DateLayout+" 15:04", date+" "+e.Time, loc)
}
