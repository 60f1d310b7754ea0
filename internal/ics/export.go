package ics

import (
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"shiftcal/internal/calendar"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/rotation"
)

const productID = "-//shiftcal//Shift Schedule//EN"

// uidNamespace seeds the name-based UIDs so that re-exporting the same day
// for the same team always yields the same event identity.
var uidNamespace = uuid.MustParse("6f1c1a9e-3b0e-4f0a-9a53-58d0f9b1c2a7")

// ExportOptions controls the iCalendar output.
type ExportOptions struct {
	Locale calendar.Locale

	// IncludeOff also emits events for days off.
	IncludeOff bool

	// Stamp is written as DTSTAMP on every event. Zero means time.Now().
	Stamp time.Time
}

// Export renders the shifts of s between from and to (inclusive) as an
// iCalendar feed with one all-day event per working day. Days outside the
// schedule's window are skipped.
func Export(s *rotation.Schedule, from, to time.Time, opts ExportOptions) (string, error) {
	if s == nil {
		return "", errors.New("ics: schedule is nil")
	}
	from, to = rotation.Date(from), rotation.Date(to)
	if to.Before(from) {
		return "", fmt.Errorf("ics: range end %s is before start %s",
			to.Format(rotation.DateLayout), from.Format(rotation.DateLayout))
	}
	if opts.Locale.Code == "" {
		opts.Locale = calendar.LocaleFor("")
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	stamp = stamp.UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(opts.Locale.Heading + " · " + opts.Locale.Team(s.Team))

	events := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !s.Covers(d) {
			continue
		}
		shift := s.ShiftOn(d)
		if shift == rotation.Off && !opts.IncludeOff {
			continue
		}

		ev := cal.AddEvent(EventUID(s.Team, d))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(d)
		ev.SetAllDayEndAt(d.AddDate(0, 0, 1))
		ev.SetSummary(opts.Locale.ShiftName(shift) + " · " + opts.Locale.Team(s.Team))
		ev.SetProperty(ical.ComponentPropertyCategories, shift.String())
		ev.SetProperty(ical.ComponentPropertyTransp, "TRANSPARENT")
		events++
	}

	appLog.Debug("ics export",
		"team", string(s.Team),
		"from", from.Format(rotation.DateLayout),
		"to", to.Format(rotation.DateLayout),
		"events", events,
	)
	return cal.Serialize(), nil
}

// EventUID is the stable UID of team's event on day d.
func EventUID(team rotation.Team, d time.Time) string {
	name := string(team) + "/" + rotation.Date(d).Format(rotation.DateLayout)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@shiftcal"
}

// ExportMonths exports months whole months starting at first for team. The
// schedule is built wide enough to cover the last exported month.
func ExportMonths(team rotation.Team, first rotation.Month, months int, policy rotation.WeekendPolicy, opts ExportOptions) (string, error) {
	if months <= 0 {
		months = 1
	}
	last := first.Add(months - 1)
	s := rotation.NewSchedule(team, last, policy)
	return Export(s, first.First(), last.Last(), opts)
}
