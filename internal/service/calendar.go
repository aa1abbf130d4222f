package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sportiz/internal/domain"
)

// ReminderDuration is how long a calendar entry for a match lasts
const ReminderDuration = 2 * time.Hour

// ReminderAlarms are the alerts attached to a calendar entry, before kick-off
var ReminderAlarms = []time.Duration{60 * time.Minute, 30 * time.Minute}

// CalendarService lays matches out by week and builds calendar reminders
type CalendarService struct {
	matches    domain.MatchesStore
	favourites domain.FavouritesStore
}

// NewCalendarService creates a new CalendarService instance
func NewCalendarService(matches domain.MatchesStore, favourites domain.FavouritesStore) *CalendarService {
	return &CalendarService{
		matches:    matches,
		favourites: favourites,
	}
}

// CalendarView is one week of matches, Sunday first
type CalendarView struct {
	Week     time.Time
	PrevWeek time.Time
	NextWeek time.Time
	Days     [7][]domain.Match
}

// GetCalendarView groups the matches of the week containing week by day.
// With favouritesOnly the favourites list is used instead of the fetched matches.
// Matches whose date cannot be parsed are left out.
func (s *CalendarService) GetCalendarView(week time.Time, favouritesOnly bool) *CalendarView {
	weekStart := normalizeWeekStart(week)
	weekEnd := weekStart.AddDate(0, 0, 7)

	source := s.matches.Matches()
	if favouritesOnly {
		source = s.favourites.Items()
	}

	view := &CalendarView{
		Week:     weekStart,
		PrevWeek: weekStart.AddDate(0, 0, -7),
		NextWeek: weekEnd,
	}
	for day := range view.Days {
		view.Days[day] = []domain.Match{}
	}

	now := timeNow()
	for _, m := range source {
		start, ok := m.StartsAt()
		if !ok || start.Before(weekStart) || !start.Before(weekEnd) {
			continue
		}
		m.Status = domain.DeriveStatus(start, now)
		day := int(start.Weekday())
		view.Days[day] = append(view.Days[day], m)
	}

	return view
}

// NavigateWeek returns the week date for navigation (previous or next)
func (s *CalendarService) NavigateWeek(currentWeek time.Time, direction string) time.Time {
	weekStart := normalizeWeekStart(currentWeek)

	switch direction {
	case "prev", "previous":
		return weekStart.AddDate(0, 0, -7)
	case "next":
		return weekStart.AddDate(0, 0, 7)
	default:
		return weekStart
	}
}

// normalizeWeekStart returns the start of the week (Sunday at 00:00:00)
func normalizeWeekStart(t time.Time) time.Time {
	sunday := t.AddDate(0, 0, -int(t.Weekday()))
	return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, sunday.Location())
}

// ShareMessage is the text offered when sharing a match
func ShareMessage(m domain.Match) string {
	when := m.Date
	if start, ok := m.StartsAt(); ok {
		when = start.Format("Mon 2 Jan 2006, 15:04 MST")
	}
	return fmt.Sprintf("%s vs %s - %s on Sportiz!", m.TeamA, m.TeamB, when)
}

// ReminderICS renders m as an iCalendar document with one event and its alarms
func ReminderICS(m domain.Match) ([]byte, error) {
	start, ok := m.StartsAt()
	if !ok {
		return nil, fmt.Errorf("%w: match %s has no usable date", domain.ErrValidation, m.ID)
	}

	league := m.League
	if league == "" {
		league = "International"
	}

	const stamp = "20060102T150405Z"
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		b.WriteString(foldLine(fmt.Sprintf(format, args...)))
		b.WriteString("\r\n")
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//sportiz//fixtures//EN")
	line("CALSCALE:GREGORIAN")
	line("BEGIN:VEVENT")
	line("UID:%s@sportiz", icsEscape(m.ID))
	line("DTSTAMP:%s", timeNow().UTC().Format(stamp))
	line("DTSTART:%s", start.UTC().Format(stamp))
	line("DTEND:%s", start.Add(ReminderDuration).UTC().Format(stamp))
	line("SUMMARY:%s", icsEscape(m.TeamA+" vs "+m.TeamB))
	line("DESCRIPTION:%s", icsEscape(m.Sport+" - "+league+"\n\nAdded via Sportiz"))
	line("LOCATION:TBA")
	for _, before := range ReminderAlarms {
		line("BEGIN:VALARM")
		line("ACTION:DISPLAY")
		line("DESCRIPTION:%s", icsEscape(m.TeamA+" vs "+m.TeamB))
		line("TRIGGER:-PT%dM", int(before.Minutes()))
		line("END:VALARM")
	}
	line("END:VEVENT")
	line("END:VCALENDAR")

	return []byte(b.String()), nil
}

// maxLineOctets is the content line limit of RFC 5545, excluding the CRLF
const maxLineOctets = 75

// foldLine splits a content line longer than maxLineOctets into CRLF + space
// continuations without breaking a UTF-8 sequence
func foldLine(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}

	var b strings.Builder
	limit := maxLineOctets
	width := 0
	for i := 0; i < len(line); {
		_, size := utf8.DecodeRuneInString(line[i:])
		if width+size > limit {
			b.WriteString("\r\n ")
			// the leading space counts towards the continuation line
			limit = maxLineOctets - 1
			width = 0
		}
		b.WriteString(line[i : i+size])
		width += size
		i += size
	}
	return b.String()
}

var icsReplacer = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func icsEscape(s string) string {
	return icsReplacer.Replace(s)
}
