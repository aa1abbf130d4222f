// Package seed holds hardcoded fixtures for sports the remote API covers poorly.
package seed

import (
	"time"

	"sportiz/internal/domain"
)

// timeNow is a variable for testing purposes
var timeNow = time.Now

// fixture describes one supplemental entry relative to the current day
type fixture struct {
	id       string
	event    string
	home     string
	away     string
	sport    string
	league   string
	dayShift int
	kickoff  string
}

// supplementalFixtures lists the entries appended after the remote results.
// IDs are literal so favourites survive a refetch.
var supplementalFixtures = []fixture{
	{id: "sup_cricket_1", event: "India vs Australia", home: "India", away: "Australia", sport: "Cricket", league: "ICC Test Championship", dayShift: 1, kickoff: "09:30:00"},
	{id: "sup_cricket_2", event: "England vs South Africa", home: "England", away: "South Africa", sport: "Cricket", league: "ICC ODI Series", dayShift: 3, kickoff: "13:00:00"},
	{id: "sup_cricket_3", event: "New Zealand vs Pakistan", home: "New Zealand", away: "Pakistan", sport: "Cricket", league: "ICC T20 Series", dayShift: 6, kickoff: "18:00:00"},
	{id: "sup_swim_1", event: "Australia vs United States", home: "Australia", away: "United States", sport: "Swimming", league: "4x100m Freestyle Relay", dayShift: 2, kickoff: "19:00:00"},
	{id: "sup_swim_2", event: "China vs Great Britain", home: "China", away: "Great Britain", sport: "Swimming", league: "4x200m Medley Relay", dayShift: 5, kickoff: "20:15:00"},
}

// SupplementalEvents returns the hardcoded fixtures dated relative to today (UTC).
// A fresh slice is returned on every call.
func SupplementalEvents() []domain.RawEvent {
	today := timeNow().UTC()
	events := make([]domain.RawEvent, 0, len(supplementalFixtures))

	for _, f := range supplementalFixtures {
		events = append(events, domain.RawEvent{
			IDEvent:     f.id,
			StrEvent:    f.event,
			StrHomeTeam: f.home,
			StrAwayTeam: f.away,
			StrSport:    f.sport,
			StrLeague:   f.league,
			DateEvent:   today.AddDate(0, 0, f.dayShift).Format("2006-01-02"),
			StrTime:     f.kickoff,
		})
	}

	return events
}
