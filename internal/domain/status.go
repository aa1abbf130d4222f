package domain

import "time"

// MatchStatus is the lifecycle stage of a fixture relative to the current time
type MatchStatus string

const (
	StatusUpcoming  MatchStatus = "upcoming"
	StatusOngoing   MatchStatus = "ongoing"
	StatusCompleted MatchStatus = "completed"
)

// OngoingWindow is how far either side of kick-off a match counts as ongoing
const OngoingWindow = 2 * time.Hour

// DefaultMatchTime is used when a fixture has a date but no time
const DefaultMatchTime = "18:00:00"

var matchDateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DeriveStatus classifies a match starting at start as seen at now.
// Both window edges (exactly two hours before or after start) count as ongoing.
func DeriveStatus(start, now time.Time) MatchStatus {
	delta := start.Sub(now)
	switch {
	case delta > OngoingWindow:
		return StatusUpcoming
	case delta < -OngoingWindow:
		return StatusCompleted
	default:
		return StatusOngoing
	}
}

// ParseMatchDate parses a Match.Date value. Zone-less values are read as UTC.
func ParseMatchDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range matchDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
