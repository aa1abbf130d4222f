package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Match is the normalized view of a single fixture
type Match struct {
	ID       string      `json:"id"`
	TeamA    string      `json:"teamA"`
	TeamB    string      `json:"teamB"`
	Date     string      `json:"date"` // dateEvent + "T" + time, e.g. 2025-03-01T15:00:00
	Status   MatchStatus `json:"status"`
	Image    string      `json:"image"`
	Sport    string      `json:"sport"`
	League   string      `json:"league,omitempty"`
	LeagueID string      `json:"leagueId,omitempty"`
	TeamAID  string      `json:"teamAId,omitempty"`
	TeamBID  string      `json:"teamBId,omitempty"`
}

// StartsAt parses Date. The second return is false when Date is not a recognised timestamp.
func (m Match) StartsAt() (time.Time, bool) {
	return ParseMatchDate(m.Date)
}

// StatusAt derives the match status relative to now.
// Matches with an unparseable date are reported as upcoming.
func (m Match) StatusAt(now time.Time) MatchStatus {
	start, ok := m.StartsAt()
	if !ok {
		return StatusUpcoming
	}
	return DeriveStatus(start, now)
}

// RawEvent is a fixture record as returned by TheSportsDB.
// Every field is optional upstream; missing and null values decode to "".
type RawEvent struct {
	IDEvent     string `json:"idEvent"`
	StrEvent    string `json:"strEvent"`
	StrHomeTeam string `json:"strHomeTeam"`
	StrAwayTeam string `json:"strAwayTeam"`
	StrSport    string `json:"strSport"`
	StrLeague   string `json:"strLeague"`
	DateEvent   string `json:"dateEvent"`
	StrTime     string `json:"strTime"`
	StrThumb    string `json:"strThumb"`
	IDLeague    string `json:"idLeague"`
	IDHomeTeam  string `json:"idHomeTeam"`
	IDAwayTeam  string `json:"idAwayTeam"`
}

// EventDetail is the full record behind a single fixture
type EventDetail struct {
	IDEvent        string     `json:"idEvent"`
	StrEvent       string     `json:"strEvent"`
	StrLeague      string     `json:"strLeague"`
	IDLeague       string     `json:"idLeague"`
	StrSeason      string     `json:"strSeason"`
	StrVenue       string     `json:"strVenue"`
	StrStadium     string     `json:"strStadium"`
	StrCountry     string     `json:"strCountry"`
	StrDescription string     `json:"strDescriptionEN"`
	StrStatus      string     `json:"strStatus"`
	IntHomeScore   FlexString `json:"intHomeScore"`
	IntAwayScore   FlexString `json:"intAwayScore"`
	DateEvent      string     `json:"dateEvent"`
	StrTime        string     `json:"strTime"`
	StrThumb       string     `json:"strThumb"`
}

// League describes a competition
type League struct {
	IDLeague       string     `json:"idLeague"`
	StrLeague      string     `json:"strLeague"`
	StrSport       string     `json:"strSport"`
	StrCountry     string     `json:"strCountry"`
	IntFormedYear  FlexString `json:"intFormedYear"`
	StrDescription string     `json:"strDescriptionEN"`
	StrBadge       string     `json:"strBadge"`
}

// Team describes a participant club or side
type Team struct {
	IDTeam         string     `json:"idTeam"`
	StrTeam        string     `json:"strTeam"`
	StrStadium     string     `json:"strStadium"`
	StrCountry     string     `json:"strCountry"`
	IntFormedYear  FlexString `json:"intFormedYear"`
	StrDescription string     `json:"strDescriptionEN"`
	StrBadge       string     `json:"strBadge"`
}

// Player is a member of a team roster
type Player struct {
	IDPlayer       string     `json:"idPlayer"`
	StrPlayer      string     `json:"strPlayer"`
	StrPosition    string     `json:"strPosition"`
	StrNumber      FlexString `json:"strNumber"`
	StrNationality string     `json:"strNationality"`
	StrCutout      string     `json:"strCutout"`
	DateBorn       string     `json:"dateBorn"`
}

// EventStat is one statistic line of a fixture
type EventStat struct {
	IDStatistic FlexString `json:"idStatistic"`
	StrStat     string     `json:"strStat"`
	IntHome     FlexString `json:"intHome"`
	IntAway     FlexString `json:"intAway"`
}

// FlexString accepts a JSON string, number or null. The upstream API is not
// consistent about quoting numeric fields.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the raw value
func (f FlexString) String() string {
	return string(f)
}

// User is the signed-in account as seen by the rest of the app (no password)
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Username    string `json:"username,omitempty"`
	AccessToken string `json:"accessToken"`
}

// LocalUserRecord is one entry of the on-device user registry.
// Password is stored as entered.
type LocalUserRecord struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	CreatedAt string `json:"createdAt"`
}

// User returns the password-free view of the record carrying token
func (r LocalUserRecord) User(token string) *User {
	return &User{
		ID:          r.ID,
		Email:       r.Email,
		Name:        r.Name,
		Username:    r.Username,
		AccessToken: token,
	}
}

// EmailLocalPart returns the part of an address before '@'
func EmailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
