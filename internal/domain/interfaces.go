package domain

import (
	"context"
	"time"
)

// FixtureSource abstracts the remote sports data API.
// Implementations return errors; fail-soft behaviour is layered on top by the aggregator.
type FixtureSource interface {
	// UpcomingEvents lists the next fixtures of one league
	UpcomingEvents(ctx context.Context, leagueID string) ([]RawEvent, error)

	LookupEvent(ctx context.Context, eventID string) (*EventDetail, error)
	LookupLeague(ctx context.Context, leagueID string) (*League, error)
	LookupTeam(ctx context.Context, teamID string) (*Team, error)
	TeamPlayers(ctx context.Context, teamID string) ([]Player, error)
	EventStats(ctx context.Context, eventID string) ([]EventStat, error)
}

// FixtureAggregator gathers fixtures from every configured endpoint.
// A failing endpoint or lookup never aborts the caller: it is logged and
// contributes no data.
type FixtureAggregator interface {
	// Aggregate concatenates every endpoint's fixtures in endpoint order.
	// Only context cancellation is reported as an error.
	Aggregate(ctx context.Context) ([]RawEvent, error)

	// EventDetails returns nil when the lookup fails or finds nothing
	EventDetails(ctx context.Context, eventID string) *EventDetail
	LeagueDetails(ctx context.Context, leagueID string) *League
	TeamDetails(ctx context.Context, teamID string) *Team

	// TeamPlayers and EventStats return an empty slice on failure
	TeamPlayers(ctx context.Context, teamID string) []Player
	EventStats(ctx context.Context, eventID string) []EventStat
}

// LoadStatus tracks an asynchronous store operation
type LoadStatus string

const (
	LoadIdle      LoadStatus = "idle"
	LoadLoading   LoadStatus = "loading"
	LoadSucceeded LoadStatus = "succeeded"
	LoadFailed    LoadStatus = "failed"
)

// MatchesState is a snapshot of the matches store bookkeeping
type MatchesState struct {
	Status    LoadStatus
	Error     string
	Count     int
	FetchedAt time.Time
}

// MatchesStore holds the canonical in-memory fixture list
type MatchesStore interface {
	// FetchMatches replaces the list on success and keeps it on failure
	FetchMatches(ctx context.Context) error

	// Matches returns copies whose Status is derived at call time
	Matches() []Match

	// Find looks a match up by ID (first occurrence)
	Find(id string) (Match, bool)

	State() MatchesState
}

// FavouritesStore keeps the favourite matches and the theme flag.
// Mutations apply in memory immediately; persistence is best effort.
type FavouritesStore interface {
	// ToggleFavourite removes m if a favourite with its ID exists, otherwise appends it.
	// Returns true when m is a favourite afterwards.
	ToggleFavourite(m Match) bool

	LoadFavourites(items []Match)
	LoadTheme(isDark bool)

	// ToggleTheme flips the theme flag and returns the new value
	ToggleTheme() bool

	// Restore hydrates both values from storage; missing or malformed data is ignored
	Restore(ctx context.Context)

	Items() []Match
	IsFavourite(id string) bool
	IsDark() bool
}

// AuthState is a snapshot of the local auth store
type AuthState struct {
	User   *User
	Token  string
	Status LoadStatus
	Error  string
}

// AuthStore emulates an account system on the device.
// Failures are *UserFriendlyError values wrapping one of the auth sentinels.
type AuthStore interface {
	Register(ctx context.Context, email, password, username, name string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)

	// LoadPersistedSession returns nil, nil when there is no usable session
	LoadPersistedSession(ctx context.Context) (*User, error)

	Logout(ctx context.Context) error
	UpdateName(ctx context.Context, name string) error
	UpdateUsername(ctx context.Context, username string) error

	CurrentUser() *User
	State() AuthState
	ClearError()
}
