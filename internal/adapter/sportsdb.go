package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sportiz/internal/cache"
	"sportiz/internal/domain"
)

const (
	// DefaultBaseURL is TheSportsDB public v1 API with the shared test key
	DefaultBaseURL = "https://www.thesportsdb.com/api/v1/json/3"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 10 * time.Second

	defaultCacheSize = 256
	defaultCacheTTL  = 10 * time.Minute

	// maxErrorBody bounds how much of a failed response ends up in an error message
	maxErrorBody = 512
)

// SportsDBConfig holds the configuration for the TheSportsDB client.
// Zero values fall back to the package defaults.
type SportsDBConfig struct {
	BaseURL    string
	Timeout    time.Duration
	CacheSize  int
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// SportsDBAdapter implements domain.FixtureSource for TheSportsDB.
// Successful single-entity lookups are cached; fixture lists never are.
type SportsDBAdapter struct {
	baseURL    string
	httpClient *http.Client
	lookups    *cache.Cache[any]
}

// NewSportsDBAdapter creates a new TheSportsDB adapter with default settings
func NewSportsDBAdapter() *SportsDBAdapter {
	return NewSportsDBAdapterWithConfig(SportsDBConfig{})
}

// NewSportsDBAdapterWithConfig creates a new adapter with custom configuration
func NewSportsDBAdapterWithConfig(cfg SportsDBConfig) *SportsDBAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &SportsDBAdapter{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		lookups:    cache.New[any](cfg.CacheSize, cfg.CacheTTL),
	}
}

// EventsURL returns the fixtures endpoint for a league
func (s *SportsDBAdapter) EventsURL(leagueID string) string {
	return s.endpoint("eventsnextleague.php", leagueID)
}

func (s *SportsDBAdapter) endpoint(path, id string) string {
	return fmt.Sprintf("%s/%s?id=%s", s.baseURL, path, url.QueryEscape(id))
}

// getJSON fetches endpoint and decodes the body into out.
// Transport failures, non-200 responses and undecodable bodies are errors.
func (s *SportsDBAdapter) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: sportsdb returned status %d: %s", domain.ErrUpstream, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstream, err)
	}

	return nil
}

// UpcomingEvents lists the next fixtures of one league.
// A league without scheduled fixtures yields an empty slice.
func (s *SportsDBAdapter) UpcomingEvents(ctx context.Context, leagueID string) ([]domain.RawEvent, error) {
	var result struct {
		Events []domain.RawEvent `json:"events"`
	}
	if err := s.getJSON(ctx, s.EventsURL(leagueID), &result); err != nil {
		return nil, fmt.Errorf("failed to fetch events for league %s: %w", leagueID, err)
	}
	if result.Events == nil {
		return []domain.RawEvent{}, nil
	}
	return result.Events, nil
}

// LookupEvent retrieves the full record of one fixture
func (s *SportsDBAdapter) LookupEvent(ctx context.Context, eventID string) (*domain.EventDetail, error) {
	key := "event:" + eventID
	if cached, ok := s.lookups.Get(key); ok {
		return clone(cached.(*domain.EventDetail)), nil
	}

	var result struct {
		Events []domain.EventDetail `json:"events"`
	}
	if err := s.getJSON(ctx, s.endpoint("lookupevent.php", eventID), &result); err != nil {
		return nil, fmt.Errorf("failed to lookup event %s: %w", eventID, err)
	}
	if len(result.Events) == 0 {
		return nil, fmt.Errorf("event %s: %w", eventID, domain.ErrNotFound)
	}

	event := &result.Events[0]
	s.lookups.Set(key, clone(event))
	return event, nil
}

// LookupLeague retrieves a league by ID
func (s *SportsDBAdapter) LookupLeague(ctx context.Context, leagueID string) (*domain.League, error) {
	key := "league:" + leagueID
	if cached, ok := s.lookups.Get(key); ok {
		return clone(cached.(*domain.League)), nil
	}

	var result struct {
		Leagues []domain.League `json:"leagues"`
	}
	if err := s.getJSON(ctx, s.endpoint("lookupleague.php", leagueID), &result); err != nil {
		return nil, fmt.Errorf("failed to lookup league %s: %w", leagueID, err)
	}
	if len(result.Leagues) == 0 {
		return nil, fmt.Errorf("league %s: %w", leagueID, domain.ErrNotFound)
	}

	league := &result.Leagues[0]
	s.lookups.Set(key, clone(league))
	return league, nil
}

// LookupTeam retrieves a team by ID
func (s *SportsDBAdapter) LookupTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	key := "team:" + teamID
	if cached, ok := s.lookups.Get(key); ok {
		return clone(cached.(*domain.Team)), nil
	}

	var result struct {
		Teams []domain.Team `json:"teams"`
	}
	if err := s.getJSON(ctx, s.endpoint("lookupteam.php", teamID), &result); err != nil {
		return nil, fmt.Errorf("failed to lookup team %s: %w", teamID, err)
	}
	if len(result.Teams) == 0 {
		return nil, fmt.Errorf("team %s: %w", teamID, domain.ErrNotFound)
	}

	team := &result.Teams[0]
	s.lookups.Set(key, clone(team))
	return team, nil
}

// TeamPlayers lists the roster of a team. The upstream field is singular ("player").
func (s *SportsDBAdapter) TeamPlayers(ctx context.Context, teamID string) ([]domain.Player, error) {
	key := "players:" + teamID
	if cached, ok := s.lookups.Get(key); ok {
		return cloneSlice(cached.([]domain.Player)), nil
	}

	var result struct {
		Player []domain.Player `json:"player"`
	}
	if err := s.getJSON(ctx, s.endpoint("lookup_all_players.php", teamID), &result); err != nil {
		return nil, fmt.Errorf("failed to list players for team %s: %w", teamID, err)
	}

	players := result.Player
	if players == nil {
		players = []domain.Player{}
	}
	s.lookups.Set(key, cloneSlice(players))
	return players, nil
}

// EventStats lists the statistics of a fixture.
// Depending on the API revision the array is named "eventstats" or "results".
func (s *SportsDBAdapter) EventStats(ctx context.Context, eventID string) ([]domain.EventStat, error) {
	key := "stats:" + eventID
	if cached, ok := s.lookups.Get(key); ok {
		return cloneSlice(cached.([]domain.EventStat)), nil
	}

	var result struct {
		EventStats []domain.EventStat `json:"eventstats"`
		Results    []domain.EventStat `json:"results"`
	}
	if err := s.getJSON(ctx, s.endpoint("eventstats.php", eventID), &result); err != nil {
		return nil, fmt.Errorf("failed to fetch stats for event %s: %w", eventID, err)
	}

	stats := result.EventStats
	if len(stats) == 0 {
		stats = result.Results
	}
	if stats == nil {
		stats = []domain.EventStat{}
	}
	s.lookups.Set(key, cloneSlice(stats))
	return stats, nil
}

// clone and cloneSlice keep cached lookups private to the cache.
// The record types hold only strings, so a shallow copy is enough.
func clone[T any](v *T) *T {
	c := *v
	return &c
}

func cloneSlice[T any](s []T) []T {
	return append(make([]T, 0, len(s)), s...)
}
