package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"sportiz/internal/domain"
	"sportiz/internal/logger"
)

// timeNow is a variable for testing purposes
var timeNow = time.Now

const placeholderImage = "https://via.placeholder.com/600x400/007AFF/white?text="

// matchesStore implements the MatchesStore interface
type matchesStore struct {
	aggregator domain.FixtureAggregator
	logger     *logger.Logger

	mu        sync.RWMutex
	items     []domain.Match
	status    domain.LoadStatus
	lastError string
	fetchedAt time.Time
	seq       uint64
}

// NewMatchesStore creates a new MatchesStore in the idle state
func NewMatchesStore(aggregator domain.FixtureAggregator) domain.MatchesStore {
	return &matchesStore{
		aggregator: aggregator,
		logger:     logger.GetGlobalLogger().WithField("component", "matches"),
		items:      []domain.Match{},
		status:     domain.LoadIdle,
	}
}

// FetchMatches loads the fixture list. Success replaces the list, failure keeps it.
// When fetches overlap only the most recently started one is applied.
func (s *matchesStore) FetchMatches(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.status = domain.LoadLoading
	s.mu.Unlock()

	events, err := s.aggregator.Aggregate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		return err
	}

	if err != nil {
		s.status = domain.LoadFailed
		s.lastError = err.Error()
		if s.lastError == "" {
			s.lastError = "Failed"
		}
		s.logger.Error("Failed to fetch matches", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	now := timeNow()
	items := make([]domain.Match, 0, len(events))
	for _, e := range events {
		m := newMatch(e)
		m.Status = m.StatusAt(now)
		items = append(items, m)
	}

	s.items = items
	s.status = domain.LoadSucceeded
	s.lastError = ""
	s.fetchedAt = now
	return nil
}

// Matches returns copies of the list with Status derived against the current clock
func (s *matchesStore) Matches() []domain.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := timeNow()
	out := make([]domain.Match, len(s.items))
	for i, m := range s.items {
		m.Status = m.StatusAt(now)
		out[i] = m
	}
	return out
}

// Find returns the first match with id
func (s *matchesStore) Find(id string) (domain.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.items {
		if m.ID == id {
			m.Status = m.StatusAt(timeNow())
			return m, true
		}
	}
	return domain.Match{}, false
}

// State returns the store bookkeeping
func (s *matchesStore) State() domain.MatchesState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.MatchesState{
		Status:    s.status,
		Error:     s.lastError,
		Count:     len(s.items),
		FetchedAt: s.fetchedAt,
	}
}

// newMatch converts an upstream record, applying the display defaults
func newMatch(e domain.RawEvent) domain.Match {
	var fromEvent []string
	if e.StrEvent != "" {
		fromEvent = strings.Split(e.StrEvent, " vs ")
	}

	teamA := e.StrHomeTeam
	if teamA == "" && len(fromEvent) > 0 {
		teamA = fromEvent[0]
	}
	if teamA == "" {
		teamA = "Team A"
	}

	teamB := e.StrAwayTeam
	if teamB == "" && len(fromEvent) > 1 {
		teamB = fromEvent[1]
	}
	if teamB == "" {
		teamB = "Team B"
	}

	kickoff := e.StrTime
	if kickoff == "" {
		kickoff = domain.DefaultMatchTime
	}

	image := e.StrThumb
	if image == "" {
		label := e.StrSport
		if label == "" {
			label = "Sport"
		}
		image = placeholderImage + label
	}

	sport := e.StrSport
	switch sport {
	case "Soccer":
		sport = "Football"
	case "":
		sport = "Swimming"
	}

	return domain.Match{
		ID:       e.IDEvent,
		TeamA:    teamA,
		TeamB:    teamB,
		Date:     e.DateEvent + "T" + kickoff,
		Image:    image,
		Sport:    sport,
		League:   e.StrLeague,
		LeagueID: e.IDLeague,
		TeamAID:  e.IDHomeTeam,
		TeamBID:  e.IDAwayTeam,
	}
}
