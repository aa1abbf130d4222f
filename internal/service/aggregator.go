package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sportiz/internal/domain"
	"sportiz/internal/logger"
	"sportiz/internal/seed"
)

// AggregatorConfig configures the fixture endpoints
type AggregatorConfig struct {
	LeagueIDs           []string
	Concurrency         int
	IncludeSupplemental bool
}

// aggregator implements the FixtureAggregator interface
type aggregator struct {
	source domain.FixtureSource
	config AggregatorConfig
	logger *logger.Logger
}

// NewAggregator creates a new FixtureAggregator over source
func NewAggregator(source domain.FixtureSource, config AggregatorConfig) domain.FixtureAggregator {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &aggregator{
		source: source,
		config: config,
		logger: logger.GetGlobalLogger().WithField("component", "aggregator"),
	}
}

// Aggregate fetches every league concurrently and concatenates the results in
// league order. Failed leagues are logged and contribute nothing.
func (a *aggregator) Aggregate(ctx context.Context) ([]domain.RawEvent, error) {
	log := a.logger.WithField("run_id", uuid.NewString())
	started := time.Now()

	results := make([][]domain.RawEvent, len(a.config.LeagueIDs))

	var g errgroup.Group
	g.SetLimit(a.config.Concurrency)

	for i, leagueID := range a.config.LeagueIDs {
		g.Go(func() error {
			events, err := a.source.UpcomingEvents(ctx, leagueID)
			if err != nil {
				log.Warn("Failed endpoint", map[string]interface{}{
					"league_id": leagueID,
					"error":     err.Error(),
				})
				return nil
			}
			results[i] = events
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to aggregate fixtures: %w", err)
	}

	var events []domain.RawEvent
	failed := 0
	for _, batch := range results {
		if batch == nil {
			failed++
			continue
		}
		events = append(events, batch...)
	}

	if a.config.IncludeSupplemental {
		events = append(events, seed.SupplementalEvents()...)
	}
	if events == nil {
		events = []domain.RawEvent{}
	}

	log.Info("Fixtures aggregated", map[string]interface{}{
		"endpoints": len(a.config.LeagueIDs),
		"failed":    failed,
		"events":    len(events),
		"duration":  time.Since(started).String(),
	})

	return events, nil
}

// EventDetails returns nil when the lookup fails or finds nothing
func (a *aggregator) EventDetails(ctx context.Context, eventID string) *domain.EventDetail {
	event, err := a.source.LookupEvent(ctx, eventID)
	if err != nil {
		a.logLookupFailure("event", eventID, err)
		return nil
	}
	return event
}

// LeagueDetails returns nil when the lookup fails or finds nothing
func (a *aggregator) LeagueDetails(ctx context.Context, leagueID string) *domain.League {
	league, err := a.source.LookupLeague(ctx, leagueID)
	if err != nil {
		a.logLookupFailure("league", leagueID, err)
		return nil
	}
	return league
}

// TeamDetails returns nil when the lookup fails or finds nothing
func (a *aggregator) TeamDetails(ctx context.Context, teamID string) *domain.Team {
	team, err := a.source.LookupTeam(ctx, teamID)
	if err != nil {
		a.logLookupFailure("team", teamID, err)
		return nil
	}
	return team
}

// TeamPlayers returns an empty slice when the lookup fails
func (a *aggregator) TeamPlayers(ctx context.Context, teamID string) []domain.Player {
	players, err := a.source.TeamPlayers(ctx, teamID)
	if err != nil || players == nil {
		if err != nil {
			a.logLookupFailure("players", teamID, err)
		}
		return []domain.Player{}
	}
	return players
}

// EventStats returns an empty slice when the lookup fails
func (a *aggregator) EventStats(ctx context.Context, eventID string) []domain.EventStat {
	stats, err := a.source.EventStats(ctx, eventID)
	if err != nil || stats == nil {
		if err != nil {
			a.logLookupFailure("stats", eventID, err)
		}
		return []domain.EventStat{}
	}
	return stats
}

func (a *aggregator) logLookupFailure(kind, id string, err error) {
	a.logger.Warn("Lookup failed", map[string]interface{}{
		"kind":  kind,
		"id":    id,
		"error": err.Error(),
	})
}
