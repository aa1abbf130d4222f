package task

import (
	"context"
	"sync"
	"time"

	"sportiz/internal/domain"
	"sportiz/internal/logger"
)

// Refresher re-fetches the match list on a fixed interval
type Refresher struct {
	store     domain.MatchesStore
	interval  time.Duration
	onRefresh func(domain.MatchesState)
	logger    *logger.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRefresher creates a new Refresher. onRefresh, if non-nil, is called after every fetch.
func NewRefresher(store domain.MatchesStore, interval time.Duration, onRefresh func(domain.MatchesState)) *Refresher {
	return &Refresher{
		store:     store,
		interval:  interval,
		onRefresh: onRefresh,
		logger:    logger.GetGlobalLogger().WithField("component", "refresher"),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the refresh loop
func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)
}

// Stop gracefully stops the refresher
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// run is the main loop that periodically fetches matches
func (r *Refresher) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start
	r.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if err := r.store.FetchMatches(ctx); err != nil {
		r.logger.Warn("Scheduled refresh failed", map[string]interface{}{"error": err.Error()})
	}
	if r.onRefresh != nil {
		r.onRefresh(r.store.State())
	}
}
