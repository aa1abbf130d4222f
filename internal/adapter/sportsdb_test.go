package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sportiz/internal/domain"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *SportsDBAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSportsDBAdapterWithConfig(SportsDBConfig{BaseURL: server.URL + "/", Timeout: 2 * time.Second})
}

func TestNewSportsDBAdapter_Defaults(t *testing.T) {
	adapter := NewSportsDBAdapter()

	if adapter.baseURL != DefaultBaseURL {
		t.Errorf("Expected baseURL %q, got %q", DefaultBaseURL, adapter.baseURL)
	}
	if adapter.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, adapter.httpClient.Timeout)
	}
	if got := adapter.EventsURL("4328"); got != DefaultBaseURL+"/eventsnextleague.php?id=4328" {
		t.Errorf("Unexpected events URL %q", got)
	}
}

func TestSportsDBAdapter_UpcomingEvents(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eventsnextleague.php" || r.URL.Query().Get("id") != "4328" {
			t.Errorf("Unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`{"events":[
			{"idEvent":"2052718","strEvent":"Arsenal vs Chelsea","strHomeTeam":"Arsenal","strAwayTeam":"Chelsea",
			 "strSport":"Soccer","dateEvent":"2025-03-01","strTime":"15:00:00","idLeague":"4328","strThumb":null}
		]}`))
	})

	events, err := adapter.UpcomingEvents(context.Background(), "4328")
	if err != nil {
		t.Fatalf("UpcomingEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].IDEvent != "2052718" || events[0].StrHomeTeam != "Arsenal" || events[0].IDLeague != "4328" {
		t.Errorf("Unexpected event %+v", events[0])
	}
	if events[0].StrThumb != "" {
		t.Errorf("Expected null thumb to decode empty, got %q", events[0].StrThumb)
	}
}

func TestSportsDBAdapter_UpcomingEvents_NullEvents(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":null}`))
	})

	events, err := adapter.UpcomingEvents(context.Background(), "4328")
	if err != nil {
		t.Fatalf("UpcomingEvents failed: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", events)
	}
}

func TestSportsDBAdapter_UpcomingEvents_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("boom"))
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>rate limited</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, tt.handler)
			_, err := adapter.UpcomingEvents(context.Background(), "4328")
			if !errors.Is(err, domain.ErrUpstream) {
				t.Errorf("Expected ErrUpstream, got %v", err)
			}
		})
	}
}

func TestSportsDBAdapter_UpcomingEvents_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	adapter := NewSportsDBAdapterWithConfig(SportsDBConfig{BaseURL: base})
	if _, err := adapter.UpcomingEvents(context.Background(), "4328"); err == nil {
		t.Error("Expected error when the server is unreachable")
	}
}

func TestSportsDBAdapter_LookupEvent_CachesSuccess(t *testing.T) {
	var calls int32
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"events": []map[string]interface{}{
				{"idEvent": "1", "strEvent": "A vs B", "strVenue": "Emirates", "intHomeScore": 2},
			},
		})
	})

	for i := 0; i < 3; i++ {
		event, err := adapter.LookupEvent(context.Background(), "1")
		if err != nil {
			t.Fatalf("LookupEvent failed: %v", err)
		}
		if event.StrVenue != "Emirates" || event.IntHomeScore != "2" {
			t.Errorf("Unexpected event %+v", event)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
}

func TestSportsDBAdapter_CachedLookupsAreCopies(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lookupevent.php":
			w.Write([]byte(`{"events":[{"idEvent":"1","strVenue":"Emirates"}]}`))
		case "/lookup_all_players.php":
			w.Write([]byte(`{"player":[{"idPlayer":"1","strPlayer":"Bukayo Saka"}]}`))
		}
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		event, err := adapter.LookupEvent(ctx, "1")
		if err != nil {
			t.Fatalf("LookupEvent failed: %v", err)
		}
		if event.StrVenue != "Emirates" {
			t.Fatalf("Lookup %d: expected cached venue to be untouched, got %q", i, event.StrVenue)
		}
		event.StrVenue = "changed by caller"

		players, err := adapter.TeamPlayers(ctx, "133604")
		if err != nil {
			t.Fatalf("TeamPlayers failed: %v", err)
		}
		if len(players) != 1 || players[0].StrPlayer != "Bukayo Saka" {
			t.Fatalf("Lookup %d: expected cached roster to be untouched, got %+v", i, players)
		}
		players[0].StrPlayer = "changed by caller"
	}
}

func TestSportsDBAdapter_LookupEvent_NotFoundIsNotCached(t *testing.T) {
	var calls int32
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"events":null}`))
	})

	for i := 0; i < 2; i++ {
		_, err := adapter.LookupEvent(context.Background(), "404")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected misses to reach upstream every time, got %d calls", got)
	}
}

func TestSportsDBAdapter_LookupLeagueAndTeam(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lookupleague.php":
			w.Write([]byte(`{"leagues":[{"idLeague":"4328","strLeague":"English Premier League","intFormedYear":"1992"}]}`))
		case "/lookupteam.php":
			w.Write([]byte(`{"teams":[{"idTeam":"133604","strTeam":"Arsenal","strStadium":"Emirates Stadium","intFormedYear":1886}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	league, err := adapter.LookupLeague(context.Background(), "4328")
	if err != nil {
		t.Fatalf("LookupLeague failed: %v", err)
	}
	if league.StrLeague != "English Premier League" || league.IntFormedYear != "1992" {
		t.Errorf("Unexpected league %+v", league)
	}

	team, err := adapter.LookupTeam(context.Background(), "133604")
	if err != nil {
		t.Fatalf("LookupTeam failed: %v", err)
	}
	if team.StrStadium != "Emirates Stadium" || team.IntFormedYear != "1886" {
		t.Errorf("Unexpected team %+v", team)
	}
}

func TestSportsDBAdapter_TeamPlayers(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup_all_players.php" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"player":[{"idPlayer":"1","strPlayer":"Bukayo Saka","strPosition":"Winger","strNumber":7}]}`))
	})

	players, err := adapter.TeamPlayers(context.Background(), "133604")
	if err != nil {
		t.Fatalf("TeamPlayers failed: %v", err)
	}
	if len(players) != 1 || players[0].StrNumber != "7" {
		t.Errorf("Unexpected players %+v", players)
	}
}

func TestSportsDBAdapter_EventStats_FieldNames(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "eventstats", body: `{"eventstats":[{"strStat":"Shots","intHome":"10","intAway":4}]}`, want: 1},
		{name: "results", body: `{"results":[{"strStat":"Shots","intHome":10,"intAway":4},{"strStat":"Corners","intHome":3,"intAway":2}]}`, want: 2},
		{name: "none", body: `{"eventstats":null}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			stats, err := adapter.EventStats(context.Background(), "1")
			if err != nil {
				t.Fatalf("EventStats failed: %v", err)
			}
			if stats == nil || len(stats) != tt.want {
				t.Errorf("Expected %d stats, got %v", tt.want, stats)
			}
		})
	}
}

func TestSportsDBAdapter_ContextCancelled(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.UpcomingEvents(ctx, "4328")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
