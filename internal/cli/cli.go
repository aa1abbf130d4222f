// Package cli is the command front end over the sportiz stores.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"sportiz/internal/domain"
	"sportiz/internal/service"
	"sportiz/internal/task"
)

// ErrUsage is returned for an unknown command or bad arguments
var ErrUsage = errors.New("usage error")

// App wires the stores to the commands
type App struct {
	Matches         domain.MatchesStore
	Favourites      domain.FavouritesStore
	Auth            domain.AuthStore
	Aggregator      domain.FixtureAggregator
	Calendar        *service.CalendarService
	RefreshInterval time.Duration
	Out             io.Writer
}

// Usage prints the command summary
func (a *App) Usage() {
	fmt.Fprint(a.Out, `sportiz - sports fixtures on the command line

Usage:
  sportiz <cmd> [args]

Commands:
  matches       [-sport S] [-date YYYY-MM-DD] [-q text] [-json]
  details       -id <event id>
  fav list
  fav toggle    -id <event id>
  theme show
  theme toggle
  register      -email E -password P [-username U] [-name N]
  login         -email E -password P
  logout
  whoami
  set-name      -name N
  set-username  -username U
  watch         [-interval 5m] [-sport S]
  week          [-date YYYY-MM-DD] [-nav prev|next] [-favs]
  remind        -id <event id> [-o file.ics]
  share         -id <event id>
`)
}

// Run dispatches one command
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		a.Usage()
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "matches":
		return a.runMatches(ctx, rest)
	case "details":
		return a.runDetails(ctx, rest)
	case "fav":
		return a.runFav(ctx, rest)
	case "theme":
		return a.runTheme(rest)
	case "register":
		return a.runRegister(ctx, rest)
	case "login":
		return a.runLogin(ctx, rest)
	case "logout":
		if err := a.Auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.Out, "Signed out")
		return nil
	case "whoami":
		return a.runWhoami()
	case "set-name":
		return a.runSetName(ctx, rest)
	case "set-username":
		return a.runSetUsername(ctx, rest)
	case "watch":
		return a.runWatch(ctx, rest)
	case "week":
		return a.runWeek(ctx, rest)
	case "remind":
		return a.runRemind(ctx, rest)
	case "share":
		return a.runShare(ctx, rest)
	case "help", "-h", "--help":
		a.Usage()
		return nil
	default:
		a.Usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

func (a *App) runMatches(ctx context.Context, args []string) error {
	fs := a.flagSet("matches")
	var filter Filter
	fs.StringVar(&filter.Sport, "sport", "", "sport (Football, Cricket, Swimming, ...)")
	fs.StringVar(&filter.Date, "date", "", "calendar date YYYY-MM-DD")
	fs.StringVar(&filter.Query, "q", "", "team or league text")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if err := a.Matches.FetchMatches(ctx); err != nil {
		return err
	}

	matches := FilterMatches(a.Matches.Matches(), filter)
	if *asJSON {
		return printJSON(a.Out, matches)
	}

	a.printMatches(matches)
	return nil
}

func (a *App) runDetails(ctx context.Context, args []string) error {
	fs := a.flagSet("details")
	id := fs.String("id", "", "event id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *id == "" {
		return fmt.Errorf("%w: details needs -id", ErrUsage)
	}

	if err := a.Matches.FetchMatches(ctx); err != nil {
		return err
	}

	m, found := a.Matches.Find(*id)
	if found {
		fmt.Fprintf(a.Out, "%s vs %s\n", m.TeamA, m.TeamB)
		fmt.Fprintf(a.Out, "  Sport:   %s\n  Date:    %s\n  Status:  %s\n", m.Sport, m.Date, m.Status)
		if a.Favourites.IsFavourite(m.ID) {
			fmt.Fprintln(a.Out, "  ★ Favourite")
		}
	}

	event := a.Aggregator.EventDetails(ctx, *id)
	if event == nil && !found {
		return domain.NewUserFriendlyError(domain.ErrNotFound, "Match not found")
	}
	if event != nil {
		if !found {
			fmt.Fprintln(a.Out, event.StrEvent)
		}
		printField(a.Out, "Venue", firstNonEmpty(event.StrVenue, event.StrStadium))
		printField(a.Out, "Country", event.StrCountry)
		printField(a.Out, "Season", event.StrSeason)
		if event.IntHomeScore != "" || event.IntAwayScore != "" {
			printField(a.Out, "Score", fmt.Sprintf("%s - %s", event.IntHomeScore, event.IntAwayScore))
		}
		printField(a.Out, "About", event.StrDescription)
	}

	leagueID := m.LeagueID
	if leagueID == "" && event != nil {
		leagueID = event.IDLeague
	}
	if leagueID != "" {
		if league := a.Aggregator.LeagueDetails(ctx, leagueID); league != nil {
			fmt.Fprintf(a.Out, "\nLeague: %s\n", league.StrLeague)
			printField(a.Out, "Country", league.StrCountry)
			printField(a.Out, "Formed", league.IntFormedYear.String())
		}
	}

	for _, teamID := range []string{m.TeamAID, m.TeamBID} {
		if teamID == "" {
			continue
		}
		if team := a.Aggregator.TeamDetails(ctx, teamID); team != nil {
			fmt.Fprintf(a.Out, "\nTeam: %s\n", team.StrTeam)
			printField(a.Out, "Stadium", team.StrStadium)
			printField(a.Out, "Formed", team.IntFormedYear.String())
		}
		if players := a.Aggregator.TeamPlayers(ctx, teamID); len(players) > 0 {
			tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  #\tPLAYER\tPOSITION\tNATIONALITY")
			for _, p := range players {
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", p.StrNumber, p.StrPlayer, p.StrPosition, p.StrNationality)
			}
			tw.Flush()
		}
	}

	if stats := a.Aggregator.EventStats(ctx, *id); len(stats) > 0 {
		fmt.Fprintln(a.Out, "\nStats:")
		tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
		for _, s := range stats {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.IntHome, s.StrStat, s.IntAway)
		}
		tw.Flush()
	}

	return nil
}

func (a *App) runFav(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: fav needs list or toggle", ErrUsage)
	}

	switch args[0] {
	case "list":
		items := a.Favourites.Items()
		if len(items) == 0 {
			fmt.Fprintln(a.Out, "No favourites yet")
			return nil
		}
		now := time.Now()
		for i := range items {
			items[i].Status = items[i].StatusAt(now)
		}
		a.printMatches(items)
		return nil

	case "toggle":
		fs := a.flagSet("fav toggle")
		id := fs.String("id", "", "event id")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		if *id == "" {
			return fmt.Errorf("%w: fav toggle needs -id", ErrUsage)
		}

		m, err := a.resolveMatch(ctx, *id)
		if err != nil {
			return err
		}

		if a.Favourites.ToggleFavourite(m) {
			fmt.Fprintf(a.Out, "Added %s vs %s to favourites\n", m.TeamA, m.TeamB)
		} else {
			fmt.Fprintf(a.Out, "Removed %s vs %s from favourites\n", m.TeamA, m.TeamB)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown fav command %q", ErrUsage, args[0])
	}
}

func (a *App) runTheme(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: theme needs show or toggle", ErrUsage)
	}

	switch args[0] {
	case "show":
		fmt.Fprintln(a.Out, themeName(a.Favourites.IsDark()))
	case "toggle":
		fmt.Fprintln(a.Out, themeName(a.Favourites.ToggleTheme()))
	default:
		return fmt.Errorf("%w: unknown theme command %q", ErrUsage, args[0])
	}
	return nil
}

func (a *App) runRegister(ctx context.Context, args []string) error {
	fs := a.flagSet("register")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	username := fs.String("username", "", "username (defaults to the email local part)")
	name := fs.String("name", "", "display name (defaults to the username)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	user, err := a.Auth.Register(ctx, *email, *password, *username, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Welcome, %s (@%s)\n", user.Name, user.Username)
	return nil
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	user, err := a.Auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Welcome back, %s\n", user.Name)
	return nil
}

func (a *App) runWhoami() error {
	user := a.Auth.CurrentUser()
	if user == nil {
		fmt.Fprintln(a.Out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.Out, "%s (@%s) <%s>\n", user.Name, user.Username, user.Email)
	return nil
}

func (a *App) runSetName(ctx context.Context, args []string) error {
	fs := a.flagSet("set-name")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if err := a.Auth.UpdateName(ctx, *name); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Name updated to %s\n", *name)
	return nil
}

func (a *App) runSetUsername(ctx context.Context, args []string) error {
	fs := a.flagSet("set-username")
	username := fs.String("username", "", "username")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if err := a.Auth.UpdateUsername(ctx, *username); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Username updated to @%s\n", *username)
	return nil
}

// runWatch refreshes the list on an interval until ctx is cancelled
func (a *App) runWatch(ctx context.Context, args []string) error {
	fs := a.flagSet("watch")
	interval := fs.Duration("interval", a.RefreshInterval, "refresh interval")
	var filter Filter
	fs.StringVar(&filter.Sport, "sport", "", "sport")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrUsage)
	}

	refresher := task.NewRefresher(a.Matches, *interval, func(state domain.MatchesState) {
		fmt.Fprintf(a.Out, "\n[%s] %s, %d matches\n", time.Now().Format("15:04:05"), state.Status, state.Count)
		if state.Error != "" {
			fmt.Fprintf(a.Out, "last error: %s\n", state.Error)
		}
		a.printMatches(FilterMatches(a.Matches.Matches(), filter))
	})
	refresher.Start(ctx)
	<-ctx.Done()
	refresher.Stop()
	return nil
}

func (a *App) runWeek(ctx context.Context, args []string) error {
	fs := a.flagSet("week")
	date := fs.String("date", "", "any day of the week YYYY-MM-DD (defaults to today)")
	nav := fs.String("nav", "", "prev or next")
	favsOnly := fs.Bool("favs", false, "favourites only")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	week := time.Now().UTC()
	if *date != "" {
		parsed, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return fmt.Errorf("%w: invalid -date %q", ErrUsage, *date)
		}
		week = parsed
	}
	week = a.Calendar.NavigateWeek(week, *nav)

	if !*favsOnly {
		if err := a.Matches.FetchMatches(ctx); err != nil {
			return err
		}
	}

	view := a.Calendar.GetCalendarView(week, *favsOnly)
	fmt.Fprintf(a.Out, "Week of %s\n", view.Week.Format("Mon 2 Jan 2006"))
	for day, matches := range view.Days {
		if len(matches) == 0 {
			continue
		}
		fmt.Fprintf(a.Out, "\n%s\n", view.Week.AddDate(0, 0, day).Format("Monday 2 Jan"))
		a.printMatches(matches)
	}
	return nil
}

func (a *App) runRemind(ctx context.Context, args []string) error {
	fs := a.flagSet("remind")
	id := fs.String("id", "", "event id")
	out := fs.String("o", "", "write the .ics file here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *id == "" {
		return fmt.Errorf("%w: remind needs -id", ErrUsage)
	}

	m, err := a.resolveMatch(ctx, *id)
	if err != nil {
		return err
	}
	ics, err := service.ReminderICS(m)
	if err != nil {
		return domain.NewUserFriendlyError(err, "This match has no date to add to a calendar")
	}

	if *out == "" {
		_, err = a.Out.Write(ics)
		return err
	}
	if err := os.WriteFile(*out, ics, 0o644); err != nil {
		return fmt.Errorf("failed to write calendar file: %w", err)
	}
	fmt.Fprintf(a.Out, "Reminder for %s vs %s written to %s\n", m.TeamA, m.TeamB, *out)
	return nil
}

func (a *App) runShare(ctx context.Context, args []string) error {
	fs := a.flagSet("share")
	id := fs.String("id", "", "event id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *id == "" {
		return fmt.Errorf("%w: share needs -id", ErrUsage)
	}

	m, err := a.resolveMatch(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, service.ShareMessage(m))
	return nil
}

// resolveMatch finds id among the favourites, then in a freshly fetched list
func (a *App) resolveMatch(ctx context.Context, id string) (domain.Match, error) {
	if m, ok := findFavourite(a.Favourites.Items(), id); ok {
		return m, nil
	}
	if err := a.Matches.FetchMatches(ctx); err != nil {
		return domain.Match{}, err
	}
	m, ok := a.Matches.Find(id)
	if !ok {
		return domain.Match{}, domain.NewUserFriendlyError(domain.ErrNotFound, "Match not found")
	}
	return m, nil
}

func (a *App) printMatches(matches []domain.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(a.Out, "No matches found")
		return
	}

	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSPORT\tDATE\tMATCH\tLEAGUE\tFAV")
	for _, m := range matches {
		fav := ""
		if a.Favourites.IsFavourite(m.ID) {
			fav = "★"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s vs %s\t%s\t%s\n", m.ID, m.Status, m.Sport, m.Date, m.TeamA, m.TeamB, m.League, fav)
	}
	tw.Flush()
}

// Filter narrows a match list the way the home screen does
type Filter struct {
	Sport string // "" or "All" keeps every sport
	Date  string // YYYY-MM-DD, matched against the start of Match.Date
	Query string // case-insensitive text in either team or the league
}

// FilterMatches returns the matches passing every non-empty criterion, in order
func FilterMatches(matches []domain.Match, f Filter) []domain.Match {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Match, 0, len(matches))

	for _, m := range matches {
		if f.Sport != "" && !strings.EqualFold(f.Sport, "All") && !strings.EqualFold(m.Sport, f.Sport) {
			continue
		}
		if f.Date != "" && !strings.HasPrefix(m.Date, f.Date) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(m.TeamA), query) &&
			!strings.Contains(strings.ToLower(m.TeamB), query) &&
			!strings.Contains(strings.ToLower(m.League), query) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func findFavourite(items []domain.Match, id string) (domain.Match, bool) {
	for _, m := range items {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Match{}, false
}

func themeName(isDark bool) string {
	if isDark {
		return "dark"
	}
	return "light"
}

func printField(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %-8s %s\n", label+":", value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
