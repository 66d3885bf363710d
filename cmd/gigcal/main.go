package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/gigcal/internal/calendar"
	"github.com/christopherklint97/gigcal/internal/config"
	"github.com/christopherklint97/gigcal/internal/monthcache"
	"github.com/christopherklint97/gigcal/internal/project"
	"github.com/christopherklint97/gigcal/internal/store"
	"github.com/christopherklint97/gigcal/internal/supabase"
	"github.com/christopherklint97/gigcal/internal/tui"
)

const lastMonthKey = "last_month"

var rootCmd = &cobra.Command{
	Use:   "gigcal",
	Short: "Month-by-month calendar of scheduled gigs",
	Long:  "gigcal shows scheduled projects month by month, reading them from SQLite or Supabase through a prefetching month cache.",
}

var monthCmd = &cobra.Command{
	Use:   "month [when]",
	Short: "List the projects of a month",
	Long:  "List the projects of a month. [when] is YYYY-MM or plain English such as \"next month\".",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMonth,
}

var browseCmd = &cobra.Command{
	Use:   "browse [when]",
	Short: "Browse months interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBrowse,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a project to the local database",
	RunE:  runAdd,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project from the local database",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Add or update a client or manager in the local database",
	RunE:  runUser,
}

var importCmd = &cobra.Command{
	Use:   "import <ics url or file>",
	Short: "Import projects from an iCalendar feed into the local database",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Load the current and adjacent months and show cache statistics",
	RunE:  runStats,
}

var colorCmd = &cobra.Command{
	Use:   "color <event type> <#RRGGBB>",
	Short: "Set the display color of an event type",
	Args:  cobra.ExactArgs(2),
	RunE:  runColor,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	monthCmd.Flags().Bool("stats", false, "Print cache statistics after the listing")
	monthCmd.Flags().Bool("no-cache", false, "Query the source directly, printing an empty month if it fails")

	addCmd.Flags().String("id", "", "Project ID (generated when empty)")
	addCmd.Flags().String("title", "", "Project title")
	addCmd.Flags().String("start", "", "Start date, YYYY-MM-DD [HH:MM] or plain English")
	addCmd.Flags().String("end", "", "End date, same formats as --start")
	addCmd.Flags().String("type", "", "Event type, e.g. roadshow, in-store, wedding")
	addCmd.Flags().String("venue", "", "Venue address")
	addCmd.Flags().String("color", "", "Display color, overrides the event type color")
	addCmd.Flags().String("client", "", "Client user ID")
	addCmd.Flags().String("manager", "", "Manager user ID")
	addCmd.Flags().Int("crew", 0, "Crew positions")
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("start")

	userCmd.Flags().String("id", "", "User ID")
	userCmd.Flags().String("name", "", "Full name")
	userCmd.Flags().String("email", "", "Email")
	userCmd.Flags().String("company", "", "Company name")
	_ = userCmd.MarkFlagRequired("id")
	_ = userCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(monthCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every command works with: the local database, the configured
// project source and the month cache in front of it.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *store.DB
	fetcher *calendar.Fetcher
	cache   *monthcache.Cache
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var source calendar.Source = db
	if cfg.Source.Kind == "supabase" {
		source = supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, logger)
	}

	fetcher := calendar.NewFetcher(source, project.MergeColors(cfg.Colors), logger)
	cache := monthcache.New(fetcher.Fetch,
		monthcache.WithTTL(cfg.Cache.TTL()),
		monthcache.WithPrefetchMonths(cfg.Cache.PrefetchMonths),
		monthcache.WithLogger(logger),
	)

	return &env{cfg: cfg, logger: logger, db: db, fetcher: fetcher, cache: cache}, nil
}

// loadMonth reads m through the cache, or straight from the source when
// direct is set.
func (e *env) loadMonth(ctx context.Context, m project.Month, direct bool) ([]project.Project, error) {
	if direct {
		return e.fetcher.FetchOrEmpty(ctx, m), nil
	}
	return e.cache.Month(ctx, m.Start())
}

func (e *env) Close() {
	e.cache.Close()
	e.db.Close()
}

func (e *env) requireLocal() error {
	if e.cfg.Source.Kind != "sqlite" {
		return fmt.Errorf("this command writes to the local database, but the configured source is %q", e.cfg.Source.Kind)
	}
	return nil
}

// invalidateSpan drops every cached month the project touches.
func (e *env) invalidateSpan(p project.Project) {
	start, end := p.Span()
	for m := project.MonthOf(start.Local()); !m.Start().After(end); m = m.Add(1) {
		e.cache.Invalidate(m.Start())
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runMonth(cmd *cobra.Command, args []string) error {
	showStats, _ := cmd.Flags().GetBool("stats")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	m, err := monthArg(args, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	projects, err := e.loadMonth(ctx, m, noCache)
	if err != nil {
		return fmt.Errorf("loading %s: %w", m, err)
	}

	printMonth(m, projects)

	if showStats && !noCache {
		printStats(e.cache.Stats())
	}
	return nil
}

func printMonth(m project.Month, projects []project.Project) {
	fmt.Printf("%s\n\n", m.Start().Format("January 2006"))
	if len(projects) == 0 {
		fmt.Println("  No projects this month.")
		return
	}

	byDay := calendar.GroupByDay(projects)
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	for _, d := range days {
		fmt.Printf("  %s\n", d)
		for _, p := range byDay[d] {
			start, end := p.Span()
			span := start.Local().Format("15:04")
			if !end.Equal(start) {
				span += "–" + end.Local().Format("Jan 02 15:04")
			}
			client := ""
			if p.Client != nil {
				client = "  (" + p.Client.FullName + ")"
			}
			fmt.Printf("    %-22s %-30s %s  %s%s\n", span, p.Title, p.Color, p.ID, client)
		}
	}
	fmt.Printf("\n%d projects\n", len(projects))
}

func printStats(s monthcache.Stats) {
	fmt.Printf("\nCache: %d months cached, %d loading\n", s.Entries, s.Pending)
	fmt.Printf("  hits %d  misses %d  joins %d  errors %d  prefetches %d  hit rate %.1f%%\n",
		s.Hits, s.Misses, s.Joins, s.Errors, s.Prefetches, s.HitRate())
}

func runBrowse(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	start := project.MonthOf(time.Now())
	if len(args) > 0 {
		if start, err = monthArg(args, time.Now()); err != nil {
			return err
		}
	} else if last, err := e.db.GetState(lastMonthKey); err == nil && last != "" {
		if m, err := project.ParseMonth(last); err == nil {
			start = m
		}
	}

	app := tui.NewApp(e.cache, start)
	if _, err := tea.NewProgram(app).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	if err := e.db.SetState(lastMonthKey, app.Month().String()); err != nil {
		e.logger.Warn("saving last month", "error", err)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.requireLocal(); err != nil {
		return err
	}

	flags := cmd.Flags()
	id, _ := flags.GetString("id")
	title, _ := flags.GetString("title")
	startArg, _ := flags.GetString("start")
	endArg, _ := flags.GetString("end")
	eventType, _ := flags.GetString("type")
	venue, _ := flags.GetString("venue")
	color, _ := flags.GetString("color")
	clientID, _ := flags.GetString("client")
	managerID, _ := flags.GetString("manager")
	crew, _ := flags.GetInt("crew")

	now := time.Now()
	start, err := parseWhen(startArg, now)
	if err != nil {
		return err
	}

	p := project.Project{
		ID:           id,
		Title:        title,
		EventType:    eventType,
		StartDate:    start,
		VenueAddress: venue,
		Color:        color,
		CrewCount:    crew,
		ClientID:     clientID,
		ManagerID:    managerID,
	}
	if p.ID == "" {
		p.ID = newProjectID()
	}
	if endArg != "" {
		end, err := parseWhen(endArg, start)
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fmt.Errorf("end %s is before start %s", end.Format(time.DateTime), start.Format(time.DateTime))
		}
		p.EndDate = &end
	}

	ctx, cancel := signalContext()
	defer cancel()

	// A replaced project may have moved; drop its old months too.
	if old, err := e.db.GetProject(ctx, p.ID); err == nil {
		e.invalidateSpan(*old)
	}
	if err := e.db.InsertProject(ctx, &p); err != nil {
		return err
	}
	e.invalidateSpan(p)

	fmt.Printf("Added %s — %s\n\n", p.ID, p.Title)

	m := project.MonthOf(start)
	projects, err := e.cache.Month(ctx, m.Start())
	if err != nil {
		return fmt.Errorf("loading %s: %w", m, err)
	}
	printMonth(m, projects)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.requireLocal(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := e.db.SoftDeleteProject(ctx, args[0])
	if err != nil {
		return err
	}
	e.invalidateSpan(*p)

	fmt.Printf("Deleted %s — %s\n", p.ID, p.Title)
	return nil
}

func runUser(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.requireLocal(); err != nil {
		return err
	}

	flags := cmd.Flags()
	var u project.User
	u.ID, _ = flags.GetString("id")
	u.FullName, _ = flags.GetString("name")
	u.Email, _ = flags.GetString("email")
	u.CompanyName, _ = flags.GetString("company")

	ctx, cancel := signalContext()
	defer cancel()

	if err := e.db.UpsertUser(ctx, u); err != nil {
		return err
	}
	// Every cached month may show this user.
	e.cache.InvalidateAll()

	fmt.Printf("Saved user %s — %s\n", u.ID, u.FullName)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.requireLocal(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	projects, err := calendar.LoadICS(ctx, args[0])
	if err != nil {
		return err
	}

	for i := range projects {
		if err := e.db.InsertProject(ctx, &projects[i]); err != nil {
			return fmt.Errorf("importing %s: %w", projects[i].ID, err)
		}
	}
	e.cache.InvalidateAll()

	fmt.Printf("Imported %d projects from %s\n", len(projects), args[0])
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := signalContext()
	defer cancel()

	now := time.Now()
	if err := e.cache.Warm(ctx, now); err != nil {
		fmt.Printf("Warning: initial load incomplete: %v\n", err)
	}

	center := project.MonthOf(now)
	n := e.cfg.Cache.PrefetchMonths + 1
	fmt.Println("Months:")
	for i := -n; i <= n; i++ {
		m := center.Add(i)
		fmt.Printf("  %s  %s\n", m, e.cache.StateOf(m.Start()))
	}
	printStats(e.cache.Stats())
	return nil
}

func runColor(cmd *cobra.Command, args []string) error {
	eventType, color, err := saveColor(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("%s projects now show as %s\n\n", eventType, color)

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := signalContext()
	defer cancel()

	m := project.MonthOf(time.Now())
	projects, err := e.cache.Month(ctx, m.Start())
	if err != nil {
		return fmt.Errorf("loading %s: %w", m, err)
	}
	printMonth(m, projects)
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		// If editor fails, just print the path
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
