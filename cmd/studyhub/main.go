// StudyHub is a personal study dashboard: a daily study streak, to-dos,
// notes, a planner, timers and a few other widgets, served as a web page.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/madhatter5501/StudyHub"
	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/internal/config"
	"github.com/madhatter5501/StudyHub/internal/db"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

// Global is shared with every command.
type Global struct {
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer
	Clock  studyhub.Clock
}

// CLI definition and global flags.
type CLI struct {
	Config      string           `short:"c" type:"path" env:"STUDYHUB_CONFIG" help:"Configuration file path"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	ShowVersion kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the dashboard web server and background jobs"`
	Streak  StreakCmd  `cmd:"" help:"Show or update the study streak"`
	Todo    TodoCmd    `cmd:"" help:"Manage the to-do list"`
	Note    NoteCmd    `cmd:"" help:"Read or write a daily note"`
	Import  ImportCmd  `cmd:"" help:"Copy a JSON data file into the SQLite store"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// AfterApply loads the configuration and sets up logging once.
func (c *CLI) AfterApply(g *Global) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	g.Config = cfg
	g.Logger = cfg.Logging.NewLogger(os.Stderr, c.Verbose)
	slog.SetDefault(g.Logger)
	return nil
}

// VersionCmd prints build information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Global) error {
	fmt.Fprintf(g.Out, "studyhub %s\n", version)
	fmt.Fprintf(g.Out, "  commit: %s\n", gitCommit)
	fmt.Fprintf(g.Out, "  built:  %s\n", buildTime)
	return nil
}

func newParser(cli *CLI, g *Global, opts ...kong.Option) (*kong.Kong, error) {
	opts = append([]kong.Option{
		kong.Name("studyhub"),
		kong.Description("A personal study dashboard with a daily streak."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("studyhub %s (commit: %s, built: %s)", version, gitCommit, buildTime)},
		kong.Bind(g),
	}, opts...)
	return kong.New(cli, opts...)
}

func main() {
	var cli CLI
	g := &Global{Out: os.Stdout, Clock: studyhub.ClockFunc(time.Now)}

	parser, err := newParser(&cli, g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(g); err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// storage is the opened data store.
type storage struct {
	store hub.Store
	state *hub.State // json backend
	db    *db.DB     // sqlite backend
}

func openStorage(cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		database, err := db.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return &storage{store: db.NewStore(database), db: database}, nil
	default:
		state, err := hub.OpenState(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		return &storage{store: state, state: state}, nil
	}
}

func (s *storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// appConfig maps file configuration onto the application settings.
func appConfig(cfg *config.Config) (studyhub.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return studyhub.Config{}, err
	}
	c := studyhub.DefaultConfig()
	c.Location = loc
	if len(cfg.Playlist.Tracks) > 0 {
		c.Tracks = cfg.Playlist.Tracks
	}
	c.ReminderEnabled = cfg.Reminder.Enabled
	c.ReminderTime = cfg.Reminder.Time
	c.ReminderInterval = cfg.Reminder.CheckInterval
	return c, nil
}

// openApp opens storage and builds the application over it. The caller
// closes the returned storage.
func openApp(g *Global, opts ...studyhub.Option) (*studyhub.App, *storage, error) {
	st, err := openStorage(g.Config)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := appConfig(g.Config)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	opts = append([]studyhub.Option{
		studyhub.WithLogger(g.Logger),
		studyhub.WithClock(g.Clock),
	}, opts...)
	return studyhub.New(st.store, cfg, opts...), st, nil
}
