package imgcli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyollb/imgcli/internal/history"
	"github.com/dyollb/imgcli/raster"
)

const defaultHistoryPath = "imgcli-history.db"

// App is a CLI application assembled from registered functions. It owns the
// root command, application-wide configuration and the optional batch run
// history sink.
type App struct {
	root      *cobra.Command
	cfg       *Config
	hist      *history.Store
	verbosity int
}

// AppOption customizes a new App.
type AppOption func(*App)

// WithConfig applies a loaded configuration. Without it the built-in
// defaults are used.
func WithConfig(cfg *Config) AppOption {
	return func(a *App) {
		if cfg != nil {
			a.cfg = cfg
		}
	}
}

// NewApp creates an application with a root command named name. The root
// carries the -v/-vv verbosity flag; when history is enabled in the config
// a built-in "history" subcommand is added.
func NewApp(name string, opts ...AppOption) *App {
	app := &App{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(app)
	}

	if app.cfg.SVGFallbackWidth > 0 {
		raster.SVGFallbackWidth = app.cfg.SVGFallbackWidth
	}
	if app.cfg.SVGFallbackHeight > 0 {
		raster.SVGFallbackHeight = app.cfg.SVGFallbackHeight
	}

	app.root = &cobra.Command{
		Use:          name,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	app.root.PersistentFlags().CountVarP(&app.verbosity, "verbose", "v",
		"Increase verbosity (-v for info, -vv for debug)")
	app.root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogging(app.verbosity)
	}

	if app.cfg.History.Enabled {
		path := app.cfg.History.Path
		if path == "" {
			path = defaultHistoryPath
		}
		store, err := history.Open(path)
		if err != nil {
			slog.Warn("failed to open history database", "path", path, "error", err)
		} else {
			app.hist = store
			app.root.AddCommand(newHistoryCmd(store))
		}
	}

	return app
}

// Root returns the underlying root command for callers that need to attach
// additional subcommands.
func (a *App) Root() *cobra.Command {
	return a.root
}

// Register generates a CLI command from fn and adds it as a subcommand.
// Config-derived defaults apply first, explicit options win.
func (a *App) Register(name string, fn any, opts ...CommandOption) error {
	if a.hasCommand(name) {
		return fmt.Errorf("%s: %w", name, errDuplicateCommand)
	}
	all := append(a.cfg.commandOptions(name), opts...)
	cmd, err := MakeCommand(name, fn, all...)
	if err != nil {
		return err
	}
	a.root.AddCommand(cmd)
	return nil
}

// MustRegister is Register, panicking on registration errors.
func (a *App) MustRegister(name string, fn any, opts ...CommandOption) {
	if err := a.Register(name, fn, opts...); err != nil {
		panic(fmt.Sprintf("failed to register command %s: %v", name, err))
	}
}

// RegisterBatch generates a directory-mode command from fn and adds it as a
// subcommand. Batch runs are recorded when history is enabled.
func (a *App) RegisterBatch(name string, fn any, opts ...CommandOption) error {
	if a.hasCommand(name) {
		return fmt.Errorf("%s: %w", name, errDuplicateCommand)
	}
	all := append(a.cfg.commandOptions(name), withHistory(a.hist))
	all = append(all, opts...)
	cmd, err := MakeBatchCommand(name, fn, all...)
	if err != nil {
		return err
	}
	a.root.AddCommand(cmd)
	return nil
}

// MustRegisterBatch is RegisterBatch, panicking on registration errors.
func (a *App) MustRegisterBatch(name string, fn any, opts ...CommandOption) {
	if err := a.RegisterBatch(name, fn, opts...); err != nil {
		panic(fmt.Sprintf("failed to register batch command %s: %v", name, err))
	}
}

// Execute runs the root command.
func (a *App) Execute(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

// Close releases the history sink, if any.
func (a *App) Close() error {
	if a.hist != nil {
		return a.hist.Close()
	}
	return nil
}

func (a *App) hasCommand(name string) bool {
	for _, c := range a.root.Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// verbosityLevel maps the -v/-vv count to a log level: warn by default,
// info with -v, debug with -vv.
func verbosityLevel(verbosity int) slog.Level {
	switch {
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// setupLogging installs the default logger at the level derived from the
// -v/-vv count.
func setupLogging(verbosity int) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: verbosityLevel(verbosity)})))
}

// newHistoryCmd lists recent batch runs recorded in the history database.
func newHistoryCmd(store *history.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "List recent batch runs",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := store.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs")
				return nil
			}
			for _, r := range runs {
				status := "ok"
				if r.Failed > 0 {
					status = fmt.Sprintf("%d failed", r.Failed)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%d items\t%s\n",
					r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Command, r.Total, status)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "Maximum number of runs to list")
	return cmd
}
