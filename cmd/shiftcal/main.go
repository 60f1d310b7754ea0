package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shiftcal/internal/calendar"
	"shiftcal/internal/config"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/prefs"
	"shiftcal/internal/rotation"
)

const version = "0.1.0"

// app carries the persistent flags and the loaded config into subcommands.
type app struct {
	configPath string
	debug      bool
	team       string

	now func() time.Time
	cfg *config.Config
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	err := newRootCmd(&app{now: time.Now}).ExecuteContext(ctx)
	appLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "shiftcal",
		Short:   "Four-team shift rotation calendar",
		Version: version,
		Long: `shiftcal computes the 8-day shift rotation of teams A-D and shows it as a
month calendar with a three-month planner, in the terminal, in a browser or
as an iCalendar feed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := appLog.Init(a.debug); err != nil {
				return err
			}
			if a.team != "" {
				if _, err := rotation.ParseTeam(a.team); err != nil {
					return err
				}
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				appLog.Error("failed to load config", err, "config_path", a.configPath)
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "/etc/shiftcal/config.yaml", "Path to config file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.team, "team", "", "Team to show (A-D); overrides the stored preference")

	root.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newMonthCmd(a),
		newDayCmd(a),
		newTeamCmd(a),
		newICSCmd(a),
		newSnapshotCmd(a),
	)
	return root
}

// openPrefs opens the configured preference store.
func (a *app) openPrefs() (*prefs.Preferences, error) {
	store, err := prefs.Open(a.cfg.Prefs.Backend, a.cfg.Prefs.Path)
	if err != nil {
		return nil, err
	}
	return prefs.New(store), nil
}

// resolveTeam picks --team, then the stored preference, then the config
// default.
func (a *app) resolveTeam(ctx context.Context, p *prefs.Preferences) (rotation.Team, error) {
	if a.team != "" {
		return rotation.ParseTeam(a.team)
	}
	if p == nil {
		return a.cfg.DefaultTeam(), nil
	}
	return p.SelectedTeam(ctx, a.cfg.DefaultTeam()), nil
}

func (a *app) location() *time.Location {
	if a.cfg.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.cfg.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", a.cfg.Timezone)
		return time.Local
	}
	return loc
}

// today is the current calendar day in the configured timezone.
func (a *app) today() time.Time {
	return rotation.Date(a.now().In(a.location()))
}

func (a *app) calendarOptions() calendar.Options {
	return calendar.Options{
		WeekStart: calendar.ParseWeekStart(a.cfg.WeekStart),
		Locale:    calendar.LocaleFor(a.cfg.Locale),
		Policy:    a.cfg.WeekendPolicy(),
	}
}
