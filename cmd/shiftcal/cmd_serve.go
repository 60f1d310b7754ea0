package main

import (
	"context"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shiftcal/internal/capture"
	"shiftcal/internal/config"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/scheduler"
	"shiftcal/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web calendar, JSON API and refresh scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				a.cfg.Listen = listen
			}
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	conf := a.cfg
	appLog.Info("shiftcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"locale", conf.Locale,
		"refresh", conf.RefreshCron,
		"team", conf.Team,
		"weekend_policy", string(conf.WeekendPolicy()),
		"prefs_backend", conf.Prefs.Backend,
		"snapshot", conf.Snapshot.Enabled,
		"basic_auth", conf.BasicAuth != nil,
	)

	p, err := a.openPrefs()
	if err != nil {
		return err
	}
	defer p.Close()

	srv := web.NewServer(conf, web.Options{Prefs: p, Now: a.now})

	var snapshot scheduler.Job
	if conf.Snapshot.Enabled {
		snapshot = func(ctx context.Context) error {
			return capture.CaptureCalendarPNG(ctx, capture.OptionsFromConfig(srv.Config(), ""))
		}
	}
	sched, err := scheduler.New(scheduler.Options{
		Spec:       conf.RefreshCron,
		Location:   a.location(),
		RunOnStart: conf.Snapshot.Enabled,
	}, scheduler.RefreshJob(srv, snapshot))
	if err != nil {
		return err
	}

	// Bind before the scheduler starts so the startup snapshot can connect.
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		appLog.Error("failed to listen", err, "listen", conf.Listen)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return web.Serve(gctx, srv, ln) })
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		return config.Watch(gctx, a.configPath, func(next *config.Config) {
			if next.Listen != srv.Config().Listen {
				appLog.Info("listen address change needs a restart", "listen", next.Listen)
				next.Listen = srv.Config().Listen
			}
			srv.SetConfig(next)
		})
	})

	err = g.Wait()
	appLog.Info("shiftcal exiting")
	return err
}
