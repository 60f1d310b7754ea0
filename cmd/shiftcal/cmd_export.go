package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shiftcal/internal/calendar"
	"shiftcal/internal/capture"
	"shiftcal/internal/ics"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/rotation"
	"shiftcal/internal/web"
)

func newICSCmd(a *app) *cobra.Command {
	var (
		from       string
		months     int
		includeOff bool
		output     string
	)
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Export the schedule as an iCalendar feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			first := rotation.MonthOf(a.today())
			if from != "" {
				var err error
				if first, err = rotation.ParseMonth(from); err != nil {
					return err
				}
			}
			if months <= 0 {
				return fmt.Errorf("--months must be positive, got %d", months)
			}

			p, err := a.openPrefs()
			if err != nil {
				return err
			}
			defer p.Close()
			team, err := a.resolveTeam(cmd.Context(), p)
			if err != nil {
				return err
			}

			body, err := ics.ExportMonths(team, first, months, a.cfg.WeekendPolicy(), ics.ExportOptions{
				Locale:     calendar.LocaleFor(a.cfg.Locale),
				IncludeOff: includeOff,
				Stamp:      a.now(),
			})
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
				return err
			}
			appLog.Info("ics written", "path", output, "team", string(team), "months", months)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First month (YYYY-MM); defaults to the current month")
	cmd.Flags().IntVar(&months, "months", 3, "Number of months to export")
	cmd.Flags().BoolVar(&includeOff, "off", false, "Also emit events for days off")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	var opts capture.CaptureOptions
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a PNG of the web calendar with headless Chromium",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd.Context(), a, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "PNG path (default: snapshot.path from config)")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "Viewport width (default: snapshot.width)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "Viewport height (default: snapshot.height)")
	return cmd
}

// runSnapshot serves /calendar from a throwaway in-process server on a
// loopback port and captures it once.
func runSnapshot(ctx context.Context, a *app, flags capture.CaptureOptions) error {
	p, err := a.openPrefs()
	if err != nil {
		return err
	}
	defer p.Close()
	team, err := a.resolveTeam(ctx, p)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	local := *a.cfg
	local.Listen = ln.Addr().String()
	local.BasicAuth = nil
	srv := web.NewServer(&local, web.Options{Prefs: p, Now: a.now})

	opts := capture.OptionsFromConfig(&local, string(team))
	if flags.OutputPath != "" {
		opts.OutputPath = flags.OutputPath
	}
	if flags.Width > 0 {
		opts.Width = flags.Width
	}
	if flags.Height > 0 {
		opts.Height = flags.Height
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return web.Serve(gctx, srv, ln) })
	g.Go(func() error {
		defer cancel()
		if err := capture.CaptureCalendarPNG(gctx, opts); err != nil {
			return err
		}
		appLog.Info("snapshot written", "path", opts.OutputPath, "team", string(team))
		return nil
	})
	return g.Wait()
}
