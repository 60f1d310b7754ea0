package main

import (
	"github.com/spf13/cobra"

	"shiftcal/internal/render"
	"shiftcal/internal/rotation"
	"shiftcal/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the calendar interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, err := a.openPrefs()
			if err != nil {
				return err
			}
			defer p.Close()

			team, err := a.resolveTeam(ctx, p)
			if err != nil {
				return err
			}
			opts := tui.Options{
				Calendar: a.calendarOptions(),
				Styles:   render.DefaultStyles(),
				Prefs:    p,
				Team:     team,
				Now:      a.today,
			}
			if month != "" {
				if opts.Month, err = rotation.ParseMonth(month); err != nil {
					return err
				}
			}
			return tui.Run(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to open (YYYY-MM); defaults to the current month")
	return cmd
}
