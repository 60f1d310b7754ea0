package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shiftcal/internal/calendar"
	"shiftcal/internal/render"
	"shiftcal/internal/rotation"
)

func newMonthCmd(a *app) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Print a month calendar with the three-month planner",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month := rotation.MonthOf(a.today())
			if len(args) == 1 {
				var err error
				if month, err = rotation.ParseMonth(args[0]); err != nil {
					return err
				}
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

			opts := a.calendarOptions()
			page, err := calendar.Build(team, month, a.today(), opts)
			if err != nil {
				return err
			}
			styles := render.DefaultStyles()
			if plain {
				styles = render.PlainStyles()
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Page(page, opts.Locale.TeamLabel, opts.Locale.Planner, styles))
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable colours")
	return cmd
}

func newDayCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "Print the shift of one day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := a.today()
			if len(args) == 1 {
				var err error
				if day, err = rotation.ParseDate(args[0]); err != nil {
					return err
				}
			}

			teams := rotation.Teams
			if !all {
				p, err := a.openPrefs()
				if err != nil {
					return err
				}
				defer p.Close()
				team, err := a.resolveTeam(cmd.Context(), p)
				if err != nil {
					return err
				}
				teams = []rotation.Team{team}
			}

			loc := calendar.LocaleFor(a.cfg.Locale)
			policy := a.cfg.WeekendPolicy()
			out := cmd.OutOrStdout()
			for _, t := range teams {
				sh := rotation.Lookup(t, day, policy)
				if _, err := fmt.Fprintf(out, "%s  %s  %s\n", day.Format(rotation.DateLayout), loc.Team(t), loc.ShiftName(sh)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show every team")
	return cmd
}

func newTeamCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "team [A|B|C|D]",
		Short: "Show or change the remembered team",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.openPrefs()
			if err != nil {
				return err
			}
			defer p.Close()

			loc := calendar.LocaleFor(a.cfg.Locale)
			if len(args) == 0 {
				team := p.SelectedTeam(ctx, a.cfg.DefaultTeam())
				_, err := fmt.Fprintln(cmd.OutOrStdout(), loc.Team(team))
				return err
			}

			team, err := rotation.ParseTeam(args[0])
			if err != nil {
				return err
			}
			if err := p.SetSelectedTeam(ctx, team); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), loc.Team(team))
			return err
		},
	}
}
