package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/gymbook/internal/history"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "history",
		Short: "Show recent booking cycles from the history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(nil)
			if err != nil {
				return err
			}

			store, err := history.Open(cmd.Context(), cfg.DatabaseURL)
			if errors.Is(err, history.ErrDisabled) {
				return fmt.Errorf("no database_url configured")
			}
			if err != nil {
				return err
			}
			defer store.Close()

			attempts, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ATTEMPTED\tDAY\tACTION\tOUTCOME\tRETRIES\tNEXT RUN\tDETAIL")
			for _, a := range attempts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					a.AttemptedAt.Local().Format(time.DateTime),
					dash(a.Day),
					actionColor(a.Action)(a.Action),
					a.Outcome,
					a.RetriesLeft,
					a.NextRunAt.Local().Format(time.DateTime),
					a.Detail,
				)
			}
			return tw.Flush()
		},
	}

	c.Flags().IntVarP(&limit, "limit", "n", 20, "number of cycles to show")
	return c
}

func actionColor(action string) func(a ...interface{}) string {
	switch action {
	case "booked":
		return color.New(color.FgGreen).SprintFunc()
	case "retry":
		return color.New(color.FgYellow).SprintFunc()
	case "give_up":
		return color.New(color.FgRed).SprintFunc()
	default:
		return fmt.Sprint
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
