package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/gymbook/internal/domain/booking"
	"github.com/example/gymbook/internal/logging"
	"github.com/example/gymbook/internal/portal"
	"github.com/example/gymbook/internal/scheduler"
)

func newOnceCmd(opts *rootOptions) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "once",
		Short: "Run a single booking transaction now and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(nil)
			if err != nil {
				return err
			}
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}
			tcfg, err := taskConfig(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			today := time.Now().In(tcfg.Location)
			if !force && !tcfg.Weekdays.Has(today.Weekday()) {
				color.New(color.FgYellow).Fprintf(out, "skipped: %s is not one of %s (use --force)\n", today.Weekday(), tcfg.Weekdays)
				return nil
			}

			client := portal.New(cfg.PortalURL, cfg.RequestTimeout)
			logger := logging.SetupTo(cmd.ErrOrStderr(), "text", logging.Level())
			task := scheduler.New(tcfg, client, scheduler.WithLogger(logger))
			day := today.AddDate(0, 0, tcfg.DaysAhead).Format("2006-01-02")

			res := task.Attempt(cmd.Context())
			switch res.Kind {
			case booking.Booked:
				color.New(color.FgGreen, color.Bold).Fprintf(out, "booked %s on %s\n", res.Slot, day)
				return nil
			case booking.NoMatchingSlot:
				color.New(color.FgYellow).Fprintf(out, "no %s slot on %s\n", tcfg.TargetTime, day)
			default:
				color.New(color.FgRed).Fprintf(out, "%s: %s\n", res.Kind, res.Detail())
			}
			return fmt.Errorf("not booked (%s)", res.Kind)
		},
	}

	c.Flags().BoolVar(&force, "force", false, "attempt even when today is not a configured weekday")
	return c
}
