package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/gymbook/internal/portal"
)

func newSlotsCmd(opts *rootOptions) *cobra.Command {
	var day string

	c := &cobra.Command{
		Use:   "slots",
		Short: "Log in and list the slots the portal offers for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(nil)
			if err != nil {
				return err
			}
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			d := time.Now().In(loc).AddDate(0, 0, cfg.DaysAhead)
			if day != "" {
				if d, err = time.ParseInLocation("2006-01-02", day, loc); err != nil {
					return fmt.Errorf("invalid --day (want YYYY-MM-DD)")
				}
			}

			ctx := cmd.Context()
			client := portal.New(cfg.PortalURL, cfg.RequestTimeout)
			session, err := client.Authenticate(ctx, cfg.Username, cfg.Password)
			if err != nil {
				return err
			}
			slots, err := client.ListSlots(ctx, session, cfg.ClubID, d, cfg.Studio)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			header := color.New(color.FgHiCyan, color.Bold)
			target := color.New(color.FgGreen, color.Bold)
			header.Fprintf(out, "club %d, %s, %s: %d slots\n", cfg.ClubID, cfg.Studio, d.Format("Mon 2006-01-02"), len(slots))
			for _, s := range slots {
				if s.StartAtDisplay == cfg.TargetTime {
					target.Fprintf(out, "  %-8s id=%s  <- target\n", s.StartAtDisplay, s.ID)
					continue
				}
				fmt.Fprintf(out, "  %-8s id=%s\n", s.StartAtDisplay, s.ID)
			}
			return nil
		},
	}

	c.Flags().StringVar(&day, "day", "", "day to list, YYYY-MM-DD (default: days_ahead from today)")
	return c
}
