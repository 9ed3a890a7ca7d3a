package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/gymbook/internal/portal"
)

func newPingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the portal accepts the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(nil)
			if err != nil {
				return err
			}
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			start := time.Now()
			_, err = portal.New(cfg.PortalURL, cfg.RequestTimeout).Authenticate(ctx, cfg.Username, cfg.Password)
			if portal.IsHTTPStatus(err, http.StatusUnauthorized) || portal.IsHTTPStatus(err, http.StatusForbidden) {
				return fmt.Errorf("portal rejected the credentials for %s: %w", cfg.Username, err)
			}
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s: ok (%s)\n", cfg.PortalURL, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
