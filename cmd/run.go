package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/gymbook/internal/auth"
	"github.com/example/gymbook/internal/config"
	"github.com/example/gymbook/internal/history"
	"github.com/example/gymbook/internal/keepalive"
	"github.com/example/gymbook/internal/logging"
	"github.com/example/gymbook/internal/metrics"
	"github.com/example/gymbook/internal/notify"
	"github.com/example/gymbook/internal/portal"
	"github.com/example/gymbook/internal/scheduler"
	"github.com/example/gymbook/internal/web"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the booking scheduler and the status server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup()

			v := config.New()
			if err := v.BindPFlag("listen_addr", cmd.Flags().Lookup("listen")); err != nil {
				return err
			}
			cfg, err := opts.load(v)
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

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(reg)
			recorders := []scheduler.Recorder{m}

			client := portal.New(cfg.PortalURL, cfg.RequestTimeout, portal.WithObserver(m.ObservePortal))

			store, err := history.Open(ctx, cfg.DatabaseURL)
			switch {
			case errors.Is(err, history.ErrDisabled):
				logger.Info("attempt history disabled")
			case err != nil:
				return fmt.Errorf("history: %w", err)
			default:
				defer store.Close()
				recorders = append(recorders, history.Recorder{Store: store})
			}

			if cfg.AMQPURL != "" {
				n, err := notify.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
				if err != nil {
					return fmt.Errorf("notify: %w", err)
				}
				defer n.Close()
				recorders = append(recorders, n)
			}

			task := scheduler.New(tcfg, client,
				scheduler.WithLogger(logger),
				scheduler.WithRecorders(recorders...),
			)

			if cfg.KeepaliveURL != "" {
				go keepalive.Run(ctx, client, cfg.KeepaliveURL, cfg.KeepaliveInterval, logger)
			}

			if cfg.ListenAddr == "" {
				return ignoreCanceled(task.Run(ctx))
			}

			hashKey, blockKey, err := cfg.CookieKeys()
			if err != nil {
				return err
			}
			authStore := auth.NewStore(cfg.AdminUsername, cfg.AdminPasswordHash, hashKey, blockKey)
			if !authStore.Enabled() {
				logger.Warn("admin_password_hash not set; /status and /run are disabled")
			}
			ws := &web.Server{
				Auth:     authStore,
				Task:     task,
				Gatherer: reg,
				History:  store,
				Logger:   logger,
			}

			// the deferred closes must not run while a cycle can still record
			return runBoth(ctx, task.Run, func(ctx context.Context) error {
				return web.Start(ctx, cfg.ListenAddr, ws.Routes(), logger)
			})
		},
	}

	cmd.Flags().String("listen", "", "status server address (overrides listen_addr; empty config value disables the server)")
	return cmd
}

// runBoth runs the scheduler loop and the status server until either fails
// or ctx ends, and returns only once both have stopped.
func runBoth(ctx context.Context, loop, server func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(loop(gctx)) })
	g.Go(func() error { return server(gctx) })
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
