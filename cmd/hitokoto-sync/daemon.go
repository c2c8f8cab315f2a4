package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Yoshino-s/hitokoto-api/internal/corpus"
	"github.com/Yoshino-s/hitokoto-api/internal/daemon"
	"github.com/Yoshino-s/hitokoto-api/internal/dashboard"
	hsync "github.com/Yoshino-s/hitokoto-api/internal/sync"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync scheduler (foreground)",
	Long: `Run syncs on a schedule until interrupted.

The daemon will:
  1. Sync once at startup
  2. Sync every --interval
  3. Watch the bundle directory and sync after --debounce of quiet
  4. Optionally serve the dashboard (WebSocket events, /status, /metrics)

Syncs never overlap. A failed sync is logged and retried on the next trigger.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return withApp(func(a *app) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := hsync.NewMetrics(reg)

			var notifiers hsync.MultiNotifier
			var handler *dashboard.Handler
			if a.cfg.Dashboard.Enabled {
				reader := a.reader()
				server := dashboard.NewServer(&dashboard.Config{
					Port:     a.cfg.Dashboard.Port,
					Gatherer: reg,
					Logger:   a.logger,
					Status: func(ctx context.Context) (*corpus.Status, error) {
						return reader.Status(ctx)
					},
				})
				if err := server.Start(); err != nil {
					return fmt.Errorf("failed to start dashboard: %w", err)
				}
				defer func() {
					if err := server.Stop(); err != nil {
						a.logger.Warn("dashboard shutdown error", "error", err)
					}
				}()

				handler = dashboard.NewHandler(server, a.logger)
				notifiers = append(notifiers, handler)
				fmt.Printf("Dashboard: http://%s (ws://%s/ws)\n", server.GetAddr(), server.GetAddr())
			}

			var notifier hsync.Notifier
			if len(notifiers) > 0 {
				notifier = notifiers
			}

			d, err := daemon.New(a.syncer(notifier, metrics), a.cfg.Bundle.Root, &daemon.Config{
				Interval: a.cfg.Daemon.Interval,
				Debounce: a.cfg.Daemon.Debounce,
				Watch:    a.cfg.Daemon.Watch,
				Logger:   a.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			if handler != nil {
				d.SetObserver(handler)
			}

			fmt.Printf("Starting sync daemon...\n")
			fmt.Printf("   Bundle: %s\n", a.cfg.Bundle.Root)
			fmt.Printf("   Store: %s (%s)\n", a.cfg.Store.Path, a.cfg.Store.Driver)
			fmt.Printf("   Interval: %s, debounce: %s, watch: %v\n", a.cfg.Daemon.Interval, a.cfg.Daemon.Debounce, a.cfg.Daemon.Watch)
			fmt.Printf("\nPress Ctrl+C to stop\n\n")

			if err := d.Start(ctx); err != nil {
				return fmt.Errorf("daemon stopped with error: %w", err)
			}

			stats := d.Stats()
			fmt.Printf("Daemon stopped after %d runs (%d failed)\n", stats.Runs, stats.Failures)
			return nil
		})
	},
}

func init() {
	flags := daemonCmd.Flags()
	flags.Duration("interval", 0, "periodic sync interval (default from config: 10m)")
	flags.Duration("debounce", 0, "quiet period after bundle changes (default from config: 2s)")
	flags.Bool("watch", true, "watch the bundle directory for changes")
	flags.Bool("dashboard", false, "serve the dashboard")
	flags.IntP("port", "p", 8080, "dashboard port")

	bind(flags.Lookup("interval"), "daemon.interval")
	bind(flags.Lookup("debounce"), "daemon.debounce")
	bind(flags.Lookup("watch"), "daemon.watch")
	bind(flags.Lookup("dashboard"), "dashboard.enabled")
	bind(flags.Lookup("port"), "dashboard.port")

	rootCmd.AddCommand(daemonCmd)
}
