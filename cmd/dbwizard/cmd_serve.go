package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dbwizard/dbwizard/internal/webserver"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var addr string
	var noDBCheck bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the wizard REST API over HTTP",
		Long: `Serve the wizard REST API over HTTP.

Endpoints:
  GET  /                       Welcome message
  GET  /api/health             Liveness plus database reachability
  POST /api/ask                Run one question session
  GET  /api/sessions           List recorded session logs
  GET  /api/sessions/{id}      Session audit records as JSON
  GET  /api/sessions/{id}/view Session transcript as HTML

The server binds to loopback by default. Concurrent requests each get
their own session; they share nothing but the connection pool.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			adapter, err := openAdapter(ctx, cfg, !noDBCheck)
			if err != nil {
				return err
			}
			defer adapter.Close() //nolint:errcheck

			p, err := buildPlanner(cfg)
			if err != nil {
				return err
			}
			w := buildWizard(adapter, p, cfg)

			serverCfg := webserver.Config{
				Addr:           cfg.Server.Addr,
				LogDir:         cfg.Wizard.LogDir,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				AskTimeout:     time.Duration(cfg.Server.AskTimeoutSec) * time.Second,
			}
			if addr != "" {
				serverCfg.Addr = addr
			}

			srv := webserver.New(serverCfg, w, adapter)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr, e.g. 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&noDBCheck, "no-db-check", false, "Start without verifying the database connection")

	return cmd
}
