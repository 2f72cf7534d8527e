package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muniheat/dhcore/internal/httpserver"
	"github.com/muniheat/dhcore/internal/metrics"
)

func newMonitorCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the read-only /health and /metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			httpCfg := httpserver.DefaultConfig()
			if host != "" {
				httpCfg.Host = host
			}
			if port != 0 {
				httpCfg.Port = port
			}

			reg := metrics.NewRegistry()
			srv, err := httpserver.New(httpCfg, reg, version)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("monitor: listening on %s:%d\n", httpCfg.Host, httpCfg.Port)
			log.Info().Str("host", httpCfg.Host).Int("port", httpCfg.Port).Msg("monitor: serving /health and /metrics")
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "bind host (defaults to 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "bind port (defaults to DHCORE_HTTP_PORT or 8080)")
	return cmd
}
