package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpapi "github.com/garyjia/claimflow/internal/interfaces/http"
	"github.com/garyjia/claimflow/pkg/utils"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := a.start(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			serverCfg := httpapi.ServerConfig{
				Host:            a.cfg.Server.Host,
				Port:            a.cfg.Server.Port,
				ReadTimeout:     a.cfg.Server.ReadTimeout,
				WriteTimeout:    a.cfg.Server.WriteTimeout,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
			}
			if port > 0 {
				serverCfg.Port = port
			}

			services := c.Services()
			server := httpapi.NewServer(serverCfg, httpapi.Services{
				Claims:   services.Claims,
				Payments: services.Payments,
				Vendors:  services.Vendors,
				Actors:   c.Repositories().Actors,
				Health: func(ctx context.Context) (bool, interface{}) {
					status := c.Health(ctx)
					return status.Overall, status.Components
				},
			}, utils.NewKVLogger(a.logger))

			return server.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}
