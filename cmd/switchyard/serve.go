package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vango-dev/switchyard/internal/errors"
)

func serveCmd(configDir *string) *cobra.Command {
	var (
		addr string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		Long: `Start the HTTP server described by switchyard.json.

Connects to the configured database and object store, then serves until
interrupted. SWITCHYARD_ADDR, SWITCHYARD_DEV and SWITCHYARD_DATABASE_DSN
override the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			if addr != "" {
				fc.Addr = addr
			}
			if cmd.Flags().Changed("dev") {
				fc.DevMode = dev
			}

			svc, closeServices, err := openServices(cmd.Context(), fc)
			if err != nil {
				return err
			}
			defer closeServices()

			app, err := buildApp(fc, svc)
			if err != nil {
				return err
			}

			server := app.Config().Server
			srv := &http.Server{
				Addr:              fc.Addr,
				Handler:           router(app),
				ReadHeaderTimeout: server.ReadHeaderTimeout,
				ReadTimeout:       server.ReadTimeout,
				WriteTimeout:      server.WriteTimeout,
				IdleTimeout:       server.IdleTimeout,
			}

			success("Serving %s on %s", fc.Name, fc.Addr)
			if fc.DevMode {
				warn("Development mode: error details are sent to clients")
			}
			if fc.Metrics.Enabled {
				info("Metrics at %s", fc.Metrics.Path)
			}
			if fc.HasDatabase() {
				info("Database: %s", fc.Database.Driver)
			}
			if fc.HasStorage() {
				info("Objects from s3://%s/%s", fc.Storage.Bucket, fc.Storage.Prefix)
			}

			if err := app.Serve(srv); err != nil {
				return errors.New("SW301").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "development mode (overrides config)")

	return cmd
}
