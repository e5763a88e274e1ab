package main

import (
	"kcourse/internal/app"
	"kcourse/internal/logger"

	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the trip plan HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := loadConfig(root)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.NewApp(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warnf("close app: %v", err)
				}
			}()
			return a.Run(cmd.Context())
		},
	}
}
