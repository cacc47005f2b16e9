package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vaultd/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "vaultd",
		Short: "Vaultd is a multi-tenant encrypted object store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := initLogging(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newPutCmd(cfg, &jsonOutput),
		newGetCmd(cfg, &jsonOutput),
		newStatCmd(cfg, &jsonOutput),
		newRmCmd(cfg),
	)

	return cmd
}
