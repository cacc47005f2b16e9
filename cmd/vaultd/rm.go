package main

import (
	"errors"

	"github.com/spf13/cobra"

	"vaultd/internal/config"
)

func newRmCmd(cfg *config.Config) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "rm <blob-id>",
		Short: "Delete a blob and its stored bytes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("exactly one blob id is required")
			}
			return withEngine(cfg, func(eng *engine) error {
				return eng.service.DeleteBlob(cmd.Context(), args[0], tenant)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "restrict to this tenant's blobs")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
