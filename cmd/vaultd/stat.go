package main

import (
	"errors"

	"github.com/spf13/cobra"

	"vaultd/internal/config"
)

func newStatCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "stat <blob-id>",
		Short: "Show a blob's metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("exactly one blob id is required")
			}
			return withEngine(cfg, func(eng *engine) error {
				blob, err := eng.service.StatBlob(cmd.Context(), args[0], tenant)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(blob)
				}
				return writeBlobDetail(blob)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "restrict to this tenant's blobs")
	return cmd
}
