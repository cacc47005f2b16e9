package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vaultd/internal/config"
	"vaultd/internal/models"
	"vaultd/internal/service"
)

type putCmdOptions struct {
	tenant      string
	role        string
	tier        string
	contentType string
	filename    string
}

func newPutCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &putCmdOptions{}
	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Upload a file as a new blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(cmd, cfg, opts, jsonOutput, args)
		},
	}

	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&opts.role, "role", string(models.RoleMember), "caller role")
	cmd.Flags().StringVar(&opts.tier, "tier", "L1", "confidentiality tier (L1, L2, L3)")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "", "payload media type")
	cmd.Flags().StringVar(&opts.filename, "filename", "", "stored filename (defaults to the file's base name)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runPut(cmd *cobra.Command, cfg *config.Config, opts *putCmdOptions, jsonOutput *bool, args []string) error {
	if len(args) != 1 {
		return errors.New("exactly one file is required")
	}

	role, err := models.ParseRole(opts.role)
	if err != nil {
		return err
	}
	tier, err := models.ParseConfidentialityTier(opts.tier)
	if err != nil {
		return err
	}

	payload, err := readPayload(args[0])
	if err != nil {
		return err
	}

	filename := opts.filename
	if filename == "" && args[0] != "-" {
		filename = filepath.Base(args[0])
	}

	return withEngine(cfg, func(eng *engine) error {
		caller := service.Principal{TenantID: opts.tenant, Role: role}
		if err := eng.policy.AssertCanUpload(caller, opts.tenant); err != nil {
			return err
		}

		blob, err := eng.service.CreateBlob(cmd.Context(), service.CreateBlobRequest{
			TenantID:    opts.tenant,
			Filename:    filename,
			ContentType: opts.contentType,
			Tier:        tier,
			Payload:     payload,
		})
		if err != nil {
			return err
		}

		if *jsonOutput {
			return writeJSON(blob)
		}
		return writePlain("%s\n", blob.ID)
	})
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return payload, nil
}
