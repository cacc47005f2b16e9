package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vaultd/internal/config"
	"vaultd/internal/models"
	"vaultd/internal/service"
)

type getCmdOptions struct {
	tenant     string
	role       string
	accepted   bool
	ttlSeconds int
	outPath    string
}

func newGetCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &getCmdOptions{}
	cmd := &cobra.Command{
		Use:   "get <blob-id>",
		Short: "Download a blob or mint a signed link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, cfg, opts, jsonOutput, args)
		},
	}

	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "caller tenant id (required)")
	cmd.Flags().StringVar(&opts.role, "role", string(models.RoleMember), "caller role")
	cmd.Flags().BoolVar(&opts.accepted, "accepted", false, "both tenants have accepted a sharing relationship")
	cmd.Flags().IntVar(&opts.ttlSeconds, "ttl", 0, "signed link lifetime in seconds (0 uses the configured default)")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "write content to this file instead of stdout")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runGet(cmd *cobra.Command, cfg *config.Config, opts *getCmdOptions, jsonOutput *bool, args []string) error {
	if len(args) != 1 {
		return errors.New("exactly one blob id is required")
	}
	id := args[0]

	role, err := models.ParseRole(opts.role)
	if err != nil {
		return err
	}

	return withEngine(cfg, func(eng *engine) error {
		ctx := cmd.Context()

		blob, err := eng.service.StatBlob(ctx, id, "")
		if err != nil {
			return err
		}

		caller := service.Principal{TenantID: opts.tenant, Role: role}
		if err := eng.policy.AssertCanDownload(caller, blob.TenantID, blob.Tier, opts.accepted); err != nil {
			return err
		}

		// Authorization settled above; a cross-tenant read passes an
		// empty tenant so the service-level pin does not re-reject it.
		requestingTenant := opts.tenant
		if blob.TenantID != opts.tenant {
			requestingTenant = ""
		}

		content, err := eng.service.GetBlobStream(ctx, id, requestingTenant, time.Duration(opts.ttlSeconds)*time.Second)
		if err != nil {
			return err
		}

		if content.SignedURL != "" {
			if *jsonOutput {
				return writeJSON(map[string]any{
					"blob_id":    content.Blob.ID,
					"url":        content.SignedURL,
					"expires_at": content.ExpiresAt,
				})
			}
			return writePlain("%s\n", content.SignedURL)
		}

		defer content.Stream.Close()
		return writeContent(content.Stream, opts.outPath)
	})
}

func writeContent(stream io.Reader, outPath string) error {
	dst := io.Writer(os.Stdout)
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		dst = f
	}
	if _, err := io.Copy(dst, stream); err != nil {
		return fmt.Errorf("write content: %w", err)
	}
	return nil
}
