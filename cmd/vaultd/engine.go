package main

import (
	"fmt"
	"log/slog"
	"time"

	"vaultd/internal/blobstore"
	"vaultd/internal/config"
	"vaultd/internal/envelope"
	"vaultd/internal/service"
	"vaultd/internal/store"
)

// engine wires the store, driver, envelope and service from config for
// the lifetime of one command.
type engine struct {
	store   *store.Store
	service *service.BlobService
	policy  *service.AccessPolicy
}

func withEngine(cfg *config.Config, fn func(*engine) error) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer st.Close()

	driver, err := buildDriver(cfg)
	if err != nil {
		return err
	}

	env, err := buildEnvelope(cfg)
	if err != nil {
		return err
	}

	logger := slog.Default()
	svc, err := service.NewBlobService(st, driver, env, service.BlobServiceConfig{
		MaxUploadBytes:      cfg.Uploads.MaxUploadBytes,
		AllowedContentTypes: cfg.Uploads.AllowedContentTypes,
		DefaultLinkTTL:      time.Duration(cfg.Links.DefaultTTLSeconds) * time.Second,
		MinLinkTTL:          time.Duration(cfg.Links.MinTTLSeconds) * time.Second,
		MaxLinkTTL:          time.Duration(cfg.Links.MaxTTLSeconds) * time.Second,
	}, service.NewLogAuditor(logger), logger)
	if err != nil {
		return err
	}

	return fn(&engine{
		store:   st,
		service: svc,
		policy:  service.NewAccessPolicy(nil),
	})
}

func buildDriver(cfg *config.Config) (blobstore.Driver, error) {
	switch cfg.Storage.Driver {
	case "local":
		return blobstore.NewLocal(cfg.Storage.Local.Root)
	case "s3":
		return blobstore.NewS3(blobstore.S3Options{
			Endpoint:        cfg.Storage.S3.Endpoint,
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			ForcePathStyle:  cfg.Storage.S3.ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// buildEnvelope returns a nil envelope when no master key is configured;
// the service then serves the lowest tier only.
func buildEnvelope(cfg *config.Config) (*envelope.Envelope, error) {
	if cfg.Encryption.MasterKey == "" {
		return nil, nil
	}
	return envelope.New(cfg.Encryption.MasterKey, cfg.Encryption.KeyID)
}
