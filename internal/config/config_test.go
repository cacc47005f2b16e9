package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configDirEnvKey, dir)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configDirEnvKey, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "local" {
		t.Fatalf("expected local driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Local.Root == "" {
		t.Fatal("expected a default local root")
	}
	if cfg.DBPath == "" {
		t.Fatal("expected a default db path")
	}
	if cfg.Uploads.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("expected default upload limit, got %d", cfg.Uploads.MaxUploadBytes)
	}
	if cfg.Links.DefaultTTLSeconds != DefaultLinkTTLSeconds {
		t.Fatalf("expected default link ttl, got %d", cfg.Links.DefaultTTLSeconds)
	}
}

func TestLoadFromFile(t *testing.T) {
	writeConfig(t, `
db_path = "/tmp/custom.db"
log_level = "debug"

[storage]
driver = "s3"

[storage.s3]
bucket = "blobs"
region = "eu-central-1"
endpoint = "http://127.0.0.1:9000"
force_path_style = true

[uploads]
max_upload_bytes = 1048576
allowed_content_types = ["application/pdf"]

[links]
default_ttl_seconds = 120
min_ttl_seconds = 30
max_ttl_seconds = 600
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.Storage.Driver != "s3" || cfg.Storage.S3.Bucket != "blobs" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if !cfg.Storage.S3.ForcePathStyle {
		t.Fatal("expected path style to be set")
	}
	if cfg.Uploads.MaxUploadBytes != 1048576 {
		t.Fatalf("unexpected upload limit %d", cfg.Uploads.MaxUploadBytes)
	}
	if cfg.Links.DefaultTTLSeconds != 120 || cfg.Links.MinTTLSeconds != 30 || cfg.Links.MaxTTLSeconds != 600 {
		t.Fatalf("unexpected link config: %+v", cfg.Links)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	writeConfig(t, `db_path = "/tmp/from-file.db"`)
	t.Setenv(dbEnvKey, "/tmp/from-env.db")
	t.Setenv(logLevelEnvKey, "warn")
	t.Setenv(masterKeyEnvKey, "env-key")
	t.Setenv(keyIDEnvKey, "rotated")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/from-env.db" {
		t.Fatalf("expected env db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected env log level, got %q", cfg.LogLevel)
	}
	if cfg.Encryption.MasterKey != "env-key" || cfg.Encryption.KeyID != "rotated" {
		t.Fatalf("expected env key material, got %+v", cfg.Encryption)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	writeConfig(t, `
[storage]
driver = "s3"
`)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for s3 driver without bucket")
	}

	writeConfig(t, `
[storage]
driver = "ftp"
`)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}

	writeConfig(t, `
[links]
min_ttl_seconds = 600
max_ttl_seconds = 60
`)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for inverted ttl bounds")
	}
}
