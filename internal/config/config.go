package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDBFileName = ".vaultd.db"
	DefaultLocalRoot  = ".vaultd-objects"
	DefaultLogLevel   = "info"

	DefaultMaxUploadBytes int64 = 100 * 1024 * 1024

	DefaultLinkTTLSeconds = 900
	DefaultMinTTLSeconds  = 60
	DefaultMaxTTLSeconds  = 3600

	configFileName  = ".vaultd.toml"
	configDirEnvKey = "VAULTD_CONFIG_DIR"

	dbEnvKey        = "VAULTD_DB"
	driverEnvKey    = "VAULTD_STORAGE_DRIVER"
	masterKeyEnvKey = "VAULTD_MASTER_KEY"
	keyIDEnvKey     = "VAULTD_KEY_ID"
	logLevelEnvKey  = "VAULTD_LOG_LEVEL"
)

// LocalConfig configures the filesystem storage driver.
type LocalConfig struct {
	Root string `toml:"root"`
}

// S3Config configures the S3 storage driver.
type S3Config struct {
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	Bucket          string `toml:"bucket"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	ForcePathStyle  bool   `toml:"force_path_style"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Driver string      `toml:"driver"`
	Local  LocalConfig `toml:"local"`
	S3     S3Config    `toml:"s3"`
}

// EncryptionConfig carries the master key material. MasterKey is the
// base64 encoding of 32 random bytes.
type EncryptionConfig struct {
	MasterKey string `toml:"master_key"`
	KeyID     string `toml:"key_id"`
}

// UploadConfig bounds what the blob service accepts.
type UploadConfig struct {
	MaxUploadBytes      int64    `toml:"max_upload_bytes"`
	AllowedContentTypes []string `toml:"allowed_content_types"`
}

// LinkConfig bounds signed download link lifetimes, in seconds.
type LinkConfig struct {
	DefaultTTLSeconds int `toml:"default_ttl_seconds"`
	MinTTLSeconds     int `toml:"min_ttl_seconds"`
	MaxTTLSeconds     int `toml:"max_ttl_seconds"`
}

// Config defines runtime configuration for vaultd.
type Config struct {
	DBPath     string           `toml:"db_path"`
	LogLevel   string           `toml:"log_level"`
	Storage    StorageConfig    `toml:"storage"`
	Encryption EncryptionConfig `toml:"encryption"`
	Uploads    UploadConfig     `toml:"uploads"`
	Links      LinkConfig       `toml:"links"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			Driver: "local",
		},
		Uploads: UploadConfig{
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Links: LinkConfig{
			DefaultTTLSeconds: DefaultLinkTTLSeconds,
			MinTTLSeconds:     DefaultMinTTLSeconds,
			MaxTTLSeconds:     DefaultMaxTTLSeconds,
		},
	}
}

func configPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

func loadFileIfExists(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Load reads the config file and applies env overrides and defaults.
func Load() (*Config, error) {
	cfg := Default()

	path, err := configPath()
	if err == nil {
		if err := loadFileIfExists(path, &cfg); err != nil {
			return nil, err
		}
	}

	if dbPath := os.Getenv(dbEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if driver := os.Getenv(driverEnvKey); driver != "" {
		cfg.Storage.Driver = driver
	}
	if key := os.Getenv(masterKeyEnvKey); key != "" {
		cfg.Encryption.MasterKey = key
	}
	if keyID := os.Getenv(keyIDEnvKey); keyID != "" {
		cfg.Encryption.KeyID = keyID
	}
	if level := os.Getenv(logLevelEnvKey); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) normalize() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(cwd, DefaultDBFileName)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "", "local":
		c.Storage.Driver = "local"
		if c.Storage.Local.Root == "" {
			c.Storage.Local.Root = filepath.Join(cwd, DefaultLocalRoot)
		}
	case "s3":
		if strings.TrimSpace(c.Storage.S3.Bucket) == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
		if strings.TrimSpace(c.Storage.S3.Region) == "" {
			return fmt.Errorf("storage.s3.region is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (expected local or s3)", c.Storage.Driver)
	}

	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultMaxUploadBytes
	}

	if c.Links.DefaultTTLSeconds <= 0 {
		c.Links.DefaultTTLSeconds = DefaultLinkTTLSeconds
	}
	if c.Links.MinTTLSeconds <= 0 {
		c.Links.MinTTLSeconds = DefaultMinTTLSeconds
	}
	if c.Links.MaxTTLSeconds <= 0 {
		c.Links.MaxTTLSeconds = DefaultMaxTTLSeconds
	}
	if c.Links.MinTTLSeconds > c.Links.MaxTTLSeconds {
		return fmt.Errorf("links.min_ttl_seconds (%d) exceeds links.max_ttl_seconds (%d)",
			c.Links.MinTTLSeconds, c.Links.MaxTTLSeconds)
	}

	return nil
}
