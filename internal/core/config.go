package core

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/monadgram/internal/gallery"
	"github.com/jo-hoe/monadgram/internal/remote"
)

const (
	EnvAPIKey        = "MONADGRAM_API_KEY"
	EnvAdminPassword = "MONADGRAM_ADMIN_PASSWORD"
	EnvAdminKey      = "MONADGRAM_ADMIN_KEY"

	defaultPort                = 8080
	defaultConfirmationTimeout = 3200 * time.Millisecond
	defaultThumbnailWidth      = 320
	defaultMaxDimension        = 1920
)

type LocalStore struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Admin struct {
	Password string `yaml:"password"`
	// Key is sent as x-admin-key to the moderation endpoints.
	Key string `yaml:"key"`
}

type Upload struct {
	// Compression defaults to true when omitted.
	Compression         *bool         `yaml:"compression"`
	MaxBytes            int64         `yaml:"maxBytes"`
	MaxDimension        int           `yaml:"maxDimension"`
	ConfirmationTimeout time.Duration `yaml:"confirmationTimeout"`
}

func (u Upload) CompressionEnabled() bool {
	return u.Compression == nil || *u.Compression
}

type Gallery struct {
	InitialBatch int `yaml:"initialBatch"`
	BatchSize    int `yaml:"batchSize"`
}

type ServiceConfig struct {
	Port           int           `yaml:"port"`
	LocalStore     LocalStore    `yaml:"localStore"`
	Remote         remote.Config `yaml:"remote"`
	Admin          Admin         `yaml:"admin"`
	Upload         Upload        `yaml:"upload"`
	Gallery        Gallery       `yaml:"gallery"`
	ThumbnailWidth int           `yaml:"thumbnailWidth"`
}

// LoadConfig loads configuration from the specified YAML file. Secrets may be
// supplied through the environment or a .env file next to the working directory.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, reading secrets from environment only")
	}
	config.applyEnv()
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func (c *ServiceConfig) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Remote.APIKey = v
	}
	if v := os.Getenv(EnvAdminPassword); v != "" {
		c.Admin.Password = v
	}
	if v := os.Getenv(EnvAdminKey); v != "" {
		c.Admin.Key = v
	}
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.LocalStore.Type == "" {
		c.LocalStore.Type = "sqlite"
	}
	if c.LocalStore.ConnectionString == "" && c.LocalStore.Type == "sqlite" {
		c.LocalStore.ConnectionString = "monadgram.db"
	}
	if c.Upload.MaxDimension == 0 {
		c.Upload.MaxDimension = defaultMaxDimension
	}
	if c.Upload.ConfirmationTimeout == 0 {
		c.Upload.ConfirmationTimeout = defaultConfirmationTimeout
	}
	if c.Gallery.InitialBatch == 0 {
		c.Gallery.InitialBatch = gallery.InitialBatch
	}
	if c.Gallery.BatchSize == 0 {
		c.Gallery.BatchSize = gallery.BatchSize
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = defaultThumbnailWidth
	}
}

func (c *ServiceConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Upload.MaxBytes < 0 || c.Upload.MaxDimension < 0 {
		return fmt.Errorf("upload limits must not be negative")
	}
	if c.Gallery.InitialBatch < 0 || c.Gallery.BatchSize < 0 {
		return fmt.Errorf("gallery batch sizes must not be negative")
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if c.Admin.Password == "" {
		slog.Warn("no admin password configured, admin login is disabled", "env", EnvAdminPassword)
	}
	return nil
}
