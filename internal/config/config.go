// Package config loads the interaction layer's configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration.
type Config struct {
	// Listen is the address the live server binds to.
	Listen string `env:"ORDERFOOD_LISTEN" envDefault:":8090"`

	// BackendURL is the base URL of the OrderFood REST backend.
	BackendURL string `env:"ORDERFOOD_BACKEND_URL" envDefault:"http://localhost:8000"`

	// PollInterval is the notification feed polling period.
	PollInterval time.Duration `env:"ORDERFOOD_POLL_INTERVAL" envDefault:"30s"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"ORDERFOOD_LOG_LEVEL" envDefault:"info"`

	// S3Bucket enables the S3 image store when set.
	S3Bucket string `env:"ORDERFOOD_S3_BUCKET"`

	// S3Prefix is the key prefix for stored images.
	S3Prefix string `env:"ORDERFOOD_S3_PREFIX" envDefault:"images/"`

	// S3BaseURL is the public URL prefix for stored images (CDN).
	S3BaseURL string `env:"ORDERFOOD_S3_BASE_URL"`

	// UploadDir is the disk image store directory used when no bucket is
	// configured.
	UploadDir string `env:"ORDERFOOD_UPLOAD_DIR" envDefault:"./uploads"`

	// MaxUploadSize caps image uploads, in bytes.
	MaxUploadSize int64 `env:"ORDERFOOD_MAX_UPLOAD_SIZE" envDefault:"10485760"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}
