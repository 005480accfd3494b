package config

import (
	"fmt"
	"os"
)

// StorageConfig defines the S3-compatible object store that file sources
// with an s3:// location are read from.
type StorageConfig struct {
	Endpoint     string `mapstructure:"endpoint"`       // Empty means AWS S3 itself
	Region       string `mapstructure:"region"`         // Region, "auto" for R2
	Bucket       string `mapstructure:"bucket"`         // Default bucket for locations without one
	AccessKey    string `mapstructure:"access_key"`     // Access key (can be set directly or via env var)
	AccessKeyEnv string `mapstructure:"access_key_env"` // Environment variable name for access key
	SecretKey    string `mapstructure:"secret_key"`     // Secret key (can be set directly or via env var)
	SecretKeyEnv string `mapstructure:"secret_key_env"` // Environment variable name for secret key
	UseSSL       bool   `mapstructure:"use_ssl"`
}

// ResolveEnvVars resolves environment variable references in the configuration.
// Direct values take precedence if already set.
func (c *StorageConfig) ResolveEnvVars() {
	if c.AccessKeyEnv != "" && c.AccessKey == "" {
		if val := os.Getenv(c.AccessKeyEnv); val != "" {
			c.AccessKey = val
		}
	}
	if c.SecretKeyEnv != "" && c.SecretKey == "" {
		if val := os.Getenv(c.SecretKeyEnv); val != "" {
			c.SecretKey = val
		}
	}
}

// Enabled reports whether any object storage has been configured.
func (c *StorageConfig) Enabled() bool {
	return c.Endpoint != "" || c.Bucket != "" || c.AccessKey != ""
}

// Validate checks that the storage configuration is usable.
// Returns an error describing the first validation failure, or nil if valid.
func (c *StorageConfig) Validate() error {
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("storage: access_key and secret_key are required (set directly or via %s/%s)",
			c.AccessKeyEnv, c.SecretKeyEnv)
	}
	if c.Region == "" {
		return fmt.Errorf("storage: region is required")
	}
	return nil
}
