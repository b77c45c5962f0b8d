package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the configuration file name without extension
const FileName = "gallery"

// EnvPrefix prefixes environment overrides, e.g. GALLERY_SERVER_PORT
const EnvPrefix = "GALLERY"

// Config represents the gallery configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Build  BuildConfig  `mapstructure:"build"`
	Watch  WatchConfig  `mapstructure:"watch"`
}

// ServerConfig represents development server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// BuildConfig represents build configuration
type BuildConfig struct {
	OutDir string       `mapstructure:"out_dir"`
	Bucket BucketConfig `mapstructure:"bucket"`
}

// BucketConfig selects S3-compatible output instead of a directory
type BucketConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Name      string `mapstructure:"name"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether bucket output was configured
func (b BucketConfig) Enabled() bool {
	return b.Name != ""
}

// WatchConfig represents file watching configuration
type WatchConfig struct {
	Ignore []string `mapstructure:"ignore"`
}

// Load loads gallery.yml or gallery.yaml from root. Missing files fall back
// to defaults; GALLERY_* environment variables override both.
func Load(root string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 5173)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("build.out_dir", "dist")
	v.SetDefault("build.bucket.endpoint", "")
	v.SetDefault("build.bucket.region", "")
	v.SetDefault("build.bucket.name", "")
	v.SetDefault("build.bucket.prefix", "")
	v.SetDefault("build.bucket.access_key", "")
	v.SetDefault("build.bucket.secret_key", "")
	v.SetDefault("build.bucket.use_ssl", true)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(root)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindProjectRoot walks up from dir looking for a gallery config file or a
// demos directory
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range []string{FileName + ".yaml", FileName + ".yml"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		if info, err := os.Stat(filepath.Join(dir, "demos")); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a gallery project (no gallery.yaml or demos/ found)")
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got: %d", cfg.Server.Port)
	}
	if cfg.Build.OutDir == "" && !cfg.Build.Bucket.Enabled() {
		return fmt.Errorf("build.out_dir must not be empty")
	}
	if cfg.Build.Bucket.Enabled() && cfg.Build.Bucket.Endpoint == "" {
		return fmt.Errorf("build.bucket.endpoint is required when build.bucket.name is set")
	}
	return nil
}
