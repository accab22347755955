// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (SUHOC_* prefix, runtime override)
//  2. Config file (~/.suhoc/config.yaml)
//  3. Default values
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the generation API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidDatabaseURL indicates the database URL is malformed.
	ErrInvalidDatabaseURL = errors.New("invalid database URL")

	// ErrInvalidGradeRange indicates the supported grade range is inverted
	// or out of the school-grade domain.
	ErrInvalidGradeRange = errors.New("invalid grade range")

	// ErrInvalidRefetchDelay indicates the sync refetch delay is out of range.
	ErrInvalidRefetchDelay = errors.New("invalid refetch delay")
)

const (
	// DefaultModelName is the default generation model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultGradeMin and DefaultGradeMax bound the school grades the
	// knowledge base covers. Coordinate extraction rejects grades outside
	// this range.
	DefaultGradeMin = 10
	DefaultGradeMax = 12

	// DefaultRefetchDelay is how long the synchronizer waits before the
	// single delayed refetch after detecting a lagging server read.
	DefaultRefetchDelay = 3 * time.Second

	// MaxRefetchDelay bounds the configurable refetch delay.
	MaxRefetchDelay = time.Minute

	configDirName  = ".suhoc"
	configFileName = "config"
	envPrefix      = "SUHOC"
)

// Config stores application configuration.
//
// SECURITY: the API key is sensitive; it is read from the environment and
// never logged.
type Config struct {
	// Generation
	ModelName    string `mapstructure:"model_name"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`

	// Storage
	DatabaseURL string `mapstructure:"database_url"`

	// Knowledge base domain
	GradeMin int `mapstructure:"grade_min"`
	GradeMax int `mapstructure:"grade_max"`

	// Client state directory (lesson contexts, pagination cursors).
	// Empty means ~/.suhoc.
	StateDir string `mapstructure:"state_dir"`

	// Synchronizer
	RefetchDelay time.Duration `mapstructure:"refetch_delay"`
}

// Load reads configuration from defaults, the optional config file and
// environment variables, in ascending priority.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("grade_min", DefaultGradeMin)
	v.SetDefault("grade_max", DefaultGradeMax)
	v.SetDefault("refetch_delay", DefaultRefetchDelay)

	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults plus env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.StateDir == "" {
		dir, err := configDir()
		if err != nil {
			return nil, fmt.Errorf("resolving state directory: %w", err)
		}
		cfg.StateDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants. The API key and database URL are
// only required at the point the corresponding backend is constructed, so
// empty values pass here.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}

	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDatabaseURL, err)
		}
		switch u.Scheme {
		case "postgres", "postgresql":
		default:
			return fmt.Errorf("%w: scheme %q", ErrInvalidDatabaseURL, u.Scheme)
		}
	}

	if c.GradeMin < 1 || c.GradeMax > 12 || c.GradeMin > c.GradeMax {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidGradeRange, c.GradeMin, c.GradeMax)
	}

	if c.RefetchDelay <= 0 || c.RefetchDelay > MaxRefetchDelay {
		return fmt.Errorf("%w: %v", ErrInvalidRefetchDelay, c.RefetchDelay)
	}

	return nil
}

// RequireAPIKey returns the API key or an error telling the user how to set it.
func (c *Config) RequireAPIKey() (string, error) {
	if c.GeminiAPIKey == "" {
		return "", fmt.Errorf("%w: set SUHOC_GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return c.GeminiAPIKey, nil
}

// configDir returns ~/.suhoc, creating it if needed.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, configDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}
