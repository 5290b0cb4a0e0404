// Package config loads the caretstudio configuration from YAML with
// CARETSTUDIO_* environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CARETSTUDIO_"

// Config is the service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Backend   BackendConfig   `yaml:"backend"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Wizard    WizardConfig    `yaml:"wizard"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	MaxSessions    int           `yaml:"max_sessions"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

type WizardConfig struct {
	TopN int `yaml:"top_n"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 32 << 20,
			SessionTTL:     2 * time.Hour,
			MaxSessions:    64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Backend: BackendConfig{
			URL:     "http://localhost:8000",
			Timeout: 10 * time.Minute,
		},
		Artifacts: ArtifactsConfig{
			Dir: "artifacts",
		},
		Wizard: WizardConfig{
			TopN: 3,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "config: read %s", path)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("BACKEND_URL", &c.Backend.URL)
	str("ARTIFACTS_DIR", &c.Artifacts.Dir)

	if v, ok := lookup(EnvPrefix + "BACKEND_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"BACKEND_TIMEOUT", "must be a duration like 90s", v)
		}
		c.Backend.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"MAX_UPLOAD_BYTES", "must be an integer", v)
		}
		c.Server.MaxUploadBytes = n
	}
	if v, ok := lookup(EnvPrefix + "SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"SESSION_TTL", "must be a duration like 30m", v)
		}
		c.Server.SessionTTL = d
	}
	if v, ok := lookup(EnvPrefix + "MAX_SESSIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"MAX_SESSIONS", "must be an integer", v)
		}
		c.Server.MaxSessions = n
	}
	if v, ok := lookup(EnvPrefix + "TOP_N"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"TOP_N", "must be an integer", v)
		}
		c.Wizard.TopN = n
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.NewValidationError("server.addr", "must not be empty", c.Server.Addr)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.NewValidationError("server.max_upload_bytes", "must be positive", c.Server.MaxUploadBytes)
	}
	if c.Server.SessionTTL <= 0 {
		return errors.NewValidationError("server.session_ttl", "must be positive", c.Server.SessionTTL.String())
	}
	if c.Server.MaxSessions <= 0 {
		return errors.NewValidationError("server.max_sessions", "must be positive", c.Server.MaxSessions)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidationError("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.NewValidationError("log.format", "must be json or console", c.Log.Format)
	}
	if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		return errors.NewValidationError("backend.url", "must be an http or https URL", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return errors.NewValidationError("backend.timeout", "must be positive", c.Backend.Timeout.String())
	}
	if c.Artifacts.Dir == "" {
		return errors.NewValidationError("artifacts.dir", "must not be empty", c.Artifacts.Dir)
	}
	if c.Wizard.TopN <= 0 {
		return errors.NewValidationError("wizard.top_n", "must be positive", c.Wizard.TopN)
	}
	return nil
}
