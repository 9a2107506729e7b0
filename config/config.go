// Package config loads startup settings from defaults, a YAML file, a .env
// file and SCRIBE_* environment variables, in increasing precedence.
// Command-line flags are applied by the caller on top.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"scribe/encoder"
	"scribe/hotkey"
)

type Config struct {
	APIBaseURL    string        `yaml:"api_base_url"`
	Device        string        `yaml:"device"`
	Format        string        `yaml:"format"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`
	Beep          bool          `yaml:"beep"`
	Hotkey        bool          `yaml:"hotkey"`
	Shortcut      string        `yaml:"shortcut"`
}

func Default() Config {
	return Config{
		Format:   encoder.FormatWAV,
		Beep:     true,
		Hotkey:   true,
		Shortcut: hotkey.Default.String(),
	}
}

// DefaultPath is $XDG_CONFIG_HOME/scribe/config.yaml or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "scribe", "config.yaml")
}

// Load builds the configuration. An explicit path must exist; when path is
// empty the default location is read only if present. envFile names a
// dotenv file whose variables fill in the environment without replacing
// anything already set.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		case errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("config file not found: %w", err)
		default:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	overrideString(&cfg.APIBaseURL, "SCRIBE_API_BASE_URL")
	overrideString(&cfg.Device, "SCRIBE_DEVICE")
	overrideString(&cfg.Format, "SCRIBE_FORMAT")
	overrideBool(&cfg.Beep, "SCRIBE_BEEP")
	overrideBool(&cfg.Hotkey, "SCRIBE_HOTKEY")
	overrideString(&cfg.Shortcut, "SCRIBE_SHORTCUT")
	return overrideDuration(&cfg.UploadTimeout, "SCRIBE_UPLOAD_TIMEOUT")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideDuration(target *time.Duration, envKey string) error {
	value, ok := os.LookupEnv(envKey)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: %w", envKey, err)
	}
	*target = d
	return nil
}

// Validate checks the final configuration and normalizes the base URL. An
// empty shortcut means the default one.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api_base_url is required (set SCRIBE_API_BASE_URL or -url)")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("api_base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base_url must be an http(s) URL, got %q", c.APIBaseURL)
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")

	if !encoder.Valid(c.Format) {
		return fmt.Errorf("unknown format %q (valid: %s, %s)", c.Format, encoder.FormatWAV, encoder.FormatFLAC)
	}
	if c.UploadTimeout < 0 {
		return fmt.Errorf("upload_timeout must not be negative, got %s", c.UploadTimeout)
	}
	if _, err := hotkey.Parse(c.Shortcut); err != nil {
		return fmt.Errorf("shortcut: %w", err)
	}
	return nil
}
