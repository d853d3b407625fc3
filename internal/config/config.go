package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen     = "127.0.0.1:8080"
	defaultTimezone   = "Local"
	defaultFetchLimit = 500
	defaultIDLength   = 10
	defaultRefresh    = "*/15 * * * *"
	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone calendar days are computed in. "Local" uses
	// the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataServiceURL is the base URL of the event data service. Leave empty
	// to read events from ICSURL instead.
	DataServiceURL string `yaml:"data_service_url" json:"data_service_url"`

	// ICSURL is an iCalendar subscription used when no data service is set.
	ICSURL string `yaml:"ics_url" json:"ics_url"`

	// FetchLimit is the page size of a month window fetch.
	FetchLimit int `yaml:"fetch_limit" json:"fetch_limit"`

	// IDLength is the number of digits in generated event ids.
	IDLength int `yaml:"id_length" json:"id_length"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for reloading the visible month. Empty disables it.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is debug, info or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format" json:"log_format"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides are the MONTHCAL_* variables. Unset variables leave the
// file value alone.
type envOverrides struct {
	Listen         string `env:"MONTHCAL_LISTEN"`
	Timezone       string `env:"MONTHCAL_TIMEZONE"`
	DataServiceURL string `env:"MONTHCAL_DATA_SERVICE_URL"`
	ICSURL         string `env:"MONTHCAL_ICS_URL"`
	FetchLimit     int    `env:"MONTHCAL_FETCH_LIMIT"`
	IDLength       int    `env:"MONTHCAL_ID_LENGTH"`
	RefreshCron    string `env:"MONTHCAL_REFRESH"`
	LogLevel       string `env:"MONTHCAL_LOG_LEVEL"`
	LogFormat      string `env:"MONTHCAL_LOG_FORMAT"`
	AuthUsername   string `env:"MONTHCAL_BASIC_AUTH_USERNAME"`
	AuthPassword   string `env:"MONTHCAL_BASIC_AUTH_PASSWORD"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		FetchLimit:  defaultFetchLimit,
		IDLength:    defaultIDLength,
		RefreshCron: defaultRefresh,
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
		BasicAuth:   nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = defaultFetchLimit
	}
	if c.IDLength <= 0 {
		c.IDLength = defaultIDLength
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	switch c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat)); c.LogFormat {
	case "text", "json":
		// ok
	default:
		c.LogFormat = defaultLogFormat
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.DataServiceURL != "" && c.ICSURL != "" {
		return errors.New("data_service_url and ics_url are mutually exclusive")
	}
	for name, raw := range map[string]string{"data_service_url": c.DataServiceURL, "ics_url": c.ICSURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s: %q is not an http(s) URL", name, raw)
		}
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		return errors.New("basic_auth needs both username and password")
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides c with the MONTHCAL_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	setString(&c.Listen, o.Listen)
	setString(&c.Timezone, o.Timezone)
	setString(&c.DataServiceURL, o.DataServiceURL)
	setString(&c.ICSURL, o.ICSURL)
	setString(&c.RefreshCron, o.RefreshCron)
	setString(&c.LogLevel, o.LogLevel)
	setString(&c.LogFormat, o.LogFormat)
	if o.FetchLimit > 0 {
		c.FetchLimit = o.FetchLimit
	}
	if o.IDLength > 0 {
		c.IDLength = o.IDLength
	}
	if o.AuthUsername != "" || o.AuthPassword != "" {
		if c.BasicAuth == nil {
			c.BasicAuth = &BasicAuthConfig{}
		}
		setString(&c.BasicAuth.Username, o.AuthUsername)
		setString(&c.BasicAuth.Password, o.AuthPassword)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".monthcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
