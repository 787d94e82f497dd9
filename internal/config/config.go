// Package config loads StudyHub's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STUDYHUB_"

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Clock    ClockConfig    `yaml:"clock"`
	Reminder ReminderConfig `yaml:"reminder"`
	Quote    QuoteConfig    `yaml:"quote"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Playlist PlaylistConfig `yaml:"playlist"`
}

// ServerConfig configures the HTTP dashboard.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig selects where dashboard data lives.
type StorageConfig struct {
	Backend string `yaml:"backend"` // json or sqlite
	Path    string `yaml:"path"`
	Watch   bool   `yaml:"watch"` // reload the JSON file when it changes on disk
}

// ClockConfig sets the zone that decides what "today" is.
type ClockConfig struct {
	Timezone string `yaml:"timezone"`
}

// ReminderConfig configures the reminder job.
type ReminderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Time          string        `yaml:"time"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// QuoteConfig configures the daily quote widget.
type QuoteConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	Fallback string        `yaml:"fallback"`
}

// NotifyConfig configures NATS event publishing.
type NotifyConfig struct {
	Enabled       bool   `yaml:"enabled"`
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PlaylistConfig lists the music player tracks.
type PlaylistConfig struct {
	Tracks []string `yaml:"tracks"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // SSE streams stay open
		},
		Storage: StorageConfig{
			Backend: BackendJSON,
			Path:    "studyhub-data.json",
		},
		Reminder: ReminderConfig{
			Time:          "19:00",
			CheckInterval: time.Minute,
		},
		Quote: QuoteConfig{
			URL:      "https://api.quotable.io/random",
			Timeout:  5 * time.Second,
			Fallback: "Keep on shining!",
		},
		Notify: NotifyConfig{
			NATSURL:       "nats://127.0.0.1:4222",
			SubjectPrefix: "studyhub",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path. An empty path yields the defaults.
// A .env file in the working directory is loaded first without overriding
// variables already set, then STUDYHUB_* variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from STUDYHUB_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalidConfig, EnvPrefix, name, v)
		}
		*dst = b
		return nil
	}

	str("ADDR", &c.Server.Addr)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("STORAGE_PATH", &c.Storage.Path)
	str("TIMEZONE", &c.Clock.Timezone)
	str("REMINDER_TIME", &c.Reminder.Time)
	str("QUOTE_URL", &c.Quote.URL)
	str("NATS_URL", &c.Notify.NATSURL)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	if v, ok := lookup(EnvPrefix + "TRACKS"); ok {
		c.Playlist.Tracks = splitList(v)
	}

	for name, dst := range map[string]*bool{
		"STORAGE_WATCH":    &c.Storage.Watch,
		"REMINDER_ENABLED": &c.Reminder.Enabled,
		"NOTIFY_ENABLED":   &c.Notify.Enabled,
		"METRICS_ENABLED":  &c.Metrics.Enabled,
	} {
		if err := boolean(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration and normalises enumerations.
func (c *Config) Validate() error {
	var problems []string

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q must be json or sqlite", c.Storage.Backend))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		problems = append(problems, "storage.path is required")
	}
	if c.Storage.Watch && c.Storage.Backend != BackendJSON {
		problems = append(problems, "storage.watch only applies to the json backend")
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := time.Parse("15:04", c.Reminder.Time); err != nil {
		problems = append(problems, fmt.Sprintf("reminder.time %q must be HH:MM", c.Reminder.Time))
	}
	if c.Reminder.CheckInterval <= 0 {
		c.Reminder.CheckInterval = time.Minute
	}
	if c.Quote.Timeout <= 0 {
		c.Quote.Timeout = 5 * time.Second
	}
	if c.Notify.Enabled && c.Notify.NATSURL == "" {
		problems = append(problems, "notify.nats_url is required when notify is enabled")
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		problems = append(problems, fmt.Sprintf("metrics.path %q must start with /", c.Metrics.Path))
	}

	c.Logging.Level = string(NormalizeLogLevel(c.Logging.Level))
	c.Logging.Format = string(NormalizeLogFormat(c.Logging.Format))

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the configured zone, or the local zone when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Clock.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Clock.Timezone)
	if err != nil {
		return nil, fmt.Errorf("clock.timezone %q: %w", c.Clock.Timezone, err)
	}
	return loc, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
