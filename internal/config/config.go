// Package config provides configuration types, defaults and loading for the
// formflow command.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/goliatone/go-formflow/pkg/logging"
)

// EnvPrefix is prepended to environment overrides, e.g. FORMFLOW_API_BASE_URL.
const EnvPrefix = "FORMFLOW"

// Config holds all configuration options.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Event   EventConfig   `mapstructure:"event"`
	Form    FormConfig    `mapstructure:"form"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Theme   ThemeConfig   `mapstructure:"theme"`
}

// APIConfig points at the registration backend.
type APIConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// EventConfig selects the event. SchemaFile, when set, replaces the remote
// fetch with a local JSON or YAML document.
type EventConfig struct {
	Slug       string `mapstructure:"slug"`
	SchemaFile string `mapstructure:"schema_file"`
}

// FormConfig tunes session timing.
type FormConfig struct {
	LogDebounce     time.Duration `mapstructure:"log_debounce"`
	NavigationGuard time.Duration `mapstructure:"navigation_guard"`
}

// ServerConfig configures the HTTP form server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	TemplatesDir string        `mapstructure:"templates_dir"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// TracingConfig toggles OpenTelemetry spans.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// ThemeConfig feeds the HTML renderer's go-theme configuration.
type ThemeConfig struct {
	Name       string            `mapstructure:"name"`
	Variant    string            `mapstructure:"variant"`
	Stylesheet string            `mapstructure:"stylesheet"`
	CSSVars    map[string]string `mapstructure:"css_vars"`
	Partials   map[string]string `mapstructure:"partials"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:  "https://api.makemypass.com",
			Timeout:  10 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Event: EventConfig{Slug: "vecnas-curse"},
		Form: FormConfig{
			LogDebounce:     1500 * time.Millisecond,
			NavigationGuard: 100 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			SessionTTL: 30 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "stdout",
			ServiceName: "formflow",
			SampleRate:  1.0,
		},
	}
}

// NewViper returns a viper instance seeded with Defaults and wired to
// FORMFLOW_* environment variables. Callers bind flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.cache_ttl", d.API.CacheTTL)
	v.SetDefault("event.slug", d.Event.Slug)
	v.SetDefault("event.schema_file", d.Event.SchemaFile)
	v.SetDefault("form.log_debounce", d.Form.LogDebounce)
	v.SetDefault("form.navigation_guard", d.Form.NavigationGuard)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)
	v.SetDefault("server.templates_dir", d.Server.TemplatesDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("theme.name", "")
	v.SetDefault("theme.variant", "")
	v.SetDefault("theme.stylesheet", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (when non-empty) into v and decodes the result. A missing
// explicit file is an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("config: api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("config: api.timeout must be positive"))
	}
	if c.API.CacheTTL < 0 {
		errs = append(errs, errors.New("config: api.cache_ttl must not be negative"))
	}
	if strings.TrimSpace(c.Event.Slug) == "" && strings.TrimSpace(c.Event.SchemaFile) == "" {
		errs = append(errs, errors.New("config: event.slug or event.schema_file is required"))
	}
	if c.Form.LogDebounce < 0 || c.Form.NavigationGuard < 0 {
		errs = append(errs, errors.New("config: form timings must not be negative"))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, errors.New("config: server.session_ttl must be positive"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log.level %q", c.Log.Level))
	}
	switch c.Tracing.Exporter {
	case "stdout", "none", "":
	default:
		errs = append(errs, fmt.Errorf("config: unknown tracing.exporter %q", c.Tracing.Exporter))
	}
	return errors.Join(errs...)
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}
