package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/logging"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "https://api.makemypass.com", cfg.API.BaseURL)
	require.Equal(t, 10*time.Second, cfg.API.Timeout)
	require.Equal(t, 1500*time.Millisecond, cfg.Form.LogDebounce)
	require.Equal(t, 100*time.Millisecond, cfg.Form.NavigationGuard)
	require.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	require.Equal(t, Defaults().API, cfg.API)
	require.Equal(t, "vecnas-curse", cfg.Event.Slug)
	require.Equal(t, logging.LevelInfo, cfg.LogLevel())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formflow.yaml")
	content := `
api:
  base_url: http://localhost:9000
  timeout: 3s
event:
  slug: hellfire-club
form:
  log_debounce: 250ms
server:
  addr: 127.0.0.1:9090
log:
  level: debug
theme:
  name: hawkins
  css_vars:
    --ff-accent: "#c00"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000", cfg.API.BaseURL)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, 5*time.Minute, cfg.API.CacheTTL, "unset keys keep defaults")
	require.Equal(t, "hellfire-club", cfg.Event.Slug)
	require.Equal(t, 250*time.Millisecond, cfg.Form.LogDebounce)
	require.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	require.Equal(t, logging.LevelDebug, cfg.LogLevel())
	require.Equal(t, "hawkins", cfg.Theme.Name)
	require.Equal(t, "#c00", cfg.Theme.CSSVars["--ff-accent"])
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FORMFLOW_EVENT_SLUG", "snow-ball")
	t.Setenv("FORMFLOW_API_TIMEOUT", "2s")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	require.Equal(t, "snow-ball", cfg.Event.Slug)
	require.Equal(t, 2*time.Second, cfg.API.Timeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "config: read")
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.API.BaseURL = "not a url"
	cfg.API.Timeout = 0
	cfg.Event.Slug = ""
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"api.base_url", "api.timeout", "event.slug", "log.level"} {
		require.Contains(t, err.Error(), want)
	}
}

func TestValidateAcceptsSchemaFileWithoutSlug(t *testing.T) {
	cfg := Defaults()
	cfg.Event.Slug = ""
	cfg.Event.SchemaFile = "event.yaml"
	require.NoError(t, cfg.Validate())
}
