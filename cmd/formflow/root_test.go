package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/pkg/renderers/html"
)

const schemaFixture = "../../pkg/schema/testdata/event.yaml"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"render", "fill", "serve"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, sub.Name())
	}
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestRenderFirstPageToStdout(t *testing.T) {
	out, _, err := execute(t, "render", "--schema", schemaFixture)
	require.NoError(t, err)
	require.Contains(t, out, "Page 1 of 2")
	require.Contains(t, out, `name="name"`)
	require.Contains(t, out, `href="`+server.AssetPrefix+html.StylesheetAsset+`"`)
	require.NotContains(t, out, `name="partner_name"`)
}

func TestRenderLaterPageWithValues(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "page2.html")
	_, stderr, err := execute(t, "render",
		"--schema", schemaFixture,
		"--page", "2",
		"--set", "name=Nancy Wheeler",
		"--set", "phone=+919876543210",
		"--set", "has_partner=Yes",
		"-o", dest,
	)
	require.NoError(t, err)
	require.Contains(t, stderr, dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	page := string(data)
	require.Contains(t, page, "Page 2 of 2")
	require.Contains(t, page, `name="partner_name"`)
	require.Contains(t, page, `value="submit"`)
}

func TestRenderBlockedPageShowsErrors(t *testing.T) {
	out, _, err := execute(t, "render", "--schema", schemaFixture, "--page", "2")
	require.NoError(t, err)
	require.Contains(t, out, "Page 1 of 2")
	require.Contains(t, out, "ff-field--invalid")
}

func TestRenderRejectsMalformedSet(t *testing.T) {
	_, _, err := execute(t, "render", "--schema", schemaFixture, "--set", "novalue")
	require.ErrorContains(t, err, "key=value")
}

func TestConfigFileAndThemeApplied(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "formflow.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
event:
  schema_file: `+schemaFixture+`
theme:
  name: hawkins
  stylesheet: https://cdn.example.com/hawkins.css
  css_vars:
    "--ff-accent": "#c00"
`), 0o644))

	out, _, err := execute(t, "render", "-c", cfgPath)
	require.NoError(t, err)
	require.Contains(t, out, "ff-theme--hawkins")
	require.Contains(t, out, `href="https://cdn.example.com/hawkins.css"`)
	require.Contains(t, out, "--ff-accent: #c00;")
}

func TestInvalidConfigFails(t *testing.T) {
	_, _, err := execute(t, "render", "--schema", schemaFixture, "--log-level", "chatty")
	require.ErrorContains(t, err, "log.level")
}

func TestThemeConfigDefaultsToBundledStylesheet(t *testing.T) {
	a := &app{cfg: config.Defaults()}
	cfg := a.themeConfig()
	require.Equal(t, server.AssetPrefix+html.StylesheetAsset, cfg.AssetURL(html.StylesheetAsset))
}
