package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/internal/tracing"
	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/logging"
	"github.com/goliatone/go-formflow/pkg/session"
)

var version = "dev"

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg     config.Config
	logger  logging.Logger
	tracing *tracing.Provider
	client  *client.Client
	engine  *formflow.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "formflow",
		Short:         "Render, fill and serve event registration forms",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.tracing != nil {
				return a.tracing.Shutdown(cmd.Context())
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("base-url", "", "registration API base URL")
	flags.String("event", "", "event slug to fetch")
	flags.String("schema", "", "local event document (JSON or YAML) used instead of fetching")

	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("api.base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("event.slug", flags.Lookup("event"))
	_ = a.v.BindPFlag("event.schema_file", flags.Lookup("schema"))

	root.AddCommand(newRenderCmd(a), newFillCmd(a), newServeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel())

	a.tracing, err = tracing.NewProvider(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Output:      cmd.ErrOrStderr(),
		SampleRate:  cfg.Tracing.SampleRate,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return err
	}

	a.client = formflow.NewClient(
		client.WithBaseURL(cfg.API.BaseURL),
		client.WithTimeout(cfg.API.Timeout),
		client.WithCacheTTL(cfg.API.CacheTTL),
		client.WithLogger(a.logger),
		client.WithTracer(a.tracing.Tracer()),
	)
	a.engine = formflow.NewEngine(
		engine.WithAPI(a.client),
		engine.WithEventSource(a.client),
		engine.WithLogger(a.logger),
		engine.WithLogDebounce(cfg.Form.LogDebounce),
		engine.WithNavigationGuard(cfg.Form.NavigationGuard),
	)
	return nil
}

func (a *app) loadEvent(ctx context.Context) (formflow.Event, error) {
	if file := strings.TrimSpace(a.cfg.Event.SchemaFile); file != "" {
		return formflow.LoadEvent(ctx, file)
	}
	return a.client.FetchEvent(ctx, a.cfg.Event.Slug)
}

// newSession starts a session for event, attaching the ticket mapping when
// the event carries a ticket selector.
func (a *app) newSession(event formflow.Event, extra ...session.Option) *formflow.Session {
	if mapping, ok := formflow.TicketsFor(event); ok {
		extra = append([]session.Option{session.WithTickets(mapping)}, extra...)
	}
	return a.engine.NewSession(event, extra...)
}

// themeConfig maps the theme section onto go-theme. The bundled stylesheet
// is referenced unless the config names another.
func (a *app) themeConfig() *theme.RendererConfig {
	t := a.cfg.Theme
	return &theme.RendererConfig{
		Theme:    t.Name,
		Variant:  t.Variant,
		Partials: t.Partials,
		CSSVars:  t.CSSVars,
		AssetURL: func(key string) string {
			if t.Stylesheet != "" {
				return t.Stylesheet
			}
			return server.AssetPrefix + key
		},
	}
}

func isStdout(path string) bool {
	return path == "" || path == "-"
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if isStdout(path) {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Form written to %s\n", path)
	return nil
}
