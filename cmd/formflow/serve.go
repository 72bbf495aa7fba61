package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/pkg/renderers/html"
	"github.com/goliatone/go-formflow/pkg/session"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registration form over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			renderer, err := html.New(
				html.WithTheme(a.themeConfig()),
				html.WithTemplatesDir(a.cfg.Server.TemplatesDir),
				html.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			srv := server.New(renderer, a.sessionFactory(ctx),
				server.WithSessionTTL(a.cfg.Server.SessionTTL),
				server.WithLogger(a.logger),
			)
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// sessionFactory loads the event per visitor; remote schemas come from the
// client's cache. Background log saves are tied to base, not the request.
func (a *app) sessionFactory(base context.Context) server.SessionFactory {
	return func(ctx context.Context) (*session.Session, error) {
		event, err := a.loadEvent(ctx)
		if err != nil {
			return nil, err
		}
		return a.newSession(event, session.WithContext(base)), nil
	}
}
