package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/renderers/html"
	"github.com/goliatone/go-formflow/pkg/session"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		page   int
		output string
		action string
		values []string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one form page as HTML",
		Long: `Render one page of the event's registration form as a standalone HTML
document. Values given with --set are applied before navigating, so later
pages can be previewed with their conditional fields resolved.`,
		Example: `  formflow render --schema event.yaml --page 2 --set has_partner=Yes -o page2.html`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			event, err := a.loadEvent(cmd.Context())
			if err != nil {
				return err
			}
			// Previews never reach the backend.
			s := a.newSession(event, session.WithAPI(nil))
			defer s.Close()

			for _, raw := range values {
				key, value, ok := strings.Cut(raw, "=")
				if !ok || strings.TrimSpace(key) == "" {
					return fmt.Errorf("render: --set expects key=value, got %q", raw)
				}
				s.UpdateField(strings.TrimSpace(key), value)
			}
			if page > 1 {
				if err := s.GoTo(page); errors.Is(err, session.ErrValidation) {
					a.logger.Warn("page blocked by validation, rendering current page",
						"requested", page, "current", s.CurrentPage())
				} else if err != nil {
					return err
				}
			}

			renderer, err := html.New(
				html.WithTheme(a.themeConfig()),
				html.WithTemplatesDir(a.cfg.Server.TemplatesDir),
				html.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := renderer.RenderPage(&buf, html.PageFromSession(s, action)); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			return writeOutput(cmd, output, buf.Bytes())
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number to render")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (stdout when empty or -)")
	cmd.Flags().StringVar(&action, "action", "/", "form action URL")
	cmd.Flags().StringArrayVar(&values, "set", nil, "field value as key=value (repeatable)")
	return cmd
}
