package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/renderers/tui"
)

func newFillCmd(a *app) *cobra.Command {
	var maxAttempts int
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill and submit the registration form in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			event, err := a.loadEvent(cmd.Context())
			if err != nil {
				return err
			}
			s := a.newSession(event)
			defer s.Close()

			filler := tui.New(
				tui.WithLogger(a.logger),
				tui.WithMaxAttempts(maxAttempts),
				tui.WithGuardWait(a.cfg.Form.NavigationGuard),
				tui.WithTheme(tui.Theme{ErrorPrefix: "✗ "}),
			)
			resp, err := filler.Fill(cmd.Context(), s)
			switch {
			case errors.Is(err, tui.ErrAborted):
				fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
				return nil
			case errors.Is(err, tui.ErrFormClosed):
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered for %s\n", event.Name)
			if resp.EventRegisterID != "" {
				fmt.Fprintf(out, "Registration ID: %s\n", resp.EventRegisterID)
			}
			if resp.ApprovalStatus != "" {
				fmt.Fprintf(out, "Status: %s\n", resp.ApprovalStatus)
			}
			if resp.FollowupMsg != "" {
				fmt.Fprintln(out, resp.FollowupMsg)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", tui.DefaultMaxAttempts, "failed attempts tolerated before giving up")
	return cmd
}
