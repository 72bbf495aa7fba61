// Package tui fills a registration form interactively in the terminal. It
// walks a session page by page, prompting for each visible field through a
// per-type prompter registry, and drives the session's submit pipeline.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/logging"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/pagination"
	"github.com/goliatone/go-formflow/pkg/session"
)

// Filler prompts for session values and submits them.
type Filler struct {
	driver      PromptDriver
	registry    *Registry
	theme       Theme
	logger      logging.Logger
	maxAttempts int
	guardWait   time.Duration
}

// New builds a Filler. Without WithPromptDriver it talks to the terminal via
// survey; without WithRegistry the built-in prompters are used.
func New(opts ...Option) *Filler {
	f := &Filler{
		logger:      logging.Nop(),
		maxAttempts: DefaultMaxAttempts,
		guardWait:   pagination.DefaultGuard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver()
	}
	if f.registry == nil {
		f.registry = NewRegistry()
		RegisterDefaults(f.registry)
	}
	return f
}

// Registry returns the prompter registry so callers can add overrides.
func (f *Filler) Registry() *Registry { return f.registry }

// Fill prompts through every page of s and submits. Validation failures and
// field-keyed server errors re-prompt the offending fields; a generic
// submission failure asks whether to retry.
func (f *Filler) Fill(ctx context.Context, s *session.Session) (*client.SubmitResponse, error) {
	event := s.Event()
	if event.CloseForm {
		_ = f.errorf(ctx, "Registration for %s is closed.", eventName(event))
		return nil, ErrFormClosed
	}
	if err := f.infof(ctx, "%s", eventName(event)); err != nil {
		return nil, err
	}

	asked := make(map[string]bool)
	failures, shown := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if failures >= f.maxAttempts {
			return nil, ErrTooManyAttempts
		}
		if page := s.CurrentPage(); page != shown {
			if err := f.infof(ctx, "Page %d of %d", page, s.TotalPages()); err != nil {
				return nil, err
			}
			shown = page
		}
		if err := f.fillPage(ctx, s, asked); err != nil {
			return nil, err
		}

		if !s.IsLastPage() {
			err := s.Next()
			if errors.Is(err, session.ErrValidation) {
				failures++
				f.reportErrors(ctx, s, asked)
				continue
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		resp, err := s.Submit(ctx)
		switch {
		case err == nil:
			return resp, nil
		case errors.Is(err, session.ErrNavigationGuard):
			if err := sleep(ctx, f.guardWait); err != nil {
				return nil, err
			}
			continue
		case errors.Is(err, session.ErrValidation):
			failures++
			f.reportErrors(ctx, s, asked)
			continue
		case errors.Is(err, session.ErrNoTicket), errors.Is(err, session.ErrNoAPI):
			_ = f.errorf(ctx, "%s", s.Notice())
			return nil, err
		}

		failures++
		f.logger.Warn("tui: submit failed", "event_id", event.ID, "error", err)
		if len(s.Errors()) > 0 {
			if notice := s.Notice(); notice != "" {
				_ = f.errorf(ctx, "%s", notice)
			}
			f.reportErrors(ctx, s, asked)
			f.rewind(s)
			continue
		}
		_ = f.errorf(ctx, "%s", s.Notice())
		retry, perr := f.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
		if perr != nil {
			return nil, perr
		}
		if !retry {
			return nil, err
		}
	}
}

// fillPage prompts for every visible field on the current page that has not
// been asked yet. Visibility is re-evaluated after each answer so conditional
// fields appear as soon as their trigger is set.
func (f *Filler) fillPage(ctx context.Context, s *session.Session, asked map[string]bool) error {
	for {
		field, ok := nextField(s.VisibleFields(), asked)
		if !ok {
			return nil
		}
		asked[field.FieldKey] = true

		prompter, ok := f.registry.Resolve(field)
		if !ok {
			f.logger.Debug("tui: no prompter for field", "field_key", field.FieldKey, "type", field.Type)
			continue
		}
		value, err := prompter.Prompt(ctx, f.driver, field, s.Value(field.FieldKey))
		if err != nil {
			return fmt.Errorf("tui: prompt %q: %w", field.FieldKey, err)
		}
		s.UpdateField(field.FieldKey, value)
	}
}

func nextField(fields []model.Field, asked map[string]bool) (model.Field, bool) {
	for _, field := range fields {
		if !asked[field.FieldKey] {
			return field, true
		}
	}
	return model.Field{}, false
}

// reportErrors prints field errors in schema order and marks those fields
// for another prompt.
func (f *Filler) reportErrors(ctx context.Context, s *session.Session, asked map[string]bool) {
	errs := s.Errors()
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	order := fieldOrder(s.Event().Form)
	sort.SliceStable(keys, func(i, j int) bool {
		return order[keys[i]] < order[keys[j]]
	})
	for _, key := range keys {
		_ = f.errorf(ctx, "%s: %s", key, errs[key])
		delete(asked, key)
	}
}

// rewind moves back to the earliest page holding a field error so it can be
// answered again.
func (f *Filler) rewind(s *session.Session) {
	earliest := 0
	for key := range s.Errors() {
		for _, field := range s.Event().Form {
			if field.FieldKey == key && (earliest == 0 || field.PageNum < earliest) {
				earliest = field.PageNum
			}
		}
	}
	if earliest > 0 && earliest < s.CurrentPage() {
		_ = s.GoTo(earliest)
	}
}

func fieldOrder(form []model.Field) map[string]int {
	order := make(map[string]int, len(form))
	for i, field := range form {
		if _, ok := order[field.FieldKey]; !ok {
			order[field.FieldKey] = i
		}
	}
	return order
}

func (f *Filler) infof(ctx context.Context, format string, args ...any) error {
	return f.driver.Info(ctx, f.theme.InfoPrefix+fmt.Sprintf(format, args...))
}

func (f *Filler) errorf(ctx context.Context, format string, args ...any) error {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	if msg == "" {
		return nil
	}
	return f.driver.Info(ctx, f.theme.ErrorPrefix+msg)
}

func eventName(event model.Event) string {
	if title := strings.TrimSpace(event.Title); title != "" {
		return title
	}
	return event.Name
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
