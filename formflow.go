// Package formflow is the quick-start entry point: it wires the form engine
// with its built-in operators, validators, rules and transformers, and
// re-exports the types most callers touch.
package formflow

import (
	"context"
	"fmt"
	"io"

	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/renderers/html"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/tickets"
)

// Event is the form schema plus ticket metadata.
type Event = model.Event

// Field is one server-supplied input.
type Field = model.Field

// FormData maps field keys to values.
type FormData = model.FormData

// Engine composes the shared registries.
type Engine = engine.Engine

// Session is one person filling one form.
type Session = session.Session

// EngineOption configures NewEngine.
type EngineOption = engine.Option

// NewEngine builds an engine with every built-in registered.
func NewEngine(options ...EngineOption) *Engine {
	return engine.New(options...).RegisterDefaults()
}

// TicketsFor returns the ticket mapping for event: the Vecna mapping when the
// event carries its ticket selector field, otherwise false.
func TicketsFor(event Event) (*tickets.Mapping, bool) {
	for _, field := range event.Form {
		if field.FieldKey == tickets.VecnaFieldKey {
			return tickets.Vecna(), true
		}
	}
	return nil, false
}

// NewClient builds the registration API client. The result satisfies both
// engine.EventSource and session.API.
func NewClient(options ...client.Option) *client.Client {
	return client.New(options...)
}

// LoadEvent reads an event document from a file path or http(s) URL.
func LoadEvent(ctx context.Context, location string, options ...schema.LoaderOption) (Event, error) {
	src, err := schema.SourceFor(location)
	if err != nil {
		return Event{}, err
	}
	return schema.NewLoader(options...).LoadEvent(ctx, src)
}

// RenderPage writes the session's current page as HTML.
func RenderPage(w io.Writer, s *Session, action string, options ...html.Option) error {
	renderer, err := html.New(options...)
	if err != nil {
		return fmt.Errorf("formflow: %w", err)
	}
	return renderer.RenderPage(w, html.PageFromSession(s, action))
}
