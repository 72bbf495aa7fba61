package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-formflow/pkg/logging"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/operators"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/transform"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// EventSource loads an event schema by slug. *client.Client satisfies it.
type EventSource interface {
	FetchEvent(ctx context.Context, slug string) (model.Event, error)
}

// Option customises the engine.
type Option func(*Engine)

// WithOperators injects an operator registry.
func WithOperators(registry *operators.Registry) Option {
	return func(e *Engine) {
		e.operators = registry
	}
}

// WithValidators injects a validator chain.
func WithValidators(chain *validation.Chain) Option {
	return func(e *Engine) {
		e.validators = chain
	}
}

// WithRules injects a business rule registry.
func WithRules(registry *rules.Registry) Option {
	return func(e *Engine) {
		e.rules = registry
	}
}

// WithTransformers injects a transformer pipeline.
func WithTransformers(pipeline *transform.Pipeline) Option {
	return func(e *Engine) {
		e.transformers = pipeline
	}
}

// WithTickets sets the ticket resolver shared by every session.
func WithTickets(resolver session.TicketResolver) Option {
	return func(e *Engine) {
		e.tickets = resolver
	}
}

// WithAPI sets the remote API used for submissions and log saves.
func WithAPI(api session.API) Option {
	return func(e *Engine) {
		e.api = api
	}
}

// WithEventSource sets where Load fetches schemas from.
func WithEventSource(source EventSource) Option {
	return func(e *Engine) {
		e.events = source
	}
}

// WithLogger attaches a logger passed down to sessions and operators.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLogDebounce overrides the session log debounce.
func WithLogDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.sessionOptions = append(e.sessionOptions, session.WithLogDebounce(d))
	}
}

// WithNavigationGuard overrides the session navigation guard.
func WithNavigationGuard(d time.Duration) Option {
	return func(e *Engine) {
		e.sessionOptions = append(e.sessionOptions, session.WithNavigationGuard(d))
	}
}

// WithSessionOptions appends raw session options applied to every session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(e *Engine) {
		e.sessionOptions = append(e.sessionOptions, opts...)
	}
}

// Engine owns the registries shared by its sessions.
type Engine struct {
	operators      *operators.Registry
	validators     *validation.Chain
	rules          *rules.Registry
	transformers   *transform.Pipeline
	visibility     *visibility.Evaluator
	tickets        session.TicketResolver
	api            session.API
	events         EventSource
	logger         logging.Logger
	sessionOptions []session.Option
}

// New builds an engine. Registries not supplied through options start
// empty.
func New(options ...Option) *Engine {
	e := &Engine{logger: logging.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	e.applyDefaults()
	return e
}

func (e *Engine) applyDefaults() {
	if e.operators == nil {
		e.operators = operators.NewRegistry(operators.WithLogger(e.logger))
	}
	if e.validators == nil {
		e.validators = validation.NewChain()
	}
	if e.rules == nil {
		e.rules = rules.NewRegistry()
	}
	if e.transformers == nil {
		e.transformers = transform.NewPipeline()
	}
	e.visibility = visibility.New(e.operators)
}

// RegisterDefaults installs the built-in operators, validators, business
// rules and transformers, in their required order.
func (e *Engine) RegisterDefaults() *Engine {
	operators.RegisterDefaults(e.operators)
	validation.RegisterDefaults(e.validators)
	rules.RegisterDefaults(e.rules)
	transform.RegisterDefaults(e.transformers)
	return e
}

// Reset clears every registry.
func (e *Engine) Reset() {
	e.operators.Clear()
	e.validators.Clear()
	e.rules.Clear()
	e.transformers.Clear()
}

// Operators exposes the operator registry.
func (e *Engine) Operators() *operators.Registry { return e.operators }

// Validators exposes the validator chain.
func (e *Engine) Validators() *validation.Chain { return e.validators }

// Rules exposes the business rule registry.
func (e *Engine) Rules() *rules.Registry { return e.rules }

// Transformers exposes the transformer pipeline.
func (e *Engine) Transformers() *transform.Pipeline { return e.transformers }

// Visibility exposes the condition evaluator.
func (e *Engine) Visibility() *visibility.Evaluator { return e.visibility }

// NewSession starts a session for event using the engine's registries.
// Extra options are applied after the engine's own.
func (e *Engine) NewSession(event model.Event, extra ...session.Option) *session.Session {
	opts := []session.Option{
		session.WithValidators(e.validators),
		session.WithRules(e.rules),
		session.WithVisibility(e.visibility),
		session.WithTransformers(e.transformers),
		session.WithLogger(e.logger.With("event_id", event.ID)),
	}
	if e.tickets != nil {
		opts = append(opts, session.WithTickets(e.tickets))
	}
	if e.api != nil {
		opts = append(opts, session.WithAPI(e.api))
	}
	opts = append(opts, e.sessionOptions...)
	opts = append(opts, extra...)
	return session.New(event, opts...)
}

// Load fetches the event for slug and starts a session for it.
func (e *Engine) Load(ctx context.Context, slug string, extra ...session.Option) (*session.Session, error) {
	if ctx == nil {
		return nil, errors.New("engine: context is required")
	}
	if e.events == nil {
		return nil, errors.New("engine: no event source configured")
	}
	event, err := e.events.FetchEvent(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("engine: load %q: %w", slug, err)
	}
	if event.CloseForm {
		e.logger.Info("engine: registration closed", "slug", slug)
	}
	return e.NewSession(event, extra...), nil
}
