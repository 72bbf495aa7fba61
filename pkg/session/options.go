package session

import (
	"context"
	"time"

	"github.com/goliatone/go-formflow/pkg/logging"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/transform"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Option customises a Session.
type Option func(*Session)

// WithValidators sets the validator chain.
func WithValidators(chain *validation.Chain) Option {
	return func(s *Session) {
		s.validators = chain
	}
}

// WithRules sets the business rule registry.
func WithRules(registry *rules.Registry) Option {
	return func(s *Session) {
		s.rules = registry
	}
}

// WithVisibility sets the condition checker.
func WithVisibility(checker visibility.Checker) Option {
	return func(s *Session) {
		s.visibility = checker
	}
}

// WithTransformers sets the transformer pipeline applied before submit and
// log saves.
func WithTransformers(pipeline *transform.Pipeline) Option {
	return func(s *Session) {
		s.transformers = pipeline
	}
}

// WithTickets sets the ticket resolver. Without one, submissions carry no
// ticket id.
func WithTickets(resolver TicketResolver) Option {
	return func(s *Session) {
		s.tickets = resolver
	}
}

// WithAPI sets the remote API.
func WithAPI(api API) Option {
	return func(s *Session) {
		s.api = api
	}
}

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLogDebounce overrides the quiet period before a log save.
func WithLogDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.logDebounce = d
		}
	}
}

// WithNavigationGuard overrides the post-navigation submit guard. Zero
// disables it.
func WithNavigationGuard(d time.Duration) Option {
	return func(s *Session) {
		s.guard = d
	}
}

// WithClock injects the time source used by the navigation guard.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithContext sets the parent context for background log saves. Close
// cancels the derived context.
func WithContext(ctx context.Context) Option {
	return func(s *Session) {
		if ctx != nil {
			s.baseCtx = ctx
		}
	}
}

// WithTransitionHook registers a state change observer. Hooks run after the
// session lock is released.
func WithTransitionHook(hook TransitionHook) Option {
	return func(s *Session) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}
