// Package session holds the live state of one person filling one form: the
// values typed so far, per-field errors, the current page, the submission
// state machine and the debounced log persistence that runs alongside it.
//
// A Session is safe for concurrent use. Remote calls never run while the
// session lock is held.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-formflow/internal/debounce"
	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/logging"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/pagination"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/transform"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// DefaultLogDebounce is the quiet period before in-progress values are saved.
const DefaultLogDebounce = 1500 * time.Millisecond

// API is the remote surface a session needs. *client.Client satisfies it.
type API interface {
	Submit(ctx context.Context, req client.SubmitRequest) (*client.SubmitResponse, error)
	UpdateLog(ctx context.Context, req client.LogRequest) (*client.LogResponse, error)
}

// TicketResolver derives the ticket id from form data. *tickets.Mapping
// satisfies it.
type TicketResolver interface {
	Resolve(data model.FormData) (string, bool)
}

// TransitionHook observes state changes.
type TransitionHook func(from, to State)

// Session is one form-filling session.
type Session struct {
	mu       sync.Mutex
	event    model.Event
	values   model.FormData
	errors   map[string]string
	state    State
	response *client.SubmitResponse
	notice   string
	logID    string
	closed   bool
	// generation is bumped by Reset; log ids from older generations are dropped.
	generation uint64

	pager        *pagination.Paginator
	validators   *validation.Chain
	rules        *rules.Registry
	visibility   visibility.Checker
	transformers *transform.Pipeline
	tickets      TicketResolver
	api          API
	logger       logging.Logger
	hooks        []TransitionHook

	logDebounce time.Duration
	guard       time.Duration
	now         func() time.Time
	debouncer   *debounce.Debouncer
	baseCtx     context.Context
	cancel      context.CancelFunc
}

// New creates a session for event. Collaborators left unset fall back to
// empty registries, so a bare session validates nothing and never persists.
func New(event model.Event, opts ...Option) *Session {
	s := &Session{
		event:       event,
		values:      model.FormData{},
		errors:      map[string]string{},
		state:       StateIdle,
		logger:      logging.Nop(),
		logDebounce: DefaultLogDebounce,
		guard:       pagination.DefaultGuard,
		now:         time.Now,
		baseCtx:     context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.validators == nil {
		s.validators = validation.NewChain()
	}
	if s.rules == nil {
		s.rules = rules.NewRegistry()
	}
	if s.visibility == nil {
		s.visibility = visibility.New(nil)
	}
	if s.transformers == nil {
		s.transformers = transform.NewPipeline()
	}

	s.baseCtx, s.cancel = context.WithCancel(s.baseCtx)
	s.pager = pagination.New(event.Form, pagination.WithGuard(s.guard), pagination.WithClock(s.now))
	s.debouncer = debounce.New(s.logDebounce, s.persistLog)
	return s
}

// Event returns the schema the session was built from.
func (s *Session) Event() model.Event {
	return s.event
}

// UpdateField stores value under key and clears that key's error. It does
// not validate. Updates after a successful submission or Close are ignored.
func (s *Session) UpdateField(key, value string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	s.mu.Lock()
	if s.closed || s.state == StateSubmitted {
		s.mu.Unlock()
		return
	}
	s.values[key] = value
	delete(s.errors, key)
	s.mu.Unlock()

	s.debouncer.Trigger()
}

// Value returns the stored value for key.
func (s *Session) Value(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Get(key)
}

// Values returns a copy of the form state.
func (s *Session) Values() model.FormData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// Errors returns a copy of the per-field errors.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errors))
	for key, message := range s.errors {
		out[key] = message
	}
	return out
}

// Error returns the error recorded for key, if any.
func (s *Session) Error(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors[key]
}

// VisibleFields lists the current page's fields whose conditions hold.
func (s *Session) VisibleFields() []model.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Field
	for _, field := range s.pager.CurrentFields() {
		if s.visibility.Check(field, s.values, s.event.Form) {
			out = append(out, field)
		}
	}
	return out
}

// ValidateCurrentPage validates the current page and replaces the recorded
// errors with the outcome. Fields hidden by their condition, or gated off by
// a business rule, are skipped.
func (s *Session) ValidateCurrentPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() bool {
	found := make(map[string]string)
	for _, field := range s.pager.CurrentFields() {
		if !s.visibility.Check(field, s.values, s.event.Form) {
			continue
		}
		ctx := rules.Context{Field: field, FormData: s.values, AllFormFields: s.event.Form}
		if !s.rules.ShouldValidate(ctx) {
			continue
		}
		if result := s.validators.Validate(field, s.values.Get(field.FieldKey)); !result.Valid {
			found[field.FieldKey] = result.Error
		}
	}
	s.errors = found
	return len(found) == 0
}

// CurrentPage returns the 1-based page number.
func (s *Session) CurrentPage() int { return s.pager.CurrentPage() }

// TotalPages returns the number of pages.
func (s *Session) TotalPages() int { return s.pager.TotalPages() }

// IsLastPage reports whether the current page is the final one.
func (s *Session) IsLastPage() bool { return s.pager.IsLastPage() }

// JustNavigated reports whether the navigation guard is active.
func (s *Session) JustNavigated() bool { return s.pager.JustNavigated() }

// Next validates the current page and advances when it passes. On the last
// page it is a no-op.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validateLocked() {
		return ErrValidation
	}
	s.pager.Next()
	return nil
}

// Previous moves back one page without validating.
func (s *Session) Previous() bool {
	return s.pager.Previous()
}

// GoTo jumps to page. Moving forward requires the current page to validate.
func (s *Session) GoTo(page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page > s.pager.CurrentPage() && !s.validateLocked() {
		return ErrValidation
	}
	s.pager.GoTo(page)
	return nil
}

// State returns the submission state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Response returns the submission response once Submitted.
func (s *Session) Response() *client.SubmitResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response
}

// Notice returns the form-level message from the last failed submission.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// LogID returns the log identifier captured from the first successful save.
func (s *Session) LogID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logID
}

// Submit runs the submission pipeline: guard checks, page validation, a
// final log save when a log id exists, transformation, ticket derivation and
// the remote call. Field-keyed server errors are recorded per field; any
// other failure sets a generic notice. In both cases the session returns to
// Idle so the caller can retry.
func (s *Session) Submit(ctx context.Context) (*client.SubmitResponse, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.state == StateSubmitted:
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	case s.state == StateSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	case s.pager.JustNavigated():
		s.mu.Unlock()
		return nil, ErrNavigationGuard
	case !s.pager.IsLastPage():
		s.mu.Unlock()
		return nil, ErrNotLastPage
	}
	if !s.validateLocked() {
		s.mu.Unlock()
		return nil, ErrValidation
	}
	s.notice = ""
	from := s.setStateLocked(StateSubmitting)
	values := s.values.Clone()
	logID := s.logID
	gen := s.generation
	s.mu.Unlock()
	s.emit(from, StateSubmitting)

	s.debouncer.Cancel()
	if logID != "" {
		if err := s.saveLog(ctx, values, logID, gen); err != nil {
			s.logger.Warn("session: final log update failed", "event_id", s.event.ID, "error", err)
		}
	}

	data := s.transformers.Transform(values)
	ticketID := ""
	if s.tickets != nil {
		var ok bool
		if ticketID, ok = s.tickets.Resolve(data); !ok {
			s.fail(NoticeNoTicket, nil)
			return nil, ErrNoTicket
		}
	}
	if s.api == nil {
		s.fail(NoticeSubmitFailed, nil)
		return nil, ErrNoAPI
	}

	resp, err := s.api.Submit(ctx, client.SubmitRequest{
		EventID:  s.event.ID,
		Data:     data,
		TicketID: ticketID,
		LogID:    logID,
	})
	if err != nil {
		s.logger.Error("session: submit failed", "event_id", s.event.ID, "error", err)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.HasFieldErrors() {
			mapping := MapFieldErrors(s.event.Form, apiErr.FieldErrors)
			if len(mapping.Fields) > 0 {
				s.fail(strings.Join(mapping.Form, " "), mapping.Fields)
				return nil, fmt.Errorf("session: submit: %w", err)
			}
		}
		s.fail(NoticeSubmitFailed, nil)
		return nil, fmt.Errorf("session: submit: %w", err)
	}
	if resp == nil {
		resp = &client.SubmitResponse{}
	}

	s.mu.Lock()
	s.response = resp
	from = s.setStateLocked(StateSubmitted)
	s.mu.Unlock()
	s.emit(from, StateSubmitted)
	return resp, nil
}

// fail records the outcome of a failed submission and walks the state
// machine through Failed back to Idle.
func (s *Session) fail(notice string, fieldErrors map[string]string) {
	s.mu.Lock()
	s.notice = notice
	for key, message := range fieldErrors {
		s.errors[key] = message
	}
	from := s.setStateLocked(StateFailed)
	s.setStateLocked(StateIdle)
	s.mu.Unlock()

	s.emit(from, StateFailed)
	s.emit(StateFailed, StateIdle)
}

// SaveLog persists the current values to the log endpoint immediately. It is
// a no-op without an API or without an event and ticket to attach to.
func (s *Session) SaveLog(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	values := s.values.Clone()
	logID := s.logID
	gen := s.generation
	s.mu.Unlock()
	return s.saveLog(ctx, values, logID, gen)
}

func (s *Session) saveLog(ctx context.Context, values model.FormData, logID string, gen uint64) error {
	if s.api == nil || !s.event.HasTicketContext() {
		return nil
	}
	data := transform.Trim.Transform(s.transformers.Transform(values))
	ticketID := ""
	if s.tickets != nil {
		ticketID, _ = s.tickets.Resolve(data)
	}

	resp, err := s.api.UpdateLog(ctx, client.LogRequest{
		EventID:  s.event.ID,
		Data:     data,
		TicketID: ticketID,
		LogID:    logID,
	})
	if err != nil {
		return err
	}
	if resp != nil && resp.LogID != "" {
		s.mu.Lock()
		if s.logID == "" && s.generation == gen {
			s.logID = resp.LogID
		}
		s.mu.Unlock()
	}
	return nil
}

// persistLog is the debounced callback. Failures are logged and dropped.
func (s *Session) persistLog() {
	s.mu.Lock()
	skip := s.closed || s.state != StateIdle
	s.mu.Unlock()
	if skip {
		return
	}
	if err := s.SaveLog(s.baseCtx); err != nil && !errors.Is(err, ErrClosed) {
		s.logger.Warn("session: log update failed", "event_id", s.event.ID, "error", err)
	}
}

// Reset discards values, errors, log id and response, returns to page 1 and
// puts the session back in Idle.
func (s *Session) Reset() {
	s.debouncer.Cancel()

	s.mu.Lock()
	s.values = model.FormData{}
	s.errors = map[string]string{}
	s.response = nil
	s.notice = ""
	s.logID = ""
	s.generation++
	from := s.setStateLocked(StateIdle)
	s.mu.Unlock()

	s.pager.Reset()
	if from != StateIdle {
		s.emit(from, StateIdle)
	}
}

// Close cancels any pending log save and aborts in-flight background calls.
// Further updates are ignored and Submit returns ErrClosed.
func (s *Session) Close() {
	s.debouncer.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) setStateLocked(to State) State {
	from := s.state
	s.state = to
	return from
}

func (s *Session) emit(from, to State) {
	if from == to {
		return
	}
	for _, hook := range s.hooks {
		hook(from, to)
	}
}
