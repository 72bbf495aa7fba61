package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/operators"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/tickets"
	"github.com/goliatone/go-formflow/pkg/transform"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

type fakeAPI struct {
	mu         sync.Mutex
	submits    []client.SubmitRequest
	logs       []client.LogRequest
	submitFn   func(client.SubmitRequest) (*client.SubmitResponse, error)
	logFn      func(client.LogRequest) (*client.LogResponse, error)
	logSignals chan struct{}
}

func (f *fakeAPI) Submit(_ context.Context, req client.SubmitRequest) (*client.SubmitResponse, error) {
	f.mu.Lock()
	f.submits = append(f.submits, req)
	fn := f.submitFn
	f.mu.Unlock()
	if fn == nil {
		return &client.SubmitResponse{EventRegisterID: "reg-1"}, nil
	}
	return fn(req)
}

func (f *fakeAPI) UpdateLog(_ context.Context, req client.LogRequest) (*client.LogResponse, error) {
	f.mu.Lock()
	f.logs = append(f.logs, req)
	fn := f.logFn
	signals := f.logSignals
	f.mu.Unlock()

	resp, err := &client.LogResponse{LogID: "log-1"}, error(nil)
	if fn != nil {
		resp, err = fn(req)
	}
	if signals != nil {
		signals <- struct{}{}
	}
	return resp, err
}

func (f *fakeAPI) submitCalls() []client.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.SubmitRequest(nil), f.submits...)
}

func (f *fakeAPI) logCalls() []client.LogRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.LogRequest(nil), f.logs...)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(1983, 11, 6, 19, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func defaultOptions(api API) []Option {
	ops := operators.NewRegistry()
	operators.RegisterDefaults(ops)
	chain := validation.NewChain()
	validation.RegisterDefaults(chain)
	ruleSet := rules.NewRegistry()
	rules.RegisterDefaults(ruleSet)
	pipeline := transform.NewPipeline()
	transform.RegisterDefaults(pipeline)

	return []Option{
		WithValidators(chain),
		WithRules(ruleSet),
		WithVisibility(visibility.New(ops)),
		WithTransformers(pipeline),
		WithAPI(api),
		WithLogDebounce(time.Hour),
	}
}

func twoPageEvent() model.Event {
	return model.Event{
		ID: "evt-1",
		Form: []model.Field{
			{ID: "f-name", FieldKey: "name", Type: model.FieldTypeText, Required: true, PageNum: 1},
			{ID: "f-email", FieldKey: "email", Type: model.FieldTypeEmail, Required: true, PageNum: 2},
		},
		Tickets: []model.Ticket{{ID: "t-1"}},
	}
}

func singlePageEvent() model.Event {
	return model.Event{
		ID: "evt-1",
		Form: []model.Field{
			{ID: "f-name", FieldKey: "name", Type: model.FieldTypeText, Required: true, PageNum: 1},
			{ID: "f-email", FieldKey: "email", Type: model.FieldTypeEmail, PageNum: 1},
			{ID: "f-phone", FieldKey: "phone", Type: model.FieldTypePhone, PageNum: 1},
		},
		Tickets: []model.Ticket{{ID: "t-1"}},
	}
}

func TestTwoPageValidationFlow(t *testing.T) {
	t.Parallel()

	clock := newClock()
	s := New(twoPageEvent(), append(defaultOptions(&fakeAPI{}), WithClock(clock.Now))...)
	defer s.Close()

	s.UpdateField("name", "Joyce Byers")
	if !s.ValidateCurrentPage() {
		t.Fatalf("page 1 should validate, errors: %v", s.Errors())
	}
	if err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.CurrentPage() != 2 {
		t.Fatalf("expected page 2, got %d", s.CurrentPage())
	}

	if s.ValidateCurrentPage() {
		t.Fatalf("blank required email should fail validation")
	}
	if diff := cmp.Diff(map[string]string{"email": validation.MessageRequired}, s.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	clock.Advance(time.Second)
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNextBlockedByValidation(t *testing.T) {
	t.Parallel()

	s := New(twoPageEvent(), defaultOptions(&fakeAPI{})...)
	defer s.Close()

	if err := s.Next(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if s.CurrentPage() != 1 {
		t.Fatalf("page must not change on failed validation")
	}
	if s.Error("name") != validation.MessageRequired {
		t.Fatalf("expected required error on name, got %q", s.Error("name"))
	}

	s.UpdateField("name", "Hopper")
	if s.Error("name") != "" {
		t.Fatalf("editing a field clears its error")
	}
	if err := s.GoTo(2); err != nil || s.CurrentPage() != 2 {
		t.Fatalf("GoTo(2) should pass once page 1 is valid: %v", err)
	}
	if err := s.GoTo(1); err != nil || s.CurrentPage() != 1 {
		t.Fatalf("GoTo backwards never validates: %v", err)
	}
}

func TestSubmitSuccess(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{submitFn: func(client.SubmitRequest) (*client.SubmitResponse, error) {
		return &client.SubmitResponse{EventRegisterID: "reg-42", FollowupMsg: "Stay out of the Upside Down"}, nil
	}}
	var transitions []string
	hook := func(from, to State) { transitions = append(transitions, from.String()+">"+to.String()) }

	s := New(singlePageEvent(), append(defaultOptions(api), WithTransitionHook(hook))...)
	defer s.Close()

	s.UpdateField("name", "  Steve Harrington ")
	resp, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.EventRegisterID != "reg-42" || s.Response() != resp {
		t.Fatalf("unexpected response %#v", resp)
	}
	if s.State() != StateSubmitted {
		t.Fatalf("expected Submitted, got %s", s.State())
	}
	if diff := cmp.Diff([]string{"idle>submitting", "submitting>submitted"}, transitions); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}

	calls := api.submitCalls()
	if len(calls) != 1 || calls[0].Data["name"] != "Steve Harrington" || calls[0].LogID != "" {
		t.Fatalf("unexpected submit call %#v", calls)
	}

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	s.UpdateField("name", "ignored")
	if s.Value("name") != "  Steve Harrington " {
		t.Fatalf("updates after submission must be ignored")
	}
}

func TestSubmitFieldErrorsReturnToIdle(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{submitFn: func(client.SubmitRequest) (*client.SubmitResponse, error) {
		return nil, &client.APIError{
			StatusCode:  400,
			FieldErrors: map[string][]string{"email": {"Email already used", "second"}},
		}
	}}
	var transitions []string
	hook := func(from, to State) { transitions = append(transitions, from.String()+">"+to.String()) }

	s := New(singlePageEvent(), append(defaultOptions(api), WithTransitionHook(hook))...)
	defer s.Close()

	s.UpdateField("name", "Robin")
	s.UpdateField("email", "robin@scoops.ahoy")
	_, err := s.Submit(context.Background())

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
	if s.Error("email") != "Email already used" {
		t.Fatalf("expected first server message on email, got %q", s.Error("email"))
	}
	if s.State() != StateIdle || s.Notice() != "" {
		t.Fatalf("expected Idle with no notice, got %s %q", s.State(), s.Notice())
	}
	want := []string{"idle>submitting", "submitting>failed", "failed>idle"}
	if diff := cmp.Diff(want, transitions); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitGenericFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{submitFn: func(client.SubmitRequest) (*client.SubmitResponse, error) {
		return nil, errors.New("connection reset")
	}}
	s := New(singlePageEvent(), defaultOptions(api)...)
	defer s.Close()

	s.UpdateField("name", "Eddie")
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if s.Notice() != NoticeSubmitFailed || s.State() != StateIdle {
		t.Fatalf("expected generic notice and Idle, got %q %s", s.Notice(), s.State())
	}

	api.mu.Lock()
	api.submitFn = nil
	api.mu.Unlock()
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if s.Notice() != "" {
		t.Fatalf("notice should clear on a new attempt")
	}
}

func TestSubmitUnknownFieldErrorsUseGenericNotice(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{submitFn: func(client.SubmitRequest) (*client.SubmitResponse, error) {
		return nil, &client.APIError{StatusCode: 400, FieldErrors: map[string][]string{"coupon": {"Expired"}}}
	}}
	s := New(singlePageEvent(), defaultOptions(api)...)
	defer s.Close()

	s.UpdateField("name", "Argyle")
	_, _ = s.Submit(context.Background())
	if s.Notice() != NoticeSubmitFailed || len(s.Errors()) != 0 {
		t.Fatalf("unmappable field errors fall back to the generic notice: %q %v", s.Notice(), s.Errors())
	}
}

func TestNavigationGuardBlocksSubmit(t *testing.T) {
	t.Parallel()

	clock := newClock()
	api := &fakeAPI{}
	s := New(twoPageEvent(), append(defaultOptions(api), WithClock(clock.Now))...)
	defer s.Close()

	s.UpdateField("name", "Max")
	s.UpdateField("email", "max@hawkins.edu")
	if err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNavigationGuard) {
		t.Fatalf("expected ErrNavigationGuard, got %v", err)
	}
	if len(api.submitCalls()) != 0 || s.State() != StateIdle {
		t.Fatalf("guarded submit must not reach the API")
	}

	clock.Advance(150 * time.Millisecond)
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit after guard window: %v", err)
	}
}

func TestSubmitOnlyFromLastPage(t *testing.T) {
	t.Parallel()

	s := New(twoPageEvent(), defaultOptions(&fakeAPI{})...)
	defer s.Close()

	s.UpdateField("name", "Dustin")
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotLastPage) {
		t.Fatalf("expected ErrNotLastPage, got %v", err)
	}
}

func TestSubmitWithoutMatchingTicket(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	event := singlePageEvent()
	event.Form = append(event.Form, model.Field{
		ID: "f-ticket", FieldKey: tickets.VecnaFieldKey, Type: model.FieldTypeRadio, PageNum: 1,
	})
	s := New(event, append(defaultOptions(api), WithTickets(tickets.Vecna()))...)
	defer s.Close()

	s.UpdateField("name", "Lucas")
	s.UpdateField(tickets.VecnaFieldKey, "Something else")
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNoTicket) {
		t.Fatalf("expected ErrNoTicket, got %v", err)
	}
	if s.Notice() != NoticeNoTicket || s.State() != StateIdle || len(api.submitCalls()) != 0 {
		t.Fatalf("unmatched ticket must stop before the API call")
	}

	s.UpdateField(tickets.VecnaFieldKey, tickets.OptionBondedSouls)
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := api.submitCalls()[0].TicketID; got != "646d2ca6-f068-4b01-a3b9-a5363dff9965" {
		t.Fatalf("unexpected ticket id %q", got)
	}
}

func TestSubmitInFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeAPI{submitFn: func(client.SubmitRequest) (*client.SubmitResponse, error) {
		close(entered)
		<-release
		return &client.SubmitResponse{EventRegisterID: "reg-1"}, nil
	}}
	s := New(singlePageEvent(), defaultOptions(api)...)
	defer s.Close()
	s.UpdateField("name", "Erica")

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-entered

	if s.State() != StateSubmitting {
		t.Fatalf("expected Submitting, got %s", s.State())
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if len(api.submitCalls()) != 1 {
		t.Fatalf("exactly one submission should reach the API")
	}
}

func TestEmailRuleGatesValidation(t *testing.T) {
	t.Parallel()

	event := singlePageEvent()
	event.Form[1].Required = true
	s := New(event, defaultOptions(&fakeAPI{})...)
	defer s.Close()

	s.UpdateField("name", "Murray")
	s.UpdateField("phone", "+919876543210")
	if !s.ValidateCurrentPage() {
		t.Fatalf("email is not validated while every phone is Indian: %v", s.Errors())
	}

	s.UpdateField("phone", "+14155550100")
	if s.ValidateCurrentPage() {
		t.Fatalf("a foreign phone turns email validation on")
	}
	if s.Error("email") != validation.MessageRequired {
		t.Fatalf("expected required error on email, got %q", s.Error("email"))
	}
}

func TestConditionHiddenFieldsSkipValidation(t *testing.T) {
	t.Parallel()

	event := model.Event{
		ID: "evt-1",
		Form: []model.Field{
			{ID: "f-partner", FieldKey: "has_partner", Type: model.FieldTypeRadio, PageNum: 1},
			{
				ID: "f-partner-name", FieldKey: "partner_name", Type: model.FieldTypeText, Required: true, PageNum: 1,
				Conditions: model.Condition{Field: "f-partner", Operator: "=", Value: "Yes"},
			},
		},
	}
	s := New(event, defaultOptions(&fakeAPI{})...)
	defer s.Close()

	if !s.ValidateCurrentPage() || len(s.VisibleFields()) != 1 {
		t.Fatalf("inactive conditional field must be hidden and skipped")
	}
	s.UpdateField("has_partner", "Yes")
	if len(s.VisibleFields()) != 2 {
		t.Fatalf("condition met should show the field")
	}
	if s.ValidateCurrentPage() {
		t.Fatalf("active required field must validate")
	}
}

func TestDebouncedLogCapturesID(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{logSignals: make(chan struct{}, 4)}
	opts := append(defaultOptions(api), WithLogDebounce(20*time.Millisecond))
	s := New(singlePageEvent(), opts...)
	defer s.Close()

	s.UpdateField("name", "N")
	s.UpdateField("name", "Nan")
	s.UpdateField("name", "  Nancy  ")

	select {
	case <-api.logSignals:
	case <-time.After(2 * time.Second):
		t.Fatalf("log update never fired")
	}
	waitFor(t, func() bool { return s.LogID() == "log-1" })

	logs := api.logCalls()
	if len(logs) != 1 {
		t.Fatalf("burst of edits should produce one log call, got %d", len(logs))
	}
	if logs[0].Data["name"] != "Nancy" || logs[0].LogID != "" || logs[0].EventID != "evt-1" {
		t.Fatalf("unexpected log request %#v", logs[0])
	}

	api.mu.Lock()
	api.logFn = func(client.LogRequest) (*client.LogResponse, error) {
		return &client.LogResponse{LogID: "log-2"}, nil
	}
	api.mu.Unlock()

	s.UpdateField("email", "nancy@hawkins.edu")
	select {
	case <-api.logSignals:
	case <-time.After(2 * time.Second):
		t.Fatalf("second log update never fired")
	}
	if got := api.logCalls()[1].LogID; got != "log-1" {
		t.Fatalf("later saves reuse the first log id, got %q", got)
	}
	if s.LogID() != "log-1" {
		t.Fatalf("log id is captured once, got %q", s.LogID())
	}
}

func TestLogFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		logSignals: make(chan struct{}, 1),
		logFn: func(client.LogRequest) (*client.LogResponse, error) {
			return nil, errors.New("log endpoint down")
		},
	}
	s := New(singlePageEvent(), append(defaultOptions(api), WithLogDebounce(10*time.Millisecond))...)
	defer s.Close()

	s.UpdateField("name", "Will")
	select {
	case <-api.logSignals:
	case <-time.After(2 * time.Second):
		t.Fatalf("log update never fired")
	}
	if s.LogID() != "" || s.State() != StateIdle || s.Notice() != "" {
		t.Fatalf("log failures must not touch user-visible state")
	}
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit must proceed despite log failures: %v", err)
	}
}

func TestNoLogWithoutTicketContext(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	event := singlePageEvent()
	event.Tickets = nil
	s := New(event, defaultOptions(api)...)
	defer s.Close()

	s.UpdateField("name", "Billy")
	if err := s.SaveLog(context.Background()); err != nil {
		t.Fatalf("SaveLog: %v", err)
	}
	if len(api.logCalls()) != 0 {
		t.Fatalf("no ticket context means no log persistence")
	}
}

func TestFinalLogOnlyWithExistingLogID(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	s := New(singlePageEvent(), defaultOptions(api)...)
	defer s.Close()

	s.UpdateField("name", "Vickie")
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(api.logCalls()) != 0 {
		t.Fatalf("no final log save without a log id")
	}

	api2 := &fakeAPI{logFn: func(client.LogRequest) (*client.LogResponse, error) {
		return nil, errors.New("flaky")
	}}
	s2 := New(singlePageEvent(), defaultOptions(api2)...)
	defer s2.Close()
	s2.UpdateField("name", "Vickie")
	s2.mu.Lock()
	s2.logID = "log-9"
	s2.mu.Unlock()

	if _, err := s2.Submit(context.Background()); err != nil {
		t.Fatalf("Submit must ignore final log failure: %v", err)
	}
	if len(api2.logCalls()) != 1 || api2.submitCalls()[0].LogID != "log-9" {
		t.Fatalf("expected one final log save and log id on submit")
	}
}

func TestResetAndClose(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	clock := newClock()
	s := New(twoPageEvent(), append(defaultOptions(api), WithClock(clock.Now))...)

	s.UpdateField("name", "Jonathan")
	_ = s.Next()
	s.mu.Lock()
	s.logID = "log-3"
	s.mu.Unlock()

	s.Reset()
	if s.CurrentPage() != 1 || len(s.Values()) != 0 || s.LogID() != "" || s.State() != StateIdle {
		t.Fatalf("Reset should clear everything")
	}

	s.Close()
	s.UpdateField("name", "ignored")
	if s.Value("name") != "" {
		t.Fatalf("closed session ignores updates")
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.SaveLog(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from SaveLog, got %v", err)
	}
}

func TestResetDropsLogIDFromInFlightSave(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		logFn: func(client.LogRequest) (*client.LogResponse, error) {
			close(started)
			<-release
			return &client.LogResponse{LogID: "stale-log"}, nil
		},
	}
	s := New(twoPageEvent(), defaultOptions(api)...)
	t.Cleanup(s.Close)
	s.UpdateField("name", "Steve")

	done := make(chan error, 1)
	go func() { done <- s.SaveLog(context.Background()) }()
	<-started
	s.Reset()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("SaveLog: %v", err)
	}

	if got := s.LogID(); got != "" {
		t.Fatalf("log id from before Reset leaked into the new session: %q", got)
	}
}

func TestMapFieldErrors(t *testing.T) {
	t.Parallel()

	fields := singlePageEvent().Form
	got := MapFieldErrors(fields, map[string][]string{
		"email":            {"  Email already used ", "Email already used", "x"},
		"non_field_errors": {"Try later"},
		"coupon":           {"Expired"},
		"phone":            {"   "},
	})
	want := ErrorMapping{
		Fields: map[string]string{"email": "Email already used"},
		Form:   []string{"Expired", "Try later"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
	if empty := MapFieldErrors(fields, nil); empty.Fields != nil || empty.Form != nil {
		t.Fatalf("empty payload maps to nothing")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
