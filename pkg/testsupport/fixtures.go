// Package testsupport holds fixtures shared by package tests: sample events,
// recording fakes for the remote API and template capture helpers.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"testing"

	j "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/model"
)

// SampleEvent is a two-page registration form: name and phone on page 1,
// email plus a conditional partner name on page 2, and an Instagram handle.
func SampleEvent() model.Event {
	return model.Event{
		ID:    "evt-hawkins",
		Name:  "Vecna's Curse",
		Title: "Vecna's Curse",
		Place: "Hawkins Lab",
		Form: []model.Field{
			{ID: "f-name", FieldKey: "name", Type: model.FieldTypeText, Title: "Full name", Required: true, PageNum: 1},
			{ID: "f-phone", FieldKey: "phone", Type: model.FieldTypePhone, Title: "Phone", Required: true, PageNum: 1},
			{ID: "f-email", FieldKey: "email", Type: model.FieldTypeEmail, Title: "Email", Placeholder: "you@hawkins.edu", PageNum: 2},
			{
				ID: "f-partner", FieldKey: "has_partner", Type: model.FieldTypeRadio, Title: "Bringing someone?", PageNum: 2,
				Options: []model.OptionSet{{Values: []string{"Yes", "No"}}},
			},
			{
				ID: "f-partner-name", FieldKey: "partner_name", Type: model.FieldTypeText, Title: "Partner name",
				Required: true, PageNum: 2,
				Conditions: model.Condition{Field: "f-partner", Operator: "=", Value: "Yes"},
			},
			{
				ID: "f-ig", FieldKey: "__vecna_sees_your_instagram_id", Type: model.FieldTypeText,
				Title: "Instagram", Description: "We <b>see</b> you<script>alert(1)</script>", PageNum: 2,
			},
			{ID: "f-source", FieldKey: "utm_hidden", Type: model.FieldTypeText, Hidden: true, PageNum: 1},
		},
		Tickets: []model.Ticket{{ID: "749a205d-5094-460c-85fb-faca0bbd9894", Title: "Stag"}},
	}
}

// LoadEvent decodes a JSON event fixture.
func LoadEvent(t *testing.T, path string) model.Event {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read event fixture: %v", err)
	}
	var event model.Event
	if err := j.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode event fixture: %v", err)
	}
	return event
}

// RecordingAPI is a concurrency-safe fake of the registration API.
type RecordingAPI struct {
	mu       sync.Mutex
	Submits  []client.SubmitRequest
	Logs     []client.LogRequest
	SubmitFn func(client.SubmitRequest) (*client.SubmitResponse, error)
	LogFn    func(client.LogRequest) (*client.LogResponse, error)
}

// Submit records req and delegates to SubmitFn.
func (a *RecordingAPI) Submit(_ context.Context, req client.SubmitRequest) (*client.SubmitResponse, error) {
	a.mu.Lock()
	a.Submits = append(a.Submits, req)
	fn := a.SubmitFn
	a.mu.Unlock()
	if fn == nil {
		return &client.SubmitResponse{EventRegisterID: "reg-test", FollowupMsg: "See you in Hawkins"}, nil
	}
	return fn(req)
}

// UpdateLog records req and delegates to LogFn.
func (a *RecordingAPI) UpdateLog(_ context.Context, req client.LogRequest) (*client.LogResponse, error) {
	a.mu.Lock()
	a.Logs = append(a.Logs, req)
	fn := a.LogFn
	a.mu.Unlock()
	if fn == nil {
		return &client.LogResponse{LogID: "log-test"}, nil
	}
	return fn(req)
}

// SubmitCount reports how many submissions were recorded.
func (a *RecordingAPI) SubmitCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Submits)
}

// LastSubmit returns the most recent submission.
func (a *RecordingAPI) LastSubmit() (client.SubmitRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Submits) == 0 {
		return client.SubmitRequest{}, false
	}
	return a.Submits[len(a.Submits)-1], true
}

// MustReadGoldenString reads a golden file.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return string(data)
}

// CaptureTemplateOutput runs render against a buffer and returns both the
// returned string and what was written.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
