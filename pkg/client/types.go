package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	j "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrNoEvent reports that the event slug could not be resolved.
var ErrNoEvent = errors.New("client: event not found")

// UTM carries campaign attribution. Unset fields encode as null.
type UTM struct {
	Source   *string `json:"utm_source"`
	Medium   *string `json:"utm_medium"`
	Campaign *string `json:"utm_campaign"`
	Term     *string `json:"utm_term"`
	Content  *string `json:"utm_content"`
}

// TicketSelection is the JSON body of the __tickets[] part.
type TicketSelection struct {
	TicketID string `json:"ticket_id,omitempty"`
	Count    int    `json:"count"`
	MyTicket bool   `json:"my_ticket"`
}

// SubmitRequest is a final registration.
type SubmitRequest struct {
	EventID  string
	Data     model.FormData
	TicketID string
	LogID    string
	UTM      UTM
}

// SubmitResponse is the success payload of a registration.
type SubmitResponse struct {
	FollowupMsg     string         `json:"followup_msg"`
	ApprovalStatus  string         `json:"approval_status"`
	EventRegisterID string         `json:"event_register_id"`
	Redirection     map[string]any `json:"redirection,omitempty"`
	ExtraTickets    []any          `json:"extra_tickets,omitempty"`
	ThankYouNewPage bool           `json:"thank_you_new_page"`
	IsOnline        bool           `json:"is_online"`
	TypeOfEvent     string         `json:"type_of_event"`
	HasInvoice      bool           `json:"has_invoice"`
}

// LogRequest is an incremental save of in-progress form data.
type LogRequest struct {
	EventID  string
	Data     model.FormData
	TicketID string
	LogID    string
}

// LogResponse carries the identifier to reuse on later log updates.
type LogResponse struct {
	LogID string `json:"log_id"`
}

// envelope is the wrapper every endpoint responds with.
type envelope[T any] struct {
	HasError   bool         `json:"hasError"`
	StatusCode int          `json:"statusCode"`
	Message    j.RawMessage `json:"message"`
	Response   *T           `json:"response"`
}

// APIError is a failed call. FieldErrors is populated when the server keyed
// its messages by field.
type APIError struct {
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return fmt.Sprintf("client: api error (status %d): %s", e.StatusCode, e.Message)
	}
	if len(e.FieldErrors) > 0 {
		return fmt.Sprintf("client: api error (status %d): invalid fields %s", e.StatusCode, strings.Join(e.Fields(), ", "))
	}
	return fmt.Sprintf("client: api error (status %d)", e.StatusCode)
}

// Fields lists the keys of FieldErrors in sorted order.
func (e *APIError) Fields() []string {
	if e == nil {
		return nil
	}
	keys := make([]string, 0, len(e.FieldErrors))
	for key := range e.FieldErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// HasFieldErrors reports whether any field-keyed message is present.
func (e *APIError) HasFieldErrors() bool {
	return e != nil && len(e.FieldErrors) > 0
}

// newAPIError interprets the envelope's message member. Objects become
// FieldErrors (string values are promoted to one-element lists); plain
// strings become Message.
func newAPIError(status int, raw j.RawMessage) *APIError {
	apiErr := &APIError{StatusCode: status}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return apiErr
	}

	var text string
	if err := j.Unmarshal(raw, &text); err == nil {
		apiErr.Message = text
		return apiErr
	}

	var fields map[string]j.RawMessage
	if err := j.Unmarshal(raw, &fields); err != nil {
		apiErr.Message = trimmed
		return apiErr
	}
	for key, value := range fields {
		var list []string
		if err := j.Unmarshal(value, &list); err == nil {
			if len(list) > 0 {
				apiErr.setField(key, list)
			}
			continue
		}
		var single string
		if err := j.Unmarshal(value, &single); err == nil && single != "" {
			apiErr.setField(key, []string{single})
		}
	}
	return apiErr
}

func (e *APIError) setField(key string, messages []string) {
	if e.FieldErrors == nil {
		e.FieldErrors = make(map[string][]string)
	}
	e.FieldErrors[key] = messages
}
