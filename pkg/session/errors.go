package session

import (
	"errors"
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Sentinel errors returned by Session operations.
var (
	ErrNavigationGuard  = errors.New("session: submit ignored right after page navigation")
	ErrSubmitInFlight   = errors.New("session: submission already in flight")
	ErrAlreadySubmitted = errors.New("session: form already submitted")
	ErrValidation       = errors.New("session: current page has validation errors")
	ErrNoTicket         = errors.New("session: no ticket matches the selection")
	ErrNotLastPage      = errors.New("session: submit is only allowed on the last page")
	ErrClosed           = errors.New("session: closed")
	ErrNoAPI            = errors.New("session: no API configured")
)

// User-facing notices.
const (
	NoticeSubmitFailed = "Failed to submit the form. Please try again."
	NoticeNoTicket     = "Something went wrong. Please try again."
)

// ErrorMapping splits a server error payload into per-field messages (the
// first message for each known field key) and form-level messages.
type ErrorMapping struct {
	Fields map[string]string
	Form   []string
}

// MapFieldErrors routes payload keys onto the schema's field keys. Keys that
// are form-level markers, or that name no field, become form-level messages
// so nothing is lost.
func MapFieldErrors(fields []model.Field, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if key := strings.TrimSpace(field.FieldKey); key != "" {
			known[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(payload))
	for rawKey := range payload {
		keys = append(keys, rawKey)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		normalized := normalizeMessages(payload[rawKey])
		if len(normalized) == 0 {
			continue
		}
		key := strings.TrimSpace(rawKey)
		if isFormLevelKey(key) {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		if _, ok := known[key]; !ok {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[key] = normalized[0]
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", "form", "general", "detail", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
