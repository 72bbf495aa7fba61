package model

import (
	"sort"
	"strings"
)

// Well-known field type tags. The set is open: renderers can register any tag.
const (
	FieldTypeText     = "text"
	FieldTypeEmail    = "email"
	FieldTypeNumber   = "number"
	FieldTypeURL      = "url"
	FieldTypePhone    = "phone"
	FieldTypeRadio    = "radio"
	FieldTypeCheckbox = "checkbox"
	FieldTypeTextarea = "textarea"
	FieldTypeSelect   = "select"
	FieldTypeDropdown = "dropdown"
)

// FormData maps field keys to their current string values. A missing key reads
// as the empty string.
type FormData map[string]string

// Get returns the value stored under key, or "" when absent.
func (d FormData) Get(key string) string {
	if d == nil {
		return ""
	}
	return d[key]
}

// Clone returns an independent copy.
func (d FormData) Clone() FormData {
	out := make(FormData, len(d))
	for key, value := range d {
		out[key] = value
	}
	return out
}

// Keys returns the keys in sorted order for deterministic iteration.
func (d FormData) Keys() []string {
	keys := make([]string, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// OptionSet groups selectable values for radio/select style fields.
type OptionSet struct {
	Values     []string       `json:"values"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

// Field describes one server-supplied form input.
type Field struct {
	ID          string         `json:"id"`
	FieldKey    string         `json:"field_key"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Placeholder string         `json:"placeholder"`
	Required    bool           `json:"required"`
	Hidden      bool           `json:"hidden"`
	Unique      *bool          `json:"unique,omitempty"`
	PageNum     int            `json:"page_num"`
	Options     []OptionSet    `json:"options,omitempty"`
	Conditions  Condition      `json:"conditions"`
	Property    map[string]any `json:"property,omitempty"`
	TeamField   bool           `json:"team_field"`
	AdminField  bool           `json:"admin_field,omitempty"`
}

// OptionValues flattens every option set into a single ordered list, dropping
// duplicates.
func (f Field) OptionValues() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, set := range f.Options {
		for _, value := range set.Values {
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			out = append(out, value)
		}
	}
	return out
}

// Ticket is the event ticket metadata delivered with the schema.
type Ticket struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	DefaultSelected bool    `json:"default_selected,omitempty"`
}

// Event is the slice of the event-info payload the form engine depends on.
// Presentation-only attributes are kept so renderers can show a header.
type Event struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	EventStartDate  string   `json:"event_start_date"`
	EventEndDate    string   `json:"event_end_date"`
	Logo            string   `json:"logo"`
	Banner          string   `json:"banner"`
	Place           string   `json:"place"`
	Timezone        string   `json:"timezone"`
	CloseForm       bool     `json:"close_form"`
	ThankYouNewPage bool     `json:"thank_you_new_page"`
	Form            []Field  `json:"form"`
	Tickets         []Ticket `json:"tickets"`
}

// HasTicketContext reports whether log persistence has an event and ticket to
// attach to.
func (e Event) HasTicketContext() bool {
	return strings.TrimSpace(e.ID) != "" && len(e.Tickets) > 0
}

// FieldByID resolves a field by its schema id.
func (e Event) FieldByID(id string) (Field, bool) {
	return FindByID(e.Form, id)
}

// FindByID returns the first field whose ID matches id.
func FindByID(fields []Field, id string) (Field, bool) {
	for _, field := range fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// FieldsOfType filters fields by type tag, preserving order.
func FieldsOfType(fields []Field, fieldType string) []Field {
	var out []Field
	for _, field := range fields {
		if field.Type == fieldType {
			out = append(out, field)
		}
	}
	return out
}
