// Package tickets derives the ticket identifier from a radio selection. The
// mapping is closed: every supported option string needs its own entry.
package tickets

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrNoTicket reports that the selection did not map to a ticket.
var ErrNoTicket = errors.New("tickets: no ticket matches the selected option")

// Mapping resolves one radio field's value to a ticket id by exact match.
type Mapping struct {
	fieldKey string
	options  map[string]string
}

// NewMapping validates that every target is a UUID and returns the mapping.
func NewMapping(fieldKey string, options map[string]string) (*Mapping, error) {
	key := strings.TrimSpace(fieldKey)
	if key == "" {
		return nil, errors.New("tickets: field key is required")
	}
	copied := make(map[string]string, len(options))
	for option, ticketID := range options {
		if _, err := uuid.Parse(ticketID); err != nil {
			return nil, fmt.Errorf("tickets: option %q: invalid ticket id %q: %w", option, ticketID, err)
		}
		copied[option] = ticketID
	}
	return &Mapping{fieldKey: key, options: copied}, nil
}

// MustMapping panics when NewMapping fails.
func MustMapping(fieldKey string, options map[string]string) *Mapping {
	m, err := NewMapping(fieldKey, options)
	if err != nil {
		panic(err)
	}
	return m
}

// FieldKey is the radio field the mapping reads.
func (m *Mapping) FieldKey() string {
	if m == nil {
		return ""
	}
	return m.fieldKey
}

// Options lists the supported option strings in sorted order.
func (m *Mapping) Options() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.options))
	for option := range m.options {
		out = append(out, option)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the ticket id for the selected option. Whitespace is
// significant.
func (m *Mapping) Resolve(data model.FormData) (string, bool) {
	if m == nil {
		return "", false
	}
	ticketID, ok := m.options[data.Get(m.fieldKey)]
	return ticketID, ok
}

// Lookup is Resolve with an error for the unmatched case.
func (m *Mapping) Lookup(data model.FormData) (string, error) {
	if ticketID, ok := m.Resolve(data); ok {
		return ticketID, nil
	}
	return "", ErrNoTicket
}

// VecnaFieldKey is the radio field on the vecnas-curse registration form.
const VecnaFieldKey = "who_walks_willingly_into_the_nwod_edispu"

// Vecna option labels.
const (
	OptionMarkedOne   = "🕷 The Marked One (Stag Male) – Heard the clock. Chose to stay."
	OptionUnshaken    = "🩸 The Unshaken (Stag Female) – Not afraid of the flicker."
	OptionBondedSouls = "👁 The Bonded Souls (Couple) – If Vecna takes one, he takes both."
)

// Vecna returns the mapping used by the vecnas-curse event.
func Vecna() *Mapping {
	return MustMapping(VecnaFieldKey, map[string]string{
		OptionMarkedOne:   "749a205d-5094-460c-85fb-faca0bbd9894",
		OptionUnshaken:    "8839c1be-b1b8-4d20-a469-7cbdf12de501",
		OptionBondedSouls: "646d2ca6-f068-4b01-a3b9-a5363dff9965",
	})
}
