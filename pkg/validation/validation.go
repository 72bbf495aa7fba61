// Package validation runs an ordered chain of field validators. The first
// failing validator wins, so registration order encodes precedence: the
// required check must come before format checks.
package validation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Built-in error messages.
const (
	MessageRequired     = "This field is required"
	MessageInvalidEmail = "Please enter a valid email address"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result is the outcome of validating one field value.
type Result struct {
	Valid bool
	Error string
}

// Valid is the passing Result.
func Valid() Result { return Result{Valid: true} }

// Invalid builds a failing Result carrying message.
func Invalid(message string) Result { return Result{Error: message} }

// Validator inspects a field's value. Absent values arrive as "".
type Validator func(field model.Field, value string) Result

// Chain runs validators in registration order and stops at the first failure.
type Chain struct {
	mu         sync.RWMutex
	validators []Validator
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Register appends validator to the chain. Nil validators are ignored.
func (c *Chain) Register(validator Validator) {
	if validator == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validators = append(c.validators, validator)
}

// Validate returns the first failing result, or Valid when all pass.
func (c *Chain) Validate(field model.Field, value string) Result {
	c.mu.RLock()
	validators := append([]Validator(nil), c.validators...)
	c.mu.RUnlock()

	for _, validator := range validators {
		if result := validator(field, value); !result.Valid {
			return result
		}
	}
	return Valid()
}

// Clear removes every validator.
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validators = nil
}

// Count reports the number of registered validators.
func (c *Chain) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.validators)
}

// Required fails required fields whose value is empty or whitespace.
func Required(field model.Field, value string) Result {
	if !field.Required {
		return Valid()
	}
	if strings.TrimSpace(value) == "" {
		return Invalid(MessageRequired)
	}
	return Valid()
}

// Email checks the address shape of non-empty email fields. Empty values pass
// so optional email fields are left to Required.
func Email(field model.Field, value string) Result {
	if field.Type != model.FieldTypeEmail || strings.TrimSpace(value) == "" {
		return Valid()
	}
	if !emailPattern.MatchString(value) {
		return Invalid(MessageInvalidEmail)
	}
	return Valid()
}

// NewCustomValidator builds a validator that only runs when applies(field)
// holds and the value is non-empty.
func NewCustomValidator(applies func(model.Field) bool, isValid func(string) bool, message string) Validator {
	return func(field model.Field, value string) Result {
		if applies == nil || isValid == nil {
			return Valid()
		}
		if !applies(field) || strings.TrimSpace(value) == "" {
			return Valid()
		}
		if isValid(value) {
			return Valid()
		}
		return Invalid(message)
	}
}

// RegisterDefaults installs Required then Email.
func RegisterDefaults(c *Chain) {
	c.Register(Required)
	c.Register(Email)
}
