// Package rules gates whether validation runs for a field at all. Rules are
// registered per field key; a field with no rules always validates, and a
// field with rules validates when any one of them agrees.
package rules

import (
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/phone"
)

// EmailFieldKey is the field key the default email rule is registered under.
const EmailFieldKey = "email"

// Context carries everything a rule may inspect.
type Context struct {
	Field         model.Field
	FormData      model.FormData
	AllFormFields []model.Field
}

// Rule reports whether validation should run for Context.Field.
type Rule func(ctx Context) bool

// Registry holds rules keyed by field key.
type Registry struct {
	mu    sync.RWMutex
	rules map[string][]Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string][]Rule)}
}

// Register appends rule to the list for fieldKey.
func (r *Registry) Register(fieldKey string, rule Rule) {
	key := strings.TrimSpace(fieldKey)
	if key == "" || rule == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[key] = append(r.rules[key], rule)
}

// ShouldValidate ORs the rules registered for ctx.Field.FieldKey.
func (r *Registry) ShouldValidate(ctx Context) bool {
	r.mu.RLock()
	fieldRules := append([]Rule(nil), r.rules[ctx.Field.FieldKey]...)
	r.mu.RUnlock()

	if len(fieldRules) == 0 {
		return true
	}
	for _, rule := range fieldRules {
		if rule(ctx) {
			return true
		}
	}
	return false
}

// Has reports whether any rule exists for fieldKey.
func (r *Registry) Has(fieldKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules[strings.TrimSpace(fieldKey)]) > 0
}

// Count reports the total number of registered rules across all keys.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, list := range r.rules {
		total += len(list)
	}
	return total
}

// Clear removes every rule.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = make(map[string][]Rule)
}

// EmailRequiredForNonIndianPhone holds when at least one phone field in the
// form carries a dialing code other than +91. Unparseable or empty phone
// values count as +91.
func EmailRequiredForNonIndianPhone(ctx Context) bool {
	for _, field := range model.FieldsOfType(ctx.AllFormFields, model.FieldTypePhone) {
		if phone.ExtractCountryCode(ctx.FormData.Get(field.FieldKey)) != phone.DefaultCode {
			return true
		}
	}
	return false
}

// ConditionalRule validates only when when(value of dependsOn) holds.
func ConditionalRule(dependsOn string, when func(value string) bool) Rule {
	return func(ctx Context) bool {
		if when == nil {
			return true
		}
		return when(ctx.FormData.Get(dependsOn))
	}
}

// RegisterDefaults installs the email/phone rule under EmailFieldKey.
func RegisterDefaults(r *Registry) {
	r.Register(EmailFieldKey, EmailRequiredForNonIndianPhone)
}
