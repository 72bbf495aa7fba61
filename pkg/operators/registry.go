// Package operators holds the comparison operators available to field
// visibility conditions.
package operators

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/logging"
)

// Built-in operator symbols.
const (
	Equal    = "="
	NotEqual = "!="
)

// Operator compares a field's current value against a condition value.
type Operator func(current, condition string) bool

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes unknown-operator warnings to logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry maps operator symbols to predicates. Evaluating an unknown symbol
// fails open: a warning is logged and the condition counts as satisfied, so a
// schema using an operator this build does not know still shows its fields.
type Registry struct {
	mu        sync.RWMutex
	operators map[string]Operator
	logger    logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		operators: make(map[string]Operator),
		logger:    logging.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register binds symbol to fn, replacing any previous binding. Nil functions
// and blank symbols are ignored. Symbols are matched exactly, whitespace
// included.
func (r *Registry) Register(symbol string, fn Operator) {
	if strings.TrimSpace(symbol) == "" || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators[symbol] = fn
}

// Evaluate applies the operator registered for symbol.
func (r *Registry) Evaluate(symbol, current, condition string) bool {
	r.mu.RLock()
	fn, ok := r.operators[symbol]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("operators: unknown operator, defaulting to true", "operator", symbol)
		return true
	}
	return fn(current, condition)
}

// Has reports whether symbol is registered.
func (r *Registry) Has(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.operators[symbol]
	return ok
}

// Symbols lists the registered symbols in sorted order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.operators))
	for symbol := range r.operators {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Count reports the number of registered operators.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operators)
}

// Clear removes every operator.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators = make(map[string]Operator)
}

// RegisterDefaults installs the built-in equality operators.
func RegisterDefaults(r *Registry) {
	r.Register(Equal, func(current, condition string) bool { return current == condition })
	r.Register(NotEqual, func(current, condition string) bool { return current != condition })
}
