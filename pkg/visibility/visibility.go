// Package visibility decides whether a field's declared condition currently
// holds. Malformed or dangling conditions fail open: the field stays visible
// and validatable rather than silently disappearing on schema drift.
package visibility

import (
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/operators"
)

// Checker determines whether a field is active given the current form data.
type Checker interface {
	Check(field model.Field, data model.FormData, all []model.Field) bool
}

// CheckerFunc adapts a function into a Checker.
type CheckerFunc func(field model.Field, data model.FormData, all []model.Field) bool

// Check delegates to the underlying function.
func (fn CheckerFunc) Check(field model.Field, data model.FormData, all []model.Field) bool {
	return fn(field, data, all)
}

// Evaluator resolves a condition's reference field and compares its current
// value through the operator registry.
type Evaluator struct {
	operators *operators.Registry
}

var _ Checker = (*Evaluator)(nil)

// New returns an Evaluator backed by ops. A nil registry behaves like an empty
// one, so every condition passes.
func New(ops *operators.Registry) *Evaluator {
	if ops == nil {
		ops = operators.NewRegistry()
	}
	return &Evaluator{operators: ops}
}

// Check evaluates field.Conditions against data. It is pure given its inputs.
func (e *Evaluator) Check(field model.Field, data model.FormData, all []model.Field) bool {
	cond := field.Conditions
	if cond.IsZero() {
		return true
	}
	if cond.Field == "" || cond.Value == "" {
		return true
	}

	referenced, ok := model.FindByID(all, cond.Field)
	if !ok {
		return true
	}

	return e.operators.Evaluate(cond.Operator, data.Get(referenced.FieldKey), cond.Value)
}

// Filter returns the subset of fields whose conditions hold, in order.
func (e *Evaluator) Filter(fields []model.Field, data model.FormData, all []model.Field) []model.Field {
	out := make([]model.Field, 0, len(fields))
	for _, field := range fields {
		if e.Check(field, data, all) {
			out = append(out, field)
		}
	}
	return out
}
