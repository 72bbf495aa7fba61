// Package engine composes the form registries (operators, validators,
// business rules, transformers) into one explicitly constructed value and
// hands out sessions wired to them. Nothing is registered implicitly: call
// RegisterDefaults, or use the formflow.NewEngine shortcut, to install the
// built-ins.
package engine
