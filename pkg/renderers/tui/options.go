package tui

import (
	"time"

	"github.com/goliatone/go-formflow/pkg/logging"
)

// Theme captures optional prefixes the filler applies to printed messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// DefaultMaxAttempts bounds how many failed page or submit attempts a fill
// tolerates before giving up.
const DefaultMaxAttempts = 5

// Option configures the Filler.
type Option func(*Filler)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithRegistry replaces the default prompter registry.
func WithRegistry(reg *Registry) Option {
	return func(f *Filler) {
		if reg != nil {
			f.registry = reg
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(f *Filler) {
		f.theme = theme
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts. Non-positive values are
// ignored.
func WithMaxAttempts(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithGuardWait sets how long to pause when a submit lands inside the
// navigation guard window.
func WithGuardWait(d time.Duration) Option {
	return func(f *Filler) {
		if d >= 0 {
			f.guardWait = d
		}
	}
}
