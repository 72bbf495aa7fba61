package tui

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formflow/pkg/fields"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/phone"
)

// Prompter asks for one field's value. current is the value already held by
// the session and is offered as the default.
type Prompter interface {
	Prompt(ctx context.Context, driver PromptDriver, field model.Field, current string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, driver PromptDriver, field model.Field, current string) (string, error)

// Prompt calls fn.
func (fn PrompterFunc) Prompt(ctx context.Context, driver PromptDriver, field model.Field, current string) (string, error) {
	return fn(ctx, driver, field, current)
}

// Registry maps field types (and field key overrides) to prompters.
type Registry = fields.Registry[Prompter]

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return fields.NewRegistry[Prompter]()
}

// RegisterDefaults installs prompters for the built-in field types.
func RegisterDefaults(reg *Registry) {
	reg.RegisterMultiple(
		[]string{model.FieldTypeText, model.FieldTypeEmail, model.FieldTypeNumber, model.FieldTypeURL},
		PrompterFunc(promptInput),
	)
	reg.Register(model.FieldTypePhone, PrompterFunc(promptPhone))
	reg.RegisterMultiple(
		[]string{model.FieldTypeRadio, model.FieldTypeSelect, model.FieldTypeDropdown},
		PrompterFunc(promptChoice),
	)
	reg.Register(model.FieldTypeCheckbox, PrompterFunc(promptCheckbox))
	reg.Register(model.FieldTypeTextarea, PrompterFunc(promptTextArea))
}

func promptInput(ctx context.Context, driver PromptDriver, field model.Field, current string) (string, error) {
	return driver.Input(ctx, InputConfig{
		Message: label(field),
		Default: current,
		Help:    help(field),
	})
}

func promptTextArea(ctx context.Context, driver PromptDriver, field model.Field, current string) (string, error) {
	return driver.TextArea(ctx, TextAreaConfig{
		Message: label(field),
		Default: current,
		Help:    help(field),
	})
}

func promptCheckbox(ctx context.Context, driver PromptDriver, field model.Field, current string) (string, error) {
	ok, err := driver.Confirm(ctx, ConfirmConfig{
		Message: label(field),
		Default: current == "true",
		Help:    help(field),
	})
	if err != nil {
		return "", err
	}
	if ok {
		return "true", nil
	}
	return "false", nil
}

// promptChoice falls back to free text when the field carries no options.
func promptChoice(ctx context.Context, driver PromptDriver, field model.Field, current string) (string, error) {
	options := field.OptionValues()
	if len(options) == 0 {
		return promptInput(ctx, driver, field, current)
	}
	idx, err := driver.Select(ctx, SelectConfig{
		Message:      label(field),
		Options:      options,
		DefaultIndex: indexOf(options, current),
		Help:         help(field),
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		return "", fmt.Errorf("tui: selection %d out of range for %q", idx, field.FieldKey)
	}
	return options[idx], nil
}

// promptPhone asks for the dialing code first, then the local number, and
// stores them joined.
func promptPhone(ctx context.Context, driver PromptDriver, field model.Field, current string) (string, error) {
	countries := phone.Codes()
	options := make([]string, len(countries))
	defaultIdx := -1
	code := phone.ExtractCountryCode(current)
	for i, country := range countries {
		options[i] = country.Code + " " + country.DialCode
		if defaultIdx < 0 && country.DialCode == code {
			defaultIdx = i
		}
	}

	idx, err := driver.Select(ctx, SelectConfig{
		Message:      label(field) + " (country code)",
		Options:      options,
		DefaultIndex: defaultIdx,
		PageSize:     10,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(countries) {
		return "", fmt.Errorf("tui: dial code selection %d out of range", idx)
	}

	number, err := driver.Input(ctx, InputConfig{
		Message: label(field),
		Default: phone.RemoveCountryCode(current),
		Help:    help(field),
	})
	if err != nil {
		return "", err
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return "", nil
	}
	return phone.Combine(countries[idx].DialCode, number), nil
}

func label(field model.Field) string {
	title := strings.TrimSpace(field.Title)
	if title == "" {
		title = field.FieldKey
	}
	if field.Required {
		title += " *"
	}
	return title
}

var (
	plainTextOnce   sync.Once
	plainTextPolicy *bluemonday.Policy
)

// help renders the field description and placeholder as plain text.
func help(field model.Field) string {
	plainTextOnce.Do(func() {
		plainTextPolicy = bluemonday.StrictPolicy()
	})
	var parts []string
	if desc := strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(field.Description))); desc != "" {
		parts = append(parts, desc)
	}
	if placeholder := strings.TrimSpace(field.Placeholder); placeholder != "" {
		parts = append(parts, "e.g. "+placeholder)
	}
	return strings.Join(parts, " ")
}
