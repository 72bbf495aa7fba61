package html

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formflow/pkg/fields"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/phone"
	rendertemplate "github.com/goliatone/go-formflow/pkg/render/template"
)

// CodeSuffix is appended to a phone field's key to name its dial-code select.
const CodeSuffix = "__code"

// FieldContext carries the per-field state and helpers a FieldRenderer needs.
type FieldContext struct {
	Value    string
	Error    string
	Values   model.FormData
	Template rendertemplate.TemplateRenderer
	Partials map[string]string
}

// FieldRenderer writes the markup for one field.
type FieldRenderer interface {
	RenderField(buf *bytes.Buffer, field model.Field, ctx FieldContext) error
}

// FieldRendererFunc adapts a function to FieldRenderer.
type FieldRendererFunc func(buf *bytes.Buffer, field model.Field, ctx FieldContext) error

// RenderField calls fn.
func (fn FieldRendererFunc) RenderField(buf *bytes.Buffer, field model.Field, ctx FieldContext) error {
	return fn(buf, field, ctx)
}

// Registry maps field type tags (and field key overrides) to renderers.
type Registry = fields.Registry[FieldRenderer]

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return fields.NewRegistry[FieldRenderer]()
}

// Partial keys a theme can override.
const (
	PartialInput    = "fields.input"
	PartialTextarea = "fields.textarea"
	PartialSelect   = "fields.select"
	PartialRadio    = "fields.radio"
	PartialCheckbox = "fields.checkbox"
	PartialPhone    = "fields.phone"
)

// RegisterDefaults installs template-backed renderers for the built-in
// field types.
func RegisterDefaults(reg *Registry) {
	reg.RegisterMultiple(
		[]string{model.FieldTypeText, model.FieldTypeEmail, model.FieldTypeNumber, model.FieldTypeURL},
		TemplateField(PartialInput, "fields/input", inputExtras),
	)
	reg.Register(model.FieldTypePhone, TemplateField(PartialPhone, "fields/phone", phoneExtras))
	reg.Register(model.FieldTypeRadio, TemplateField(PartialRadio, "fields/radio", optionExtras))
	reg.Register(model.FieldTypeCheckbox, TemplateField(PartialCheckbox, "fields/checkbox", nil))
	reg.Register(model.FieldTypeTextarea, TemplateField(PartialTextarea, "fields/textarea", nil))
	reg.RegisterMultiple(
		[]string{model.FieldTypeSelect, model.FieldTypeDropdown},
		TemplateField(PartialSelect, "fields/select", optionExtras),
	)
}

// TemplateField renders templateName with the field, its value and error.
// A theme partial registered under partialKey replaces templateName. extra
// may add template variables.
func TemplateField(partialKey, templateName string, extra func(model.Field, FieldContext) map[string]any) FieldRenderer {
	return FieldRendererFunc(func(buf *bytes.Buffer, field model.Field, ctx FieldContext) error {
		if ctx.Template == nil {
			return fmt.Errorf("html: template renderer not configured for %q", templateName)
		}
		resolved := templateName
		if candidate := strings.TrimSpace(ctx.Partials[partialKey]); candidate != "" {
			resolved = candidate
		}

		payload := map[string]any{
			"field":            field,
			"value":            ctx.Value,
			"error":            ctx.Error,
			"description_html": SanitizeDescription(field.Description),
		}
		if extra != nil {
			for key, value := range extra(field, ctx) {
				payload[key] = value
			}
		}

		rendered, err := ctx.Template.RenderTemplate(resolved, payload)
		if err != nil {
			return fmt.Errorf("html: render %q: %w", resolved, err)
		}
		buf.WriteString(rendered)
		return nil
	})
}

func inputExtras(field model.Field, _ FieldContext) map[string]any {
	inputType := "text"
	switch field.Type {
	case model.FieldTypeEmail, model.FieldTypeNumber, model.FieldTypeURL:
		inputType = field.Type
	}
	return map[string]any{"input_type": inputType}
}

func optionExtras(field model.Field, _ FieldContext) map[string]any {
	return map[string]any{"options": field.OptionValues()}
}

func phoneExtras(_ model.Field, ctx FieldContext) map[string]any {
	return map[string]any{
		"dial_codes":   phone.Codes(),
		"dial_code":    phone.ExtractCountryCode(ctx.Value),
		"local_number": phone.RemoveCountryCode(ctx.Value),
		"code_suffix":  CodeSuffix,
	}
}

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

// SanitizeDescription strips everything but basic formatting and links from
// server-supplied description markup.
func SanitizeDescription(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(descriptionSanitizer().Sanitize(trimmed))
}

func descriptionSanitizer() *bluemonday.Policy {
	descriptionPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "u", "br", "p", "span", "ul", "ol", "li")
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowStandardURLs()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		descriptionPolicy = policy
	})
	return descriptionPolicy
}
