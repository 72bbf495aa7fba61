// Package html renders a form session as server-side HTML using pongo2
// templates. Field markup is resolved per field through a type registry, so
// callers can swap the renderer for a single type or a single field key.
package html

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/logging"
	"github.com/goliatone/go-formflow/pkg/model"
	rendertemplate "github.com/goliatone/go-formflow/pkg/render/template"
	"github.com/goliatone/go-formflow/pkg/render/template/pongo"
	"github.com/goliatone/go-formflow/pkg/session"
)

//go:embed templates/*.tmpl templates/fields/*.tmpl
var embeddedTemplates embed.FS

//go:embed assets/*.css
var embeddedAssets embed.FS

// Asset key passed to the theme's AssetURL to locate the stylesheet.
const StylesheetAsset = "formflow.css"

const (
	pageTemplate         = "page"
	confirmationTemplate = "confirmation"
)

// TemplatesFS exposes the bundled templates rooted at the templates directory.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic("html: embedded templates missing: " + err.Error())
	}
	return sub
}

// AssetsFS exposes the bundled stylesheet, named StylesheetAsset.
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		panic("html: embedded assets missing: " + err.Error())
	}
	return sub
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRegistry replaces the default field registry.
func WithRegistry(reg *Registry) Option {
	return func(r *Renderer) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithTemplateRenderer replaces the bundled pongo2 engine.
func WithTemplateRenderer(tr rendertemplate.TemplateRenderer) Option {
	return func(r *Renderer) {
		if tr != nil {
			r.templates = tr
		}
	}
}

// WithTemplatesDir loads templates from dir, falling back to the bundled set
// for anything dir does not provide.
func WithTemplatesDir(dir string) Option {
	return func(r *Renderer) {
		r.templatesDir = strings.TrimSpace(dir)
	}
}

// WithTheme applies a go-theme renderer configuration.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(r *Renderer) {
		r.theme = cfg
	}
}

// WithLogger sets the logger used for skipped fields.
func WithLogger(logger logging.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer renders pages and confirmations.
type Renderer struct {
	registry     *Registry
	templates    rendertemplate.TemplateRenderer
	templatesDir string
	theme        *theme.RendererConfig
	logger       logging.Logger
}

// New builds a Renderer. Without WithRegistry the built-in field renderers
// are registered.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.registry == nil {
		r.registry = NewRegistry()
		RegisterDefaults(r.registry)
	}
	if r.templates == nil {
		engineOpts := []pongo.Option{pongo.WithFS(TemplatesFS())}
		if r.templatesDir != "" {
			engineOpts = append(engineOpts, pongo.WithBaseDir(r.templatesDir))
		}
		engine, err := pongo.New(engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("html: template engine: %w", err)
		}
		r.templates = engine
	}
	return r, nil
}

// Registry returns the field registry so callers can add overrides.
func (r *Renderer) Registry() *Registry { return r.registry }

// PageView is everything needed to draw one form page.
type PageView struct {
	Event       model.Event
	Fields      []model.Field
	Values      model.FormData
	Errors      map[string]string
	Notice      string
	CurrentPage int
	TotalPages  int
	IsLastPage  bool
	Submitting  bool
	Action      string
}

// PageFromSession snapshots the session's current page. action is the URL
// the form posts back to.
func PageFromSession(s *session.Session, action string) PageView {
	return PageView{
		Event:       s.Event(),
		Fields:      s.VisibleFields(),
		Values:      s.Values(),
		Errors:      s.Errors(),
		Notice:      s.Notice(),
		CurrentPage: s.CurrentPage(),
		TotalPages:  s.TotalPages(),
		IsLastPage:  s.IsLastPage(),
		Submitting:  s.State() == session.StateSubmitting,
		Action:      action,
	}
}

// RenderFields renders each field through the registry. Fields with no
// registered renderer are skipped.
func (r *Renderer) RenderFields(fields []model.Field, values model.FormData, errs map[string]string) ([]string, error) {
	partials := r.partials()
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		fr, ok := r.registry.Resolve(field)
		if !ok {
			r.logger.Debug("no renderer for field", "field_key", field.FieldKey, "type", field.Type)
			continue
		}
		var buf bytes.Buffer
		err := fr.RenderField(&buf, field, FieldContext{
			Value:    values.Get(field.FieldKey),
			Error:    errs[field.FieldKey],
			Values:   values,
			Template: r.templates,
			Partials: partials,
		})
		if err != nil {
			return nil, fmt.Errorf("html: field %q: %w", field.FieldKey, err)
		}
		out = append(out, buf.String())
	}
	return out, nil
}

// RenderPage writes a full HTML document for view.
func (r *Renderer) RenderPage(w io.Writer, view PageView) error {
	if w == nil {
		return errors.New("html: nil writer")
	}
	markup, err := r.RenderFields(view.Fields, view.Values, view.Errors)
	if err != nil {
		return err
	}
	data := r.baseContext(view.Event)
	data["closed"] = view.Event.CloseForm
	data["action"] = view.Action
	data["current_page"] = view.CurrentPage
	data["total_pages"] = view.TotalPages
	data["is_last_page"] = view.IsLastPage
	data["submitting"] = view.Submitting
	data["notice"] = view.Notice
	data["fields_html"] = markup

	_, err = r.templates.RenderTemplate(r.template(pageTemplate), data, w)
	return err
}

// RenderConfirmation writes the post-submission page.
func (r *Renderer) RenderConfirmation(w io.Writer, event model.Event, resp *client.SubmitResponse) error {
	if w == nil {
		return errors.New("html: nil writer")
	}
	data := r.baseContext(event)
	if resp != nil {
		data["response"] = resp
	}
	_, err := r.templates.RenderTemplate(r.template(confirmationTemplate), data, w)
	return err
}

func (r *Renderer) baseContext(event model.Event) map[string]any {
	data := map[string]any{
		"event": map[string]any{
			"id":    event.ID,
			"name":  event.Name,
			"title": event.Title,
			"place": event.Place,
			"logo":  event.Logo,
		},
	}
	if r.theme == nil {
		return data
	}
	data["theme"] = map[string]any{
		"name":    r.theme.Theme,
		"variant": r.theme.Variant,
		"tokens":  r.theme.Tokens,
	}
	data["css_vars"] = cssVarsStyle(r.theme.CSSVars)
	if r.theme.AssetURL != nil {
		data["stylesheet"] = r.theme.AssetURL(StylesheetAsset)
	}
	return data
}

func (r *Renderer) partials() map[string]string {
	if r.theme == nil {
		return nil
	}
	return r.theme.Partials
}

// template lets a theme partial replace a page-level template.
func (r *Renderer) template(name string) string {
	if candidate := strings.TrimSpace(r.partials()[name]); candidate != "" {
		return candidate
	}
	return name
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteByte(';')
	}
	return b.String()
}
