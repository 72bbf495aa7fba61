// Package fields maps field type tags onto renderer implementations. The
// registry is generic over the renderer type so the HTML and terminal front
// ends can share the lookup rules while keeping their own renderer contracts.
package fields

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Registry stores renderers by type tag plus optional per-field-key overrides.
// The last registration for a tag wins. Lookups on unknown tags report false;
// callers treat that as "render nothing".
type Registry[R any] struct {
	mu        sync.RWMutex
	renderers map[string]R
	overrides map[string]R
}

// NewRegistry creates an empty registry. Defaults are registered explicitly by
// the renderer packages so tests can start from a clean slate.
func NewRegistry[R any]() *Registry[R] {
	return &Registry[R]{
		renderers: make(map[string]R),
		overrides: make(map[string]R),
	}
}

// Register associates renderer with a type tag. Blank tags are ignored.
func (r *Registry[R]) Register(fieldType string, renderer R) {
	tag := normalize(fieldType)
	if tag == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[tag] = renderer
}

// RegisterMultiple associates the same renderer with several type tags.
func (r *Registry[R]) RegisterMultiple(fieldTypes []string, renderer R) {
	for _, fieldType := range fieldTypes {
		r.Register(fieldType, renderer)
	}
}

// Override binds a renderer to a specific field key. Overrides win over the
// type tag during Resolve.
func (r *Registry[R]) Override(fieldKey string, renderer R) {
	key := strings.TrimSpace(fieldKey)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[key] = renderer
}

// Get returns the renderer registered for a type tag.
func (r *Registry[R]) Get(fieldType string) (R, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[normalize(fieldType)]
	return renderer, ok
}

// Has reports whether a renderer exists for the type tag.
func (r *Registry[R]) Has(fieldType string) bool {
	_, ok := r.Get(fieldType)
	return ok
}

// Resolve picks the renderer for a field: a field-key override first, then the
// field's type tag.
func (r *Registry[R]) Resolve(field model.Field) (R, bool) {
	r.mu.RLock()
	if renderer, ok := r.overrides[strings.TrimSpace(field.FieldKey)]; ok {
		r.mu.RUnlock()
		return renderer, true
	}
	r.mu.RUnlock()
	return r.Get(field.Type)
}

// Types returns the registered type tags in sorted order.
func (r *Registry[R]) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count reports the number of registered type tags.
func (r *Registry[R]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.renderers)
}

// Clear drops every registration, including overrides.
func (r *Registry[R]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers = make(map[string]R)
	r.overrides = make(map[string]R)
}

// Type tags are case-insensitive: schemas ship both "textarea" and "textArea".
func normalize(fieldType string) string {
	return strings.ToLower(strings.TrimSpace(fieldType))
}
