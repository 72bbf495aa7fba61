// Package schema loads event documents (the form schema plus ticket
// metadata) from disk, an embedded filesystem, or a URL. Documents may be
// JSON or YAML, and may be either a bare event or the API envelope that wraps
// it under "response".
package schema

import (
	"context"
	"errors"
	"fmt"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Parse decodes doc into an Event.
func Parse(doc Document) (model.Event, error) {
	raw := doc.Raw()
	if doc.Format() == FormatYAML {
		converted, err := yamlToJSON(raw)
		if err != nil {
			return model.Event{}, fmt.Errorf("schema: parse %s: %w", doc.Location(), err)
		}
		raw = converted
	}

	var probe struct {
		Response j.RawMessage `json:"response"`
		Form     j.RawMessage `json:"form"`
	}
	if err := j.Unmarshal(raw, &probe); err != nil {
		return model.Event{}, fmt.Errorf("schema: parse %s: %w", doc.Location(), err)
	}
	if len(probe.Form) == 0 && len(probe.Response) > 0 && string(probe.Response) != "null" {
		raw = probe.Response
	}

	var event model.Event
	if err := j.Unmarshal(raw, &event); err != nil {
		return model.Event{}, fmt.Errorf("schema: parse %s: %w", doc.Location(), err)
	}
	if len(event.Form) == 0 {
		return model.Event{}, fmt.Errorf("schema: parse %s: %w", doc.Location(), ErrNoFields)
	}
	return event, nil
}

// ErrNoFields reports a document without a form.
var ErrNoFields = errors.New("schema: document has no form fields")

// LoadEvent loads and parses src in one step.
func (l *Loader) LoadEvent(ctx context.Context, src Source) (model.Event, error) {
	doc, err := l.Load(ctx, src)
	if err != nil {
		return model.Event{}, err
	}
	return Parse(doc)
}

// yamlToJSON re-encodes YAML as JSON so both formats share the JSON
// decoders on the model types.
func yamlToJSON(raw []byte) ([]byte, error) {
	var node any
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	return j.Marshal(normalizeYAML(node))
}

func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	default:
		return v
	}
}
