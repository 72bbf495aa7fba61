package formflow

import "github.com/goliatone/go-formflow/pkg/schema"

// NewLoader constructs an event document loader.
func NewLoader(options ...schema.LoaderOption) *schema.Loader {
	return schema.NewLoader(options...)
}

// ParseEvent decodes a pre-loaded document.
func ParseEvent(doc schema.Document) (Event, error) {
	return schema.Parse(doc)
}
