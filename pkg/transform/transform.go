// Package transform normalises raw form values before they leave the process.
package transform

import (
	"regexp"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Transformer maps one FormData to another. Implementations must not mutate
// their input.
type Transformer interface {
	Transform(data model.FormData) model.FormData
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(data model.FormData) model.FormData

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(data model.FormData) model.FormData {
	if fn == nil {
		return data
	}
	return fn(data)
}

// Pipeline applies transformers in registration order, each consuming the
// previous output.
type Pipeline struct {
	mu           sync.RWMutex
	transformers []Transformer
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Register appends t. Nil transformers are ignored.
func (p *Pipeline) Register(t Transformer) {
	if t == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transformers = append(p.transformers, t)
}

// RegisterFunc is shorthand for Register(TransformerFunc(fn)).
func (p *Pipeline) RegisterFunc(fn func(model.FormData) model.FormData) {
	if fn == nil {
		return
	}
	p.Register(TransformerFunc(fn))
}

// Transform folds data through every registered transformer. The input map is
// cloned first so callers can keep using it.
func (p *Pipeline) Transform(data model.FormData) model.FormData {
	p.mu.RLock()
	chain := append([]Transformer(nil), p.transformers...)
	p.mu.RUnlock()

	out := data.Clone()
	for _, t := range chain {
		out = t.Transform(out)
		if out == nil {
			out = model.FormData{}
		}
	}
	return out
}

// Count reports how many transformers are registered.
func (p *Pipeline) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.transformers)
}

// Clear removes every transformer.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transformers = nil
}

// Trim strips surrounding whitespace from every value.
var Trim = TransformerFunc(func(data model.FormData) model.FormData {
	out := make(model.FormData, len(data))
	for key, value := range data {
		out[key] = strings.TrimSpace(value)
	}
	return out
})

// SocialHandle turns bare handles stored under keys into profile URLs rooted
// at baseURL. A leading "@" is dropped and any prefix matched by cleanup is
// removed before the base is prepended. Values that still start with
// "http" after cleanup keep their original text.
func SocialHandle(keys []string, baseURL string, cleanup *regexp.Regexp) Transformer {
	targets := append([]string(nil), keys...)
	return TransformerFunc(func(data model.FormData) model.FormData {
		out := data.Clone()
		for _, key := range targets {
			raw, ok := out[key]
			if !ok {
				continue
			}
			handle := strings.TrimSpace(raw)
			if handle == "" {
				continue
			}
			handle = strings.TrimPrefix(handle, "@")
			if cleanup != nil {
				handle = cleanup.ReplaceAllString(handle, "")
			}
			if strings.HasPrefix(handle, "http") {
				continue
			}
			out[key] = baseURL + handle
		}
		return out
	})
}

// Instagram field keys and URL base used by the default pipeline.
const (
	InstagramFieldKey        = "__vecna_sees_your_instagram_id"
	PartnerInstagramFieldKey = "partner_instagram_id"
	InstagramBaseURL         = "https://www.instagram.com/"
)

var instagramPrefix = regexp.MustCompile(`(?i)^https?://(www\.)?instagram\.com/`)

// Instagram is the SocialHandle preset for the two Instagram handle fields.
func Instagram() Transformer {
	return SocialHandle(
		[]string{InstagramFieldKey, PartnerInstagramFieldKey},
		InstagramBaseURL,
		instagramPrefix,
	)
}

// RegisterDefaults installs Trim followed by the Instagram preset.
func RegisterDefaults(p *Pipeline) {
	p.Register(Trim)
	p.Register(Instagram())
}
