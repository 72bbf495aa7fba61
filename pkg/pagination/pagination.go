// Package pagination groups form fields into pages and tracks the current
// page along with a short-lived navigation guard.
package pagination

import (
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-formflow/pkg/model"
)

// DefaultGuard is how long JustNavigated stays true after a page change.
const DefaultGuard = 100 * time.Millisecond

// Option customises a Paginator.
type Option func(*Paginator)

// WithGuard overrides the navigation guard window. Non-positive values
// disable the guard.
func WithGuard(d time.Duration) Option {
	return func(p *Paginator) {
		p.guard = d
	}
}

// WithClock injects the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Paginator) {
		if now != nil {
			p.now = now
		}
	}
}

// Paginator is safe for concurrent use.
type Paginator struct {
	mu          sync.RWMutex
	groups      map[int][]model.Field
	pages       []int
	current     int
	guard       time.Duration
	now         func() time.Time
	navigatedAt time.Time
}

// New groups the non-hidden fields by page number, preserving schema order
// within each page.
func New(fields []model.Field, opts ...Option) *Paginator {
	p := &Paginator{
		groups:  make(map[int][]model.Field),
		current: 1,
		guard:   DefaultGuard,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.groups = Group(fields)
	for page := range p.groups {
		p.pages = append(p.pages, page)
	}
	sort.Ints(p.pages)
	return p
}

// Group buckets non-hidden fields by PageNum.
func Group(fields []model.Field) map[int][]model.Field {
	groups := make(map[int][]model.Field)
	for _, field := range fields {
		if field.Hidden {
			continue
		}
		groups[field.PageNum] = append(groups[field.PageNum], field)
	}
	return groups
}

// CurrentPage returns the 1-based page number.
func (p *Paginator) CurrentPage() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// TotalPages counts distinct page numbers among non-hidden fields.
func (p *Paginator) TotalPages() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pages)
}

// Pages lists the page numbers present, ascending.
func (p *Paginator) Pages() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]int(nil), p.pages...)
}

// PageGroups returns a copy of the page to fields mapping.
func (p *Paginator) PageGroups() map[int][]model.Field {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[int][]model.Field, len(p.groups))
	for page, fields := range p.groups {
		out[page] = append([]model.Field(nil), fields...)
	}
	return out
}

// CurrentFields returns the fields on the current page.
func (p *Paginator) CurrentFields() []model.Field {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.Field(nil), p.groups[p.current]...)
}

// IsLastPage reports whether Next would be a no-op.
func (p *Paginator) IsLastPage() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.canAdvance()
}

// Next moves forward one page. It reports whether the page changed.
func (p *Paginator) Next() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.canAdvance() {
		return false
	}
	p.current++
	p.navigatedAt = p.now()
	return true
}

// Previous moves back one page. It reports whether the page changed.
func (p *Paginator) Previous() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current <= 1 {
		return false
	}
	p.current--
	p.navigatedAt = p.now()
	return true
}

// GoTo jumps to page when it lies within [1, TotalPages]. It reports whether
// the page changed.
func (p *Paginator) GoTo(page int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page < 1 || page > len(p.pages) || page == p.current {
		return false
	}
	p.current = page
	p.navigatedAt = p.now()
	return true
}

// JustNavigated reports whether a page change happened within the guard
// window. Submit handlers ignore submissions while this holds.
func (p *Paginator) JustNavigated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.guard <= 0 || p.navigatedAt.IsZero() {
		return false
	}
	return p.now().Sub(p.navigatedAt) < p.guard
}

// Reset returns to page 1 and clears the guard.
func (p *Paginator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = 1
	p.navigatedAt = time.Time{}
}

// canAdvance caps by both the page count and the highest page number, so
// sparse numbering never walks past the last real page.
func (p *Paginator) canAdvance() bool {
	if p.current >= len(p.pages) {
		return false
	}
	if n := len(p.pages); n > 0 && p.current >= p.pages[n-1] {
		return false
	}
	return true
}
