package query

import (
	"strings"
	"sync"
	"time"
)

// Composer owns one view's Query and reports effective changes through emit.
// Filter changes emit immediately, search changes are debounced and page
// changes never emit.
type Composer struct {
	mu      sync.Mutex
	q       Query
	pending string
	emit    func(Query)
	search  *Debouncer
	stopped bool
}

// Option customises a Composer.
type Option func(*composerOptions)

type composerOptions struct {
	wait    time.Duration
	after   AfterFunc
	initial *Query
}

// WithDebounce sets the search quiet window.
func WithDebounce(d time.Duration) Option {
	return func(o *composerOptions) { o.wait = d }
}

// WithAfterFunc replaces the timer source.
func WithAfterFunc(after AfterFunc) Option {
	return func(o *composerOptions) { o.after = after }
}

// WithInitial starts the composer from q instead of New().
func WithInitial(q Query) Option {
	return func(o *composerOptions) { o.initial = &q }
}

// NewComposer returns a Composer that calls emit with a copy of the query
// each time the effective remote query changes. emit runs on the caller's
// goroutine for filters and on a timer goroutine for search.
func NewComposer(emit func(Query), opts ...Option) *Composer {
	o := composerOptions{wait: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	q := New()
	if o.initial != nil {
		q = o.initial.Clone()
	}
	if emit == nil {
		emit = func(Query) {}
	}
	return &Composer{
		q:       q,
		pending: q.Search,
		emit:    emit,
		search:  NewDebouncer(o.wait, o.after),
	}
}

// Query returns a copy of the committed query.
func (c *Composer) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.q.Clone()
}

// PendingSearch returns the latest search text, committed or not.
func (c *Composer) PendingSearch() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// SetFilter sets or, with an empty value, removes a filter and emits at once.
// The page returns to 1.
func (c *Composer) SetFilter(key, value string) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return
	}

	c.mu.Lock()
	if c.stopped || c.q.Filters[key] == value {
		c.mu.Unlock()
		return
	}
	if value == "" {
		delete(c.q.Filters, key)
	} else {
		c.q.Filters[key] = value
	}
	c.q.Page = 1
	out := c.q.Clone()
	c.mu.Unlock()

	c.emit(out)
}

// SetSearch records text and schedules a single emission after the quiet
// window. Each call replaces the previously scheduled one.
func (c *Composer) SetSearch(text string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.pending = text
	c.mu.Unlock()

	c.search.Trigger(c.commitSearch)
}

func (c *Composer) commitSearch() {
	c.mu.Lock()
	if c.stopped || strings.TrimSpace(c.pending) == strings.TrimSpace(c.q.Search) {
		c.mu.Unlock()
		return
	}
	c.q.Search = c.pending
	c.q.Page = 1
	out := c.q.Clone()
	c.mu.Unlock()

	c.emit(out)
}

// SetPage moves to page n. It only changes client-side slicing and never
// emits.
func (c *Composer) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.q.Page = n
	c.mu.Unlock()
}

// Stop cancels any pending search emission. Later calls are ignored.
func (c *Composer) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.search.Cancel()
}
