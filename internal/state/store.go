package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrIdentityChanged is returned when a patch would rewrite a record's id.
var ErrIdentityChanged = errors.New("patch changes record identity")

// Entity is any record with a stable identifier.
type Entity interface {
	EntityID() string
}

// Status is the fetch state of a store.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Token identifies one fetch invocation. Only the most recently issued token
// for a target may commit an outcome.
type Token struct {
	seq      uint64
	selected bool
}

// Seq returns the invocation number, useful for log correlation.
func (t Token) Seq() uint64 { return t.seq }

// Meta is the kind-agnostic part of a snapshot.
type Meta struct {
	Status              Status
	Error               string
	UpdatedAt           time.Time
	ConsecutiveFailures int
	Count               int
}

// IsOffline returns true when the API has failed the last two loads.
func (m Meta) IsOffline() bool {
	return m.ConsecutiveFailures >= 2
}

// Snapshot is a copy of a store's contents. Meta describes the collection,
// SelectedMeta the selected record.
type Snapshot[T Entity] struct {
	Meta
	Items        []T
	Selected     *T
	SelectedMeta Meta
}

// fetchState is the lifecycle of one load target.
type fetchState struct {
	status    Status
	err       string
	updatedAt time.Time
	failures  int
	seq       uint64
}

func (f *fetchState) begin() uint64 {
	f.seq++
	f.status = StatusLoading
	f.err = ""
	return f.seq
}

func (f *fetchState) ready() {
	f.status = StatusReady
	f.err = ""
	f.updatedAt = time.Now()
	f.failures = 0
}

func (f *fetchState) fail(msg string) {
	f.status = StatusFailed
	f.err = msg
	f.updatedAt = time.Now()
	f.failures++
}

func (f *fetchState) meta(count int) Meta {
	return Meta{
		Status:              f.status,
		Error:               f.err,
		UpdatedAt:           f.updatedAt,
		ConsecutiveFailures: f.failures,
		Count:               count,
	}
}

// Store caches one entity kind: an ordered collection and an optional
// selected record, each with its own fetch lifecycle.
type Store[T Entity] struct {
	mu sync.RWMutex

	items    []T
	index    map[string]int
	selected *T

	list fetchState
	sel  fetchState
}

// NewStore returns an empty store in StatusIdle.
func NewStore[T Entity]() *Store[T] {
	return &Store[T]{index: make(map[string]int)}
}

// Begin marks the collection as loading and issues a new token. Any token
// issued before it is superseded.
func (s *Store[T]) Begin() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Token{seq: s.list.begin()}
}

// BeginSelected is Begin for the selected record. The collection's status is
// not touched.
func (s *Store[T]) BeginSelected() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Token{seq: s.sel.begin(), selected: true}
}

// Latest reports whether tok is still the most recent token for its target.
func (s *Store[T]) Latest(tok Token) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestLocked(tok)
}

func (s *Store[T]) latestLocked(tok Token) bool {
	if tok.selected {
		return tok.seq == s.sel.seq
	}
	return tok.seq == s.list.seq
}

// Succeed replaces the collection with items, preserving their order. It
// returns false and changes nothing if tok has been superseded.
func (s *Store[T]) Succeed(tok Token, items []T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.selected || !s.latestLocked(tok) {
		return false
	}

	s.items = make([]T, 0, len(items))
	s.index = make(map[string]int, len(items))
	for _, item := range items {
		s.insertLocked(item)
	}
	s.list.ready()
	return true
}

// SucceedSelected sets the selected record.
func (s *Store[T]) SucceedSelected(tok Token, item T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !tok.selected || !s.latestLocked(tok) {
		return false
	}
	s.selected = &item
	s.sel.ready()
	return true
}

// Fail records msg on the target of tok and leaves the cached data in place
// so the previous table stays visible.
func (s *Store[T]) Fail(tok Token, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.latestLocked(tok) {
		return false
	}
	if tok.selected {
		s.sel.fail(msg)
	} else {
		s.list.fail(msg)
	}
	return true
}

// PatchOne merges the JSON object fields onto the record with the given id.
// Only keys present in fields change. An unknown id is a no-op and never
// inserts.
func (s *Store[T]) PatchOne(id string, fields json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[id]
	if !ok {
		return false, nil
	}
	next, err := merge(s.items[idx], fields)
	if err != nil {
		return false, err
	}
	if next.EntityID() != id {
		return false, fmt.Errorf("%w: %q -> %q", ErrIdentityChanged, id, next.EntityID())
	}
	s.items[idx] = next
	s.list.updatedAt = time.Now()
	return true, nil
}

// PatchSelected merges fields onto the selected record. It is a no-op when
// nothing is selected.
func (s *Store[T]) PatchSelected(fields json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil {
		return false, nil
	}
	cur := *s.selected
	next, err := merge(cur, fields)
	if err != nil {
		return false, err
	}
	if next.EntityID() != cur.EntityID() {
		return false, fmt.Errorf("%w: %q -> %q", ErrIdentityChanged, cur.EntityID(), next.EntityID())
	}
	s.selected = &next
	s.sel.updatedAt = time.Now()
	return true, nil
}

// Append adds a newly created record to the end of the collection. A record
// whose id is already cached replaces it in place.
func (s *Store[T]) Append(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if idx, ok := s.index[item.EntityID()]; ok {
		s.items[idx] = item
	} else {
		s.insertLocked(item)
	}
	s.list.updatedAt = time.Now()
}

// Get returns the cached record with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.items[idx], true
}

// Meta returns the collection's status without copying it.
func (s *Store[T]) Meta() Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.meta(len(s.items))
}

// SelectedMeta returns the selected record's status. Count is 1 when a
// record is selected.
func (s *Store[T]) SelectedMeta() Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedMetaLocked()
}

func (s *Store[T]) selectedMetaLocked() Meta {
	n := 0
	if s.selected != nil {
		n = 1
	}
	return s.sel.meta(n)
}

// Snapshot returns a copy of the store.
func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot[T]{Meta: s.list.meta(len(s.items)), SelectedMeta: s.selectedMetaLocked()}
	if len(s.items) > 0 {
		snap.Items = make([]T, len(s.items))
		copy(snap.Items, s.items)
	}
	if s.selected != nil {
		sel := *s.selected
		snap.Selected = &sel
	}
	return snap
}

// insertLocked appends item, replacing an earlier row with the same id so
// the index stays one-to-one.
func (s *Store[T]) insertLocked(item T) {
	id := item.EntityID()
	if idx, ok := s.index[id]; ok {
		s.items[idx] = item
		return
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, item)
}

func merge[T any](cur T, fields json.RawMessage) (T, error) {
	next := cur
	if err := json.Unmarshal(fields, &next); err != nil {
		return cur, fmt.Errorf("merge fields: %w", err)
	}
	return next, nil
}
