package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource table closed")

// Table maps handles to values.
//
// Handles are never reused within a table, so a stale handle can only miss;
// it never reaches a newer value.
type Table struct {
	entries   map[Handle]entry
	observers []Observer
	next      Handle
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	value any
	kind  Kind
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[Handle]entry)}
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(kind Kind, value any) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}
	t.next++
	h := t.next
	t.entries[h] = entry{value: value, kind: kind}
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Kind: kind, Value: value})
	return h, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[h]
	return e.value, ok
}

// GetTyped retrieves a value only if it has the expected kind.
func (t *Table) GetTyped(h Handle, kind Kind) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[h]
	if !ok || e.kind != kind {
		return nil, false
	}
	return e.value, true
}

// Remove drops a value and returns (value, true) if it was present.
// A Dropper value is dropped before Remove returns.
func (t *Table) Remove(h Handle) (any, bool) {
	t.mu.Lock()
	e, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	t.mu.Unlock()
	if !ok {
		return nil, false
	}

	if d, ok := e.value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: h, Kind: e.kind, Value: e.value})
	return e.value, true
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Each calls fn for every live handle in ascending order until fn returns
// false.
func (t *Table) Each(fn func(Handle, Kind, any) bool) {
	t.mu.RLock()
	handles := t.handlesLocked()
	entries := make([]entry, len(handles))
	for i, h := range handles {
		entries[i] = t.entries[h]
	}
	t.mu.RUnlock()

	for i, h := range handles {
		if !fn(h, entries[i].kind, entries[i].value) {
			return
		}
	}
}

func (t *Table) handlesLocked() []Handle {
	handles := make([]Handle, 0, len(t.entries))
	for h := Handle(1); h <= t.next && len(handles) < len(t.entries); h++ {
		if _, ok := t.entries[h]; ok {
			handles = append(handles, h)
		}
	}
	return handles
}

// Clear removes every handle.
func (t *Table) Clear() {
	t.mu.RLock()
	handles := t.handlesLocked()
	t.mu.RUnlock()
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close removes every handle and stops accepting inserts.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	observers := t.observers
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.OnResourceEvent(e)
	}
}

// Typed is a view of a table restricted to one kind.
type Typed[T any] struct {
	table *Table
	kind  Kind
}

// NewTyped returns a typed view of t for kind.
func NewTyped[T any](t *Table, kind Kind) *Typed[T] {
	return &Typed[T]{table: t, kind: kind}
}

// Insert adds a value and returns its handle.
func (tt *Typed[T]) Insert(v T) (Handle, error) {
	return tt.table.Insert(tt.kind, v)
}

// Get retrieves a value by handle.
func (tt *Typed[T]) Get(h Handle) (T, bool) {
	v, ok := tt.table.GetTyped(h, tt.kind)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Remove drops a value of this kind.
func (tt *Typed[T]) Remove(h Handle) (T, bool) {
	var zero T
	if _, ok := tt.table.GetTyped(h, tt.kind); !ok {
		return zero, false
	}
	v, ok := tt.table.Remove(h)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Len returns the number of live handles of this kind.
func (tt *Typed[T]) Len() int {
	n := 0
	tt.Each(func(Handle, T) bool {
		n++
		return true
	})
	return n
}

// Each iterates over live handles of this kind.
func (tt *Typed[T]) Each(fn func(Handle, T) bool) {
	tt.table.Each(func(h Handle, kind Kind, v any) bool {
		if kind != tt.kind {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}
