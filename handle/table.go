package handle

import (
	"sync"
)

// ID is an opaque reference to a value in a Table.
// ID 0 is reserved and always invalid.
type ID int64

// Dropper is optionally implemented by stored values that need cleanup
// when they are removed from their table.
type Dropper interface {
	Drop()
}

// Table maps integer handles to values of a single resource kind.
// Allocation is a monotonically increasing counter, so a removed id
// reliably fails later lookups instead of aliasing a newer value.
// All operations are safe for concurrent use.
type Table[T any] struct {
	mu      sync.Mutex
	entries map[ID]T
	next    ID
}

// NewTable creates an empty table. The first Insert returns id 1.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries: make(map[ID]T, 16),
		next:    1,
	}
}

// PeekNextID returns the id the next Insert call will allocate, without
// mutating the table. Callers use it to build self-referencing values
// before registering them.
func (t *Table[T]) PeekNextID() ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}

// Insert stores a value under a freshly allocated id.
func (t *Table[T]) Insert(value T) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	t.entries[id] = value
	return id
}

// Get retrieves a value by id. An absent id yields (zero, false).
func (t *Table[T]) Get(id ID) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries[id]
	return v, ok
}

// Remove detaches a value and returns it, running Drop() on values that
// implement Dropper. Removing an absent id yields (zero, false).
func (t *Table[T]) Remove(id ID) (T, bool) {
	t.mu.Lock()
	v, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		var zero T
		return zero, false
	}
	if d, isDropper := any(v).(Dropper); isDropper {
		d.Drop()
	}
	return v, true
}

// Detach removes a value without running its Drop cleanup. Used when the
// value's lifecycle ends some other way, such as normal delivery.
func (t *Table[T]) Detach(id ID) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(t.entries, id)
	return v, true
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Each iterates over all live entries. Return false to stop early.
// The callback must not call back into the table.
func (t *Table[T]) Each(fn func(ID, T) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, v := range t.entries {
		if !fn(id, v) {
			return
		}
	}
}

// Clear removes every entry, running Drop cleanup on each. The id counter
// is not reset, so ids allocated after Clear never alias cleared ones.
func (t *Table[T]) Clear() {
	t.mu.Lock()
	removed := make([]T, 0, len(t.entries))
	for id, v := range t.entries {
		removed = append(removed, v)
		delete(t.entries, id)
	}
	t.mu.Unlock()

	for _, v := range removed {
		if d, ok := any(v).(Dropper); ok {
			d.Drop()
		}
	}
}
