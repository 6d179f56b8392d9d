package coro

import "fmt"

// EntryID identifies one entry in a [World].
type EntryID uint64

// World is the contract the scheduler needs from the host's data store.
//
// The scheduler never holds a reference into a World across a suspension
// point; values are re-resolved through this interface on every access from
// a borrow window.
//
// The version of an entry is a per-entry counter that the host must advance
// by one on every mutation of that entry. [Mut.Set] mutates through Store,
// and Store implementations must count it like any other mutation.
// The scheduler only ever reads versions. A host is allowed to reset
// counters at boundaries of its own choosing; the scheduler tolerates that.
type World interface {
	// Load returns the value stored under id.
	Load(id EntryID) (any, bool)

	// Store replaces the value stored under id and advances its version.
	Store(id EntryID, v any)

	// Version reports the change version of the entry stored under id.
	Version(id EntryID) (uint64, bool)
}

// A MapWorld is an in-memory [World], suitable for tests and for hosts that
// do not already have a keyed store of their own.
//
// A MapWorld must not be shared by more than one goroutine without external
// synchronization.
type MapWorld struct {
	next    EntryID
	entries map[EntryID]*mapEntry
}

type mapEntry struct {
	value   any
	version uint64
}

// NewMapWorld creates an empty [MapWorld].
func NewMapWorld() *MapWorld {
	return &MapWorld{entries: make(map[EntryID]*mapEntry)}
}

// Insert stores v under a fresh [EntryID] and returns that id.
// The new entry starts at version zero.
func (w *MapWorld) Insert(v any) EntryID {
	id := w.next
	w.next++
	w.entries[id] = &mapEntry{value: v}
	return id
}

// Load implements [World].
func (w *MapWorld) Load(id EntryID) (any, bool) {
	ent, ok := w.entries[id]
	if !ok {
		return nil, false
	}
	return ent.value, true
}

// Store implements [World]. Storing under an unknown id creates the entry.
// Every Store advances the entry's version by one.
func (w *MapWorld) Store(id EntryID, v any) {
	ent, ok := w.entries[id]
	if !ok {
		ent = &mapEntry{}
		w.entries[id] = ent
		if id >= w.next {
			w.next = id + 1
		}
	}
	ent.value = v
	ent.version++
}

// Version implements [World].
func (w *MapWorld) Version(id EntryID) (uint64, bool) {
	ent, ok := w.entries[id]
	if !ok {
		return 0, false
	}
	return ent.version, true
}

// Remove deletes the entry stored under id, if any.
// Coroutines waiting on a change of a removed entry stay suspended; removal
// is not a change.
func (w *MapWorld) Remove(id EntryID) {
	delete(w.entries, id)
}

// Len reports the number of entries.
func (w *MapWorld) Len() int {
	return len(w.entries)
}

func (id EntryID) String() string {
	return fmt.Sprintf("entry(%d)", uint64(id))
}
