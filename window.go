package coro

import "fmt"

// A window is a lease on one world entry, granted when a grab resolves and
// revoked when the run segment that received it ends. Nothing a coroutine
// can do keeps a window alive across a suspension point: the typed views
// re-check validity on every access instead of caching anything from the
// world.
type window struct {
	f         *Fib
	step      uint64
	id        EntryID
	exclusive bool
	open      bool
}

func (f *Fib) openWindow(id EntryID, exclusive bool) *window {
	e := f.exec
	if _, ok := e.world.Load(id); !ok {
		panic(fmt.Sprintf("coro: grab of missing %v", id))
	}
	ref := e.borrows[id]
	if ref.exclusive > 0 || (exclusive && ref.shared > 0) {
		panic(fmt.Sprintf("coro: conflicting borrow of %v", id))
	}
	if exclusive {
		ref.exclusive++
	} else {
		ref.shared++
	}
	e.borrows[id] = ref
	return &window{f: f, step: f.step, id: id, exclusive: exclusive, open: true}
}

func (w *window) close() {
	if !w.open {
		return
	}
	w.open = false
	e := w.f.exec
	ref := e.borrows[w.id]
	if w.exclusive {
		ref.exclusive--
	} else {
		ref.shared--
	}
	if ref.exclusive == 0 && ref.shared == 0 {
		delete(e.borrows, w.id)
	} else {
		e.borrows[w.id] = ref
	}
}

// use validates the lease and returns the world to go through.
func (w *window) use() World {
	if w == nil || !w.open || w.f == nil || w.step != w.f.step || w.f.exec.world == nil {
		panic("coro: borrow used outside its window")
	}
	return w.f.exec.world
}

func (w *window) load() any {
	world := w.use()
	v, ok := world.Load(w.id)
	if !ok {
		panic(fmt.Sprintf("coro: %v removed while borrowed", w.id))
	}
	return v
}

// A View is a shared borrow of one world entry, valid for a single run
// segment.
type View[T any] struct {
	w *window
}

// Get reads the borrowed value.
func (v View[T]) Get() T {
	return entryValue[T](v.w)
}

// A Mut is an exclusive borrow of one world entry, valid for a single run
// segment. Writing through it is a mutation: the world advances the entry's
// change version, and waiters on that entry observe it. A Mut that is never
// written through leaves the version untouched.
type Mut[T any] struct {
	w *window
}

// Get reads the borrowed value.
func (m Mut[T]) Get() T {
	return entryValue[T](m.w)
}

// Set replaces the borrowed value.
func (m Mut[T]) Set(v T) {
	world := m.w.use()
	world.Store(m.w.id, v)
	m.w.f.exec.noteStore(m.w.id)
}

// Update replaces the borrowed value with fn applied to it.
func (m Mut[T]) Update(fn func(T) T) {
	m.Set(fn(m.Get()))
}

func entryValue[T any](w *window) T {
	v, ok := w.load().(T)
	if !ok {
		panic(fmt.Sprintf("coro: %v holds %T, not %v", w.id, w.load(), typeName[T]()))
	}
	return v
}

func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// Grab resolves p and then grants a shared borrow of the entry for the
// remainder of the current run segment: body runs with a [View] that dies
// when body returns. Grabbing a missing entry or one whose value is not a T
// is a fatal usage fault, as is a simultaneously live exclusive borrow of
// the same entry.
func Grab[T any](p Pending, id EntryID, body func(f *Fib, v View[T]) Result) Result {
	if body == nil {
		panic("coro: nil grab body")
	}
	return p.Then(func(f *Fib) Result {
		w := f.openWindow(id, false)
		defer w.close()
		entryValue[T](w) // fail at grant time, not first use
		return body(f, View[T]{w})
	})
}

// GrabMut is [Grab] with an exclusive borrow: body runs with a [Mut] that
// dies when body returns. Any other simultaneously live borrow of the same
// entry is a fatal usage fault.
func GrabMut[T any](p Pending, id EntryID, body func(f *Fib, m Mut[T]) Result) Result {
	if body == nil {
		panic("coro: nil grab body")
	}
	return p.Then(func(f *Fib) Result {
		w := f.openWindow(id, true)
		defer w.close()
		entryValue[T](w)
		return body(f, Mut[T]{w})
	})
}
