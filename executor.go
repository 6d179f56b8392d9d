package coro

import (
	"fmt"

	"github.com/go-logr/logr"
)

// An Executor owns a set of root coroutines and advances them in lock-step
// with a discrete time source that the host controls.
//
// The host calls [Executor.Advance] once per time step, passing the current
// [World]. Within a pass, root coroutines are driven in registration order;
// each runs synchronously until it completes or suspends on one of the
// primitives of its [Fib]. The ordering is part of the contract: an earlier
// coroutine's side effects on the world are visible to every later coroutine
// within the same pass.
//
// Everything is single-threaded. There is no parallelism, no reactor and no
// wall-clock time; "concurrency" is the interleaved progress of many
// coroutines across Advance calls.
//
// The zero Executor is ready to use. Usage faults — suspending on anything
// this library did not arm, conflicting borrows, grabbing missing entries —
// panic out of Advance; they are programming errors in a coroutine body, not
// conditions to retry.
type Executor struct {
	log    logr.Logger
	pass   uint64
	nextID uint64

	roots  []*Fib
	staged []*Fib

	// Per-pass state, valid only while advancing.
	advancing  bool
	world      World
	passWrites map[EntryID]uint64
	borrows    map[EntryID]borrowRef
}

type borrowRef struct {
	shared    int
	exclusive int
}

// An Option configures an [Executor].
type Option func(e *Executor)

// WithLogger makes the executor trace scheduling decisions through l.
// Passes log at V(1), per-coroutine wakes and completions at V(2).
func WithLogger(l logr.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// NewExecutor creates an [Executor].
func NewExecutor(opts ...Option) *Executor {
	e := new(Executor)
	for _, o := range opts {
		o(e)
	}
	return e
}

// Add registers a new root coroutine to run t. It is scheduled starting from
// the next [Executor.Advance] call.
//
// Add is not safe for concurrent use with Advance.
func (e *Executor) Add(t Task) {
	fb := e.newFib(t)
	e.staged = append(e.staged, fb)
	e.log.V(2).Info("coroutine added", "id", fb.id)
}

// Idle reports whether the executor has no coroutines left to drive.
func (e *Executor) Idle() bool {
	return len(e.roots) == 0 && len(e.staged) == 0
}

// Advance performs exactly one resumption pass against w.
//
// Each root coroutine whose suspension condition is satisfied is resumed and
// runs until it suspends again or completes; a coroutine woken by a world
// change may run several segments within the pass, one per consumed
// mutation. Completed roots are removed at the end of the pass, releasing
// everything they own.
func (e *Executor) Advance(w World) {
	if w == nil {
		panic("coro: Advance called with nil World")
	}
	if e.advancing {
		panic("coro: Advance called from within a coroutine")
	}
	e.advancing = true
	e.world = w
	e.pass++
	if e.passWrites == nil {
		e.passWrites = make(map[EntryID]uint64)
		e.borrows = make(map[EntryID]borrowRef)
	}
	clear(e.passWrites)

	defer func() {
		e.world = nil
		e.advancing = false
	}()

	e.roots = append(e.roots, e.staged...)
	e.staged = nil
	e.log.V(1).Info("pass", "n", e.pass, "roots", len(e.roots))

	for _, fb := range e.roots {
		e.drive(fb)
	}

	live := e.roots[:0]
	for _, fb := range e.roots {
		if fb.done {
			e.log.V(2).Info("coroutine completed", "id", fb.id)
			continue
		}
		live = append(live, fb)
	}
	clear(e.roots[len(live):])
	e.roots = live
}

// drive resumes fb for as long as its waker keeps resolving against the
// current world, then leaves it suspended (or completed).
func (e *Executor) drive(fb *Fib) {
	for !fb.done {
		v, ok := e.resolve(fb)
		if !ok {
			return
		}
		e.runSegment(fb, v)
	}
}

// resolve evaluates fb's waker against the current world. Composite wakers
// drive their children, in declared order, as part of evaluation.
func (e *Executor) resolve(fb *Fib) (v any, ok bool) {
	w := &fb.wak
	if w.kind != wakeNever && w.owner != fb {
		panic("coro: suspension token minted by a different coroutine handle")
	}
	switch w.kind {
	case wakeImmediate:
		return nil, true
	case wakeNextTick:
		return nil, e.pass > w.pass
	case wakeChanged:
		cur, exists := e.world.Version(w.id)
		if !exists || cur == w.baseline {
			return nil, false
		}
		fb.noteWoken(w.id, w.baseline)
		return nil, true
	case wakeAll:
		done := true
		for _, c := range w.children {
			if !c.done {
				e.drive(c)
			}
			if !c.done {
				done = false
			}
		}
		if !done {
			return nil, false
		}
		if !w.aggregate {
			return w.children[0].value, true
		}
		vs := make([]any, len(w.children))
		for i, c := range w.children {
			vs[i] = c.value
		}
		return vs, true
	case wakeAny:
		var winner *Fib
		for _, c := range w.children {
			if !c.done {
				e.drive(c)
			}
			if c.done && !c.canceled {
				winner = c
				break
			}
		}
		if winner == nil {
			return nil, false
		}
		for _, c := range w.children {
			if c != winner {
				c.cancel()
			}
		}
		return winner.value, true
	default:
		panic("coro: coroutine suspended without a suspension token")
	}
}

// runSegment runs one uninterrupted segment of fb: from the wake until fb
// suspends again or completes.
func (e *Executor) runSegment(fb *Fib, v any) {
	fb.step++
	fb.resumeValue = v
	fb.running = true
	fb.armed = false
	e.log.V(2).Info("coroutine resumed", "id", fb.id, "waker", fb.wak.kind.String())

	t := fb.task
	fb.task = nil
	fb.wak = waker{}

	for {
		if t == nil {
			panic("coro: internal error: coroutine has no task")
		}
		res := t(fb)
		if res.f != fb || res.kind == resultInvalid {
			// The task suspended on something this scheduler did not
			// arm for it. Fatal: report now rather than hang.
			fb.running = false
			if res.f != nil && res.f != fb {
				panic("coro: task returned a result minted by a different coroutine handle")
			}
			panic("coro: task awaited a suspension source not produced by this library")
		}
		switch res.kind {
		case resultYield:
			if !fb.armed {
				fb.running = false
				panic("coro: task awaited a suspension source not produced by this library")
			}
			fb.wak = fb.armedWak
			fb.task = fb.armedTask
			fb.armed = false
			fb.armedTask = nil
			fb.running = false
			return
		case resultBreak, resultEnd:
			if res.kind == resultBreak {
				i := len(fb.conts) - 1
				for i >= 0 && !fb.conts[i].loop {
					i--
				}
				if i < 0 {
					fb.running = false
					panic("coro: break outside of a loop")
				}
				fb.conts = fb.conts[:i]
			}
			if n := len(fb.conts); n != 0 {
				top := fb.conts[n-1]
				if !top.loop {
					fb.conts = fb.conts[:n-1]
				}
				t = top.task
				continue
			}
			fb.running = false
			fb.done = true
			fb.conts = nil
			return
		default:
			panic(fmt.Sprintf("coro: internal error: unknown result kind %d", res.kind))
		}
	}
}

func (e *Executor) newFib(t Task) *Fib {
	mustTask(t)
	e.nextID++
	fb := &Fib{exec: e, id: e.nextID, task: t}
	fb.wak = waker{kind: wakeImmediate, owner: fb}
	return fb
}

func (e *Executor) noteStore(id EntryID) {
	e.passWrites[id]++
}
