package coro

// A Fib is the handle of one coroutine. It is passed into every [Task] the
// coroutine runs and is the only source of suspension: each of its
// primitives (NextTick, Change, On, ParOr, ParAnd, and the Grab functions
// chained onto a [Pending]) arms exactly one suspension condition and hands
// control back to the executor through the [Result] it produces.
//
// A Fib must only be used from within a running task of its own coroutine.
// Storing it and calling a primitive from anywhere else is a usage fault and
// panics.
type Fib struct {
	exec *Executor
	id   uint64

	// task is the continuation to run on the next wake.
	task Task

	// wak is the armed suspension condition while the coroutine is
	// suspended.
	wak waker

	// conts is the stack of pending continuations built by [Seq] and
	// [Loop]. Ending a task pops it; completing happens when it is empty.
	conts []cont

	// Segment state. step counts run segments and bounds borrow windows;
	// armed* hold the waker and continuation staged by the pending
	// primitive of the current segment.
	step      uint64
	running   bool
	armed     bool
	armedWak  waker
	armedTask Task

	resumeValue any
	value       any
	done        bool
	canceled    bool

	// Change-consumption bookkeeping, valid for pass wokenPass only:
	// wokenBaseline[id] is the baseline of the changed-since waker that
	// most recently woke this coroutine during that pass.
	wokenPass     uint64
	wokenBaseline map[EntryID]uint64
}

type cont struct {
	task Task
	loop bool
}

// A Task is a piece of work a coroutine runs between two suspension points.
// It must return a [Result] produced by the methods of the Fib it was given;
// returning anything else (in particular a zero Result, the closest thing to
// awaiting a suspension source this scheduler does not know) is a fatal
// usage fault.
type Task func(f *Fib) Result

// Result is the opaque value a [Task] returns to tell the executor what to
// do next: suspend on an armed waker, end the task, or break a [Loop].
// Results are minted only by methods on [Fib], [Pending], [Race] and [Join];
// return one right after creating it.
type Result struct {
	f    *Fib
	kind resultKind
}

type resultKind uint8

const (
	resultInvalid resultKind = iota
	resultYield
	resultEnd
	resultBreak
)

// A Pending is one suspension about to happen. It carries the waker minted
// by a primitive; one of its methods turns it into the [Result] that
// performs the suspension and names the continuation.
type Pending struct {
	f   *Fib
	tok waker
}

func (f *Fib) ensureRunning() {
	if f == nil || !f.running {
		panic("coro: handle used outside its coroutine")
	}
}

// NextTick arms a suspension that resolves on the next tick, unconditionally.
func (f *Fib) NextTick() Pending {
	f.ensureRunning()
	return Pending{f, waker{kind: wakeNextTick, owner: f, pass: f.exec.pass}}
}

// Change arms a suspension that resolves once the entry's change version
// moves off the baseline captured now. If the entry has been removed, the
// suspension never resolves; removal is not a change.
//
// A coroutine woken by a change consumes exactly one mutation per wake: when
// it arms a new Change on the same entry within the same pass, the new
// baseline advances one mutation past the one it was woken for, so k
// same-tick mutations wake a looping watcher exactly k times, and
// independent watchers observe every mutation independently.
func (f *Fib) Change(id EntryID) Pending {
	f.ensureRunning()
	e := f.exec
	live, _ := e.world.Version(id)
	base := live
	chained := false
	if f.wokenPass == e.pass {
		if b, ok := f.wokenBaseline[id]; ok {
			// Woken by this entry earlier in the pass: consume exactly
			// one mutation past the wake point.
			chained = true
			if nb := b + 1; nb < base {
				base = nb
			}
		}
	}
	if !chained {
		// Baseline is the version as of the start of the pass: stores
		// made through borrow windows earlier in this pass still count
		// as changes for a waker armed now.
		if n := e.passWrites[id]; n < base {
			base = live - n
		} else {
			base = 0
		}
	}
	return Pending{f, waker{kind: wakeChanged, owner: f, id: id, baseline: base}}
}

// On spawns a child coroutine owned by this one and arms a suspension that
// resolves when the child completes. The resume value is the child's value.
// The child runs its first segment during the current pass and is driven
// whenever its owner is driven.
func (f *Fib) On(t Task) Pending {
	f.ensureRunning()
	child := f.exec.newFib(t)
	return Pending{f, waker{kind: wakeAll, owner: f, children: []*Fib{child}}}
}

// Then turns p into a [Result] that suspends the coroutine and, on wake,
// runs next.
func (p Pending) Then(next Task) Result {
	f := p.f
	f.ensureRunning()
	if p.tok.kind == wakeNever {
		panic("coro: use of zero Pending")
	}
	f.armedWak = p.tok
	f.armedTask = mustTask(next)
	f.armed = true
	return Result{f: f, kind: resultYield}
}

// ThenWith is like [Pending.Then] but passes the resume value to next: the
// child's value after [Fib.On], the winner's value after [Fib.ParOr], nil
// after NextTick and Change.
func (p Pending) ThenWith(next func(f *Fib, v any) Result) Result {
	if next == nil {
		panic("coro: nil continuation")
	}
	return p.Then(func(f *Fib) Result {
		return next(f, f.resumeValue)
	})
}

// End turns p into a [Result] that suspends the coroutine and, on wake, ends
// the running task.
func (p Pending) End() Result {
	return p.Then(endTask)
}

func endTask(f *Fib) Result { return f.End() }

// End returns a [Result] that ends the running task: the next continuation
// of a surrounding [Seq] or [Loop] runs, or, with none left, the coroutine
// completes.
func (f *Fib) End() Result {
	f.ensureRunning()
	return Result{f: f, kind: resultEnd}
}

// EndWith is like [Fib.End] but also sets the coroutine's value, delivered
// to whatever is waiting on its completion.
func (f *Fib) EndWith(v any) Result {
	f.ensureRunning()
	f.value = v
	return Result{f: f, kind: resultEnd}
}

// Break returns a [Result] that breaks the innermost surrounding [Loop].
func (f *Fib) Break() Result {
	f.ensureRunning()
	return Result{f: f, kind: resultBreak}
}

func (f *Fib) noteWoken(id EntryID, baseline uint64) {
	if f.wokenPass != f.exec.pass {
		clear(f.wokenBaseline)
		f.wokenPass = f.exec.pass
	}
	if f.wokenBaseline == nil {
		f.wokenBaseline = make(map[EntryID]uint64)
	}
	f.wokenBaseline[id] = baseline
}

// cancel tears down f and its whole subtree without resuming anything.
func (f *Fib) cancel() {
	if f.done {
		return
	}
	f.done = true
	f.canceled = true
	for _, c := range f.wak.children {
		c.cancel()
	}
	f.wak = waker{}
	f.task = nil
	f.conts = nil
}

func mustTask(t Task) Task {
	if t == nil {
		panic("coro: nil Task")
	}
	return t
}

// Do returns a [Task] that calls fn, and then ends.
func Do(fn func()) Task {
	return func(f *Fib) Result {
		fn()
		return f.End()
	}
}

// Seq returns a [Task] that runs each of the given tasks in order.
// When one task ends, Seq runs the next.
func Seq(s ...Task) Task {
	return func(f *Fib) Result {
		if len(s) == 0 {
			return f.End()
		}
		for i := len(s) - 1; i >= 1; i-- {
			f.conts = append(f.conts, cont{task: mustTask(s[i])})
		}
		return mustTask(s[0])(f)
	}
}

// Loop returns a [Task] that runs t repeatedly. [Fib.Break] breaks the loop.
func Loop(t Task) Task {
	t = mustTask(t)
	return func(f *Fib) Result {
		f.conts = append(f.conts, cont{task: t, loop: true})
		return t(f)
	}
}

// LoopN returns a [Task] that runs t n times. [Fib.Break] breaks the loop
// early.
func LoopN(n int, t Task) Task {
	t = mustTask(t)
	return func(f *Fib) Result {
		i := 0
		body := func(f *Fib) Result {
			if i >= n {
				return f.Break()
			}
			i++
			return t(f)
		}
		f.conts = append(f.conts, cont{task: body, loop: true})
		return body(f)
	}
}
