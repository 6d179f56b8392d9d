package coro

// A waker describes why a suspended coroutine is paused and under what
// condition it should next run. It is the only channel between a coroutine
// and its executor: every suspension primitive on [Fib] arms exactly one
// waker, and the executor evaluates it fresh on every [Executor.Advance].
//
// A coroutine has exactly one armed waker at any instant; arming a new one
// invalidates the previous one.
type waker struct {
	kind wakerKind

	// owner is the handle that minted the waker. The executor refuses to
	// act on a waker minted by a handle other than the one it is driving.
	owner *Fib

	// pass is the pass in which a wakeNextTick waker was created.
	// It never resolves within that pass.
	pass uint64

	// id and baseline describe a wakeChanged condition: the waker resolves
	// once the entry exists and its live version differs from baseline.
	id       EntryID
	baseline uint64

	// children are the coroutines a composite waker waits on, in declared
	// order. The order is observable: children are driven front to back on
	// every pass.
	children []*Fib

	// aggregate selects the resume value of a wakeAll: the slice of all
	// child values when set, the sole child's value when not.
	aggregate bool
}

type wakerKind uint8

const (
	// wakeNever is the zero waker. A coroutine never carries it while
	// suspended; encountering it is a usage fault.
	wakeNever wakerKind = iota

	// wakeImmediate resolves on the first pass that evaluates it. It is
	// the bootstrap waker of freshly added or spawned coroutines.
	wakeImmediate

	// wakeNextTick resolves on any pass after the one it was created in.
	wakeNextTick

	// wakeChanged resolves once the watched entry's version moves off the
	// recorded baseline. A removed entry never resolves it.
	wakeChanged

	// wakeAll resolves once every child coroutine has completed.
	wakeAll

	// wakeAny resolves once any child coroutine has completed; remaining
	// siblings are then canceled without being resumed again.
	wakeAny
)

func (k wakerKind) String() string {
	switch k {
	case wakeNever:
		return "never"
	case wakeImmediate:
		return "immediate"
	case wakeNextTick:
		return "next-tick"
	case wakeChanged:
		return "changed-since"
	case wakeAll:
		return "wait-all"
	case wakeAny:
		return "wait-any"
	default:
		return "unknown"
	}
}
