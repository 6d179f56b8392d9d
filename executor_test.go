package coro_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickloop/coro"
)

// waitTick is a task that suspends for one tick and then ends.
func waitTick() coro.Task {
	return func(f *coro.Fib) coro.Result {
		return f.NextTick().End()
	}
}

// tickIncr is a task that suspends for one tick, increments n, and then ends.
func tickIncr(n *int) coro.Task {
	return func(f *coro.Fib) coro.Result {
		return f.NextTick().Then(coro.Do(func() { *n++ }))
	}
}

func TestWaitOnTick(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	n := 0
	e.Add(coro.Seq(
		coro.Do(func() { n++ }),
		tickIncr(&n),
		tickIncr(&n),
	))

	e.Advance(w)
	assert.Equal(t, 1, n)
	e.Advance(w)
	assert.Equal(t, 2, n)
	e.Advance(w)
	assert.Equal(t, 3, n)
	e.Advance(w)
	assert.Equal(t, 3, n)
}

// A coroutine suspending on NextTick N times completes on the Nth pass after
// the pass that started it, never earlier.
func TestTickCountIsExact(t *testing.T) {
	for _, ticks := range []int{1, 2, 3, 7} {
		e := coro.NewExecutor()
		w := coro.NewMapWorld()

		e.Add(coro.LoopN(ticks, waitTick()))

		e.Advance(w) // first segment only
		require.False(t, e.Idle())
		for i := 1; i < ticks; i++ {
			e.Advance(w)
			require.False(t, e.Idle(), "completed after %d of %d ticks", i, ticks)
		}
		e.Advance(w)
		require.True(t, e.Idle(), "not completed after %d ticks", ticks)
	}
}

func TestWaitOnSubCoroutine(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	n := 0
	e.Add(coro.Seq(
		coro.Do(func() { n++ }),
		func(f *coro.Fib) coro.Result {
			return f.On(coro.Seq(waitTick(), waitTick())).Then(coro.Do(func() { n++ }))
		},
	))

	e.Advance(w)
	assert.Equal(t, 1, n)
	e.Advance(w)
	assert.Equal(t, 1, n)
	e.Advance(w)
	assert.Equal(t, 2, n)
	e.Advance(w)
	assert.Equal(t, 2, n)
}

func TestSubCoroutineValue(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	var got any
	e.Add(func(f *coro.Fib) coro.Result {
		return f.On(func(f *coro.Fib) coro.Result {
			return f.NextTick().Then(func(f *coro.Fib) coro.Result {
				return f.EndWith(42)
			})
		}).ThenWith(func(f *coro.Fib, v any) coro.Result {
			got = v
			return f.End()
		})
	})

	e.Advance(w)
	assert.Nil(t, got)
	e.Advance(w)
	assert.Equal(t, 42, got)
	assert.True(t, e.Idle())
}

// Root coroutines run in registration order within a pass; an earlier one's
// writes are visible to a later one on the same tick.
func TestRegistrationOrderIsObservable(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()
	id := w.Insert(0)

	var seen []int
	e.Add(coro.Loop(func(f *coro.Fib) coro.Result {
		return coro.GrabMut(f.NextTick(), id, func(f *coro.Fib, m coro.Mut[int]) coro.Result {
			m.Set(m.Get() + 1)
			return f.End()
		})
	}))
	e.Add(coro.Loop(func(f *coro.Fib) coro.Result {
		return coro.Grab(f.NextTick(), id, func(f *coro.Fib, v coro.View[int]) coro.Result {
			seen = append(seen, v.Get())
			return f.End()
		})
	}))

	for i := 0; i < 4; i++ {
		e.Advance(w)
	}
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestAwaitForeignSuspensionIsFatal(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	e.Add(func(f *coro.Fib) coro.Result {
		return coro.Result{} // not produced by any primitive
	})

	assert.PanicsWithValue(t,
		"coro: task awaited a suspension source not produced by this library",
		func() { e.Advance(w) })
}

func TestForeignHandleResultIsFatal(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	var stolen coro.Result
	e.Add(func(f *coro.Fib) coro.Result {
		stolen = f.NextTick().End()
		return stolen
	})
	e.Add(func(f *coro.Fib) coro.Result {
		return stolen
	})

	assert.PanicsWithValue(t,
		"coro: task returned a result minted by a different coroutine handle",
		func() { e.Advance(w) })
}

func TestHandleEscapesCoroutine(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	var leaked *coro.Fib
	e.Add(func(f *coro.Fib) coro.Result {
		leaked = f
		return f.NextTick().End()
	})

	e.Advance(w)
	assert.PanicsWithValue(t,
		"coro: handle used outside its coroutine",
		func() { leaked.NextTick() })
}

func TestBreakOutsideLoopIsFatal(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	e.Add(func(f *coro.Fib) coro.Result {
		return f.Break()
	})

	assert.PanicsWithValue(t, "coro: break outside of a loop",
		func() { e.Advance(w) })
}

func TestAdvanceReentrancyIsFatal(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	e.Add(func(f *coro.Fib) coro.Result {
		e.Advance(w)
		return f.End()
	})

	assert.PanicsWithValue(t, "coro: Advance called from within a coroutine",
		func() { e.Advance(w) })
}

func TestAdvanceNilWorldIsFatal(t *testing.T) {
	e := coro.NewExecutor()
	assert.PanicsWithValue(t, "coro: Advance called with nil World",
		func() { e.Advance(nil) })
}

func TestIdleAndRemoval(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	assert.True(t, e.Idle())
	e.Add(waitTick())
	assert.False(t, e.Idle())

	e.Advance(w)
	assert.False(t, e.Idle())
	e.Advance(w)
	assert.True(t, e.Idle())
}

// Coroutines added during a pass start on the next pass, not the current one.
func TestAddDuringPass(t *testing.T) {
	e := coro.NewExecutor()
	w := coro.NewMapWorld()

	n := 0
	e.Add(func(f *coro.Fib) coro.Result {
		e.Add(coro.Do(func() { n++ }))
		return f.End()
	})

	e.Advance(w)
	assert.Equal(t, 0, n)
	e.Advance(w)
	assert.Equal(t, 1, n)
}
