// Package coro is a cooperative, tick-driven coroutine scheduler.
//
// Many independent sequential computations advance in lock-step with a
// discrete time source that the host controls, while safely borrowing
// pieces of a shared keyed data store (the [World]) for bounded spans.
// It is a library for simulations, games and other host loops that already
// own their notion of time; it is not an async runtime. There is no I/O
// reactor, no timers beyond counting ticks, and no parallelism.
//
// # Coroutines Without Stack Switching
//
// A coroutine here is stackless, in the manner of a resumable state machine.
// Its code is written as [Task] functions; a Task runs until it returns a
// [Result], and the Result says what happens next: suspend under some
// condition and continue with another Task, end the current Task, or break a
// [Loop]. Results are minted only by the methods of the coroutine's [Fib]
// handle, so the scheduler always knows exactly why a coroutine is paused.
// Suspending on anything else — a channel, a timer, a hand-rolled Result —
// is detected and treated as a fatal programming error rather than a hang.
//
// # Ticks
//
// The host calls [Executor.Advance] once per time step. Each root coroutine,
// in registration order, is resumed if its suspension condition is met
// against the world passed in. Registration order is part of the contract:
// within one pass, what an earlier coroutine writes is what a later
// coroutine reads.
//
// # Borrowing From the World
//
// A coroutine never holds a live reference into the world across a
// suspension. [Grab] and [GrabMut], chained onto the suspension produced by
// [Fib.NextTick] or [Fib.Change], grant a [View] or [Mut] that is valid only
// for the run segment in which it was granted; when the segment ends the
// lease dies, and using it afterwards panics. Conflicting simultaneous
// borrows of one entry are refused before any inconsistent read can happen.
//
// # Waiting for Change
//
// Every world entry carries a change version that the host advances on
// mutation. [Fib.Change] suspends until the version moves. Notifications are
// not consumed: one mutation is visible to any number of independent
// waiters, and a waiter looping on Change observes each mutation exactly
// once, even when several land on the same tick.
//
// # Structured Concurrency
//
// [Fib.On] runs a child coroutine to completion. [Fib.ParOr] races children:
// the first to complete wins and the rest are canceled, recursively, without
// running again. [Fib.ParAnd] joins children: all run, in declared order,
// until all complete. Children are owned by their parent and never outlive
// it.
package coro
