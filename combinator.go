package coro

// A Race is the builder returned by [Fib.ParOr]. Adding tasks with
// [Race.With] and finishing with Then, ThenWith or End spawns one child
// coroutine per task under a wait-any condition: the race resolves as soon
// as one child completes, and every other child is canceled, recursively and
// without being resumed again.
//
// Children are driven in declared order on every pass. Order is priority: on
// a tick where several children would run, the first-declared one runs
// first, and its side effects on the world are visible to the ones after it.
type Race struct {
	f     *Fib
	tasks []Task
}

// ParOr starts a [Race] with t as its first, highest-priority child.
func (f *Fib) ParOr(t Task) *Race {
	f.ensureRunning()
	return &Race{f: f, tasks: []Task{mustTask(t)}}
}

// With adds another child to the race.
func (r *Race) With(t Task) *Race {
	r.tasks = append(r.tasks, mustTask(t))
	return r
}

func (r *Race) pending() Pending {
	f := r.f
	children := make([]*Fib, len(r.tasks))
	for i, t := range r.tasks {
		children[i] = f.exec.newFib(t)
	}
	return Pending{f, waker{kind: wakeAny, owner: f, children: children}}
}

// Then suspends until the race resolves, then runs next.
func (r *Race) Then(next Task) Result {
	return r.pending().Then(next)
}

// ThenWith is like [Race.Then] but passes the winning child's value to next.
func (r *Race) ThenWith(next func(f *Fib, v any) Result) Result {
	return r.pending().ThenWith(next)
}

// End suspends until the race resolves, then ends the running task.
func (r *Race) End() Result {
	return r.pending().End()
}

// A Join is the builder returned by [Fib.ParAnd]. Adding tasks with
// [Join.With] and finishing with Then, ThenWith or End spawns one child
// coroutine per task under a wait-all condition: every child still running
// is resumed every pass in declared order, completed ones are skipped, and the
// join resolves once all of them are done.
type Join struct {
	f     *Fib
	tasks []Task
}

// ParAnd starts a [Join] with t as its first child.
func (f *Fib) ParAnd(t Task) *Join {
	f.ensureRunning()
	return &Join{f: f, tasks: []Task{mustTask(t)}}
}

// With adds another child to the join.
func (j *Join) With(t Task) *Join {
	j.tasks = append(j.tasks, mustTask(t))
	return j
}

func (j *Join) pending() Pending {
	f := j.f
	children := make([]*Fib, len(j.tasks))
	for i, t := range j.tasks {
		children[i] = f.exec.newFib(t)
	}
	return Pending{f, waker{kind: wakeAll, owner: f, children: children, aggregate: true}}
}

// Then suspends until every child has completed, then runs next.
func (j *Join) Then(next Task) Result {
	return j.pending().Then(next)
}

// ThenWith is like [Join.Then] but passes the children's values to next, in
// declared order.
func (j *Join) ThenWith(next func(f *Fib, vs []any) Result) Result {
	if next == nil {
		panic("coro: nil continuation")
	}
	return j.pending().Then(func(f *Fib) Result {
		vs, _ := f.resumeValue.([]any)
		return next(f, vs)
	})
}

// End suspends until every child has completed, then ends the running task.
func (j *Join) End() Result {
	return j.pending().End()
}
