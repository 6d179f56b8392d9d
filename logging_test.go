package coro_test

import (
	"testing"

	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tickloop/coro"
)

func TestWithLogger(t *testing.T) {
	core, logs := observer.New(zapcore.Level(-3))
	e := coro.NewExecutor(coro.WithLogger(zapr.NewLogger(zap.New(core))))
	w := coro.NewMapWorld()

	e.Add(waitTick())
	assert.Equal(t, 1, logs.FilterMessage("coroutine added").Len())

	e.Advance(w)
	e.Advance(w)
	assert.Equal(t, 2, logs.FilterMessage("pass").Len())
	assert.Equal(t, 2, logs.FilterMessage("coroutine resumed").Len())
	assert.Equal(t, 1, logs.FilterMessage("coroutine completed").Len())
	assert.True(t, e.Idle())
}

// The zero Executor is usable; its logger discards everything.
func TestZeroExecutor(t *testing.T) {
	var e coro.Executor
	w := coro.NewMapWorld()
	n := 0
	e.Add(tickIncr(&n))
	e.Advance(w)
	e.Advance(w)
	assert.Equal(t, 1, n)
	assert.True(t, e.Idle())
}
