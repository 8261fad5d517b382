package panichandler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_SwallowsPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer Recover("test")
		panic("boom")
	})
}

func TestRecoverWithCallback(t *testing.T) {
	var called atomic.Bool
	func() {
		defer RecoverWithCallback("test", func() { called.Store(true) })
		panic("boom")
	}()
	assert.True(t, called.Load())

	called.Store(false)
	func() {
		defer RecoverWithCallback("test", func() { called.Store(true) })
	}()
	assert.False(t, called.Load(), "callback must only run after a panic")
}

func TestRecoverWithCallback_CallbackPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverWithCallback("test", func() { panic("callback boom") })
		panic("boom")
	})
}

func TestSafeGo(t *testing.T) {
	done := make(chan struct{})
	SafeGo("worker", func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestSafeGoWithCallback(t *testing.T) {
	called := make(chan struct{})
	SafeGoWithCallback("worker", func() { panic("boom") }, func() { close(called) })

	select {
	case <-called:
	case <-time.After(time.Second):
		require.Fail(t, "callback was not invoked after panic")
	}
}
