package cleanup

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RunCallsInOrderOnce(t *testing.T) {
	var r Registry
	var calls []int

	r.Register(func(os.Signal) { calls = append(calls, 1) })
	r.Register(func(os.Signal) { calls = append(calls, 2) })
	r.Register(func(os.Signal) { calls = append(calls, 3) })
	assert.Equal(t, 3, r.Len())

	r.Run(nil)
	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.Equal(t, 0, r.Len())

	r.Run(nil)
	assert.Equal(t, []int{1, 2, 3}, calls, "functions must only run once")
}

func TestRegistry_Unregister(t *testing.T) {
	var r Registry
	ran := false

	unregister := r.Register(func(os.Signal) { ran = true })
	unregister()
	unregister()

	r.Run(nil)
	assert.False(t, ran)
}

func TestRegistry_PanicDoesNotStopOthers(t *testing.T) {
	var r Registry
	ran := false

	r.Register(func(os.Signal) { panic("boom") })
	r.Register(func(os.Signal) { ran = true })

	assert.NotPanics(t, func() { r.Run(nil) })
	assert.True(t, ran)
}

func TestRegistry_PassesSignal(t *testing.T) {
	var r Registry
	var got os.Signal
	r.Register(func(sig os.Signal) { got = sig })

	ch := make(chan os.Signal, 1)
	ch <- syscall.SIGTERM

	sig := r.Serve(context.Background(), ch, nil)
	assert.Equal(t, syscall.SIGTERM, sig)
	assert.Equal(t, syscall.SIGTERM, got)
}

func TestRegistry_ServeContextDone(t *testing.T) {
	var r Registry
	ran := false
	r.Register(func(os.Signal) { ran = true })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	sig := r.Serve(ctx, make(chan os.Signal), nil)
	assert.Nil(t, sig)
	assert.False(t, ran)
	require.Equal(t, 1, r.Len())
}

func TestRegistry_InterceptedSignalsDoNotRun(t *testing.T) {
	var r Registry
	runs := 0
	r.Register(func(os.Signal) { runs++ })

	ch := make(chan os.Signal, 3)
	ch <- syscall.SIGTERM
	ch <- syscall.SIGINT
	ch <- syscall.SIGHUP

	var seen []os.Signal
	sig := r.Serve(context.Background(), ch, func(sig os.Signal) bool {
		seen = append(seen, sig)
		return sig != syscall.SIGHUP
	})

	assert.Equal(t, syscall.SIGHUP, sig)
	assert.Equal(t, []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP}, seen)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_InterceptedSignalsKeepRegistry(t *testing.T) {
	var r Registry
	ran := false
	r.Register(func(os.Signal) { ran = true })

	ch := make(chan os.Signal, 1)
	ch <- syscall.SIGTERM

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	sig := r.Serve(ctx, ch, func(os.Signal) bool { return true })
	assert.Nil(t, sig)
	assert.False(t, ran)
	assert.Equal(t, 1, r.Len())
}

func TestDefaultRegistry(t *testing.T) {
	ran := false
	unregister := Register(func(os.Signal) { ran = true })
	defer unregister()

	Run(nil)
	assert.True(t, ran)
}
