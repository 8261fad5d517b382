// Package cleanup runs registered release functions when the process is
// asked to terminate, so sentinel files are not left behind on Ctrl-C.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hydraide/sentinel/app/panichandler"
)

// Func is called with the signal that triggered the cleanup, or nil when
// Run was invoked without one.
type Func func(sig os.Signal)

// Signals handled by Notify.
var Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// Registry is a set of cleanup functions. The zero value is ready to use.
type Registry struct {
	mu    sync.Mutex
	next  uint64
	order []uint64
	fns   map[uint64]Func
}

// Register adds fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (r *Registry) Register(fn Func) (unregister func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fns == nil {
		r.fns = make(map[uint64]Func)
	}
	id := r.next
	r.next++
	r.fns[id] = fn
	r.order = append(r.order, id)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.fns, id)
	}
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fns)
}

// Run calls every registered function once, in registration order, and
// empties the registry. A panicking function does not stop the others.
func (r *Registry) Run(sig os.Signal) {
	r.mu.Lock()
	fns := make([]Func, 0, len(r.fns))
	for _, id := range r.order {
		if fn, ok := r.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	r.fns = nil
	r.order = nil
	r.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer panichandler.Recover("cleanup function")
			fn(sig)
		}()
	}
}

// Intercept is consulted for every signal before the registry runs. When it
// returns true the signal counts as handled and the registry keeps waiting.
type Intercept func(sig os.Signal) bool

// Notify blocks until one of Signals arrives, runs the registry and returns
// the signal. It returns nil without running anything when ctx is done first.
func (r *Registry) Notify(ctx context.Context) os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, Signals...)
	defer signal.Stop(ch)

	return r.Serve(ctx, ch, nil)
}

// Serve receives signals from ch until one is not taken by intercept, then
// runs the registry with it and returns it. A nil intercept takes nothing.
// It returns nil when ctx is done first.
func (r *Registry) Serve(ctx context.Context, ch <-chan os.Signal, intercept Intercept) os.Signal {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			if intercept != nil && intercept(sig) {
				slog.Debug("termination signal intercepted", "signal", sig.String())
				continue
			}
			slog.Info("termination signal received, running cleanup", "signal", sig.String(), "count", r.Len())
			r.Run(sig)
			return sig
		}
	}
}

var defaultRegistry Registry

// Register adds fn to the process-wide registry.
func Register(fn Func) (unregister func()) {
	return defaultRegistry.Register(fn)
}

// Run runs the process-wide registry.
func Run(sig os.Signal) {
	defaultRegistry.Run(sig)
}

// Notify waits for a termination signal and runs the process-wide registry.
func Notify(ctx context.Context) os.Signal {
	return defaultRegistry.Notify(ctx)
}

// Serve serves ch with the process-wide registry.
func Serve(ctx context.Context, ch <-chan os.Signal, intercept Intercept) os.Signal {
	return defaultRegistry.Serve(ctx, ch, intercept)
}
