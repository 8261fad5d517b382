package filelock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/hydraide/sentinel/app/core/filesystem"
	"github.com/hydraide/sentinel/app/panichandler"
)

// DefaultPollInterval is how often Wait re-checks a held lock.
const DefaultPollInterval = 2 * time.Millisecond

// FileLock is a cooperative lock represented by an empty sentinel file.
//
// The file existing at Path means "locked", its absence means "unlocked".
// The instance caches its own belief in Locked; it is seeded from an
// existence check in New and afterwards changed only by Lock and Unlock.
//
// Lock and Unlock must not be called concurrently on the same instance.
// Wait, WaitTimeout, WaitAsync, Locked and Path are safe to call from
// other goroutines while the owner locks and unlocks.
type FileLock struct {
	path         string
	state        *state
	fs           filesystem.FileSystem
	logger       *slog.Logger
	pollInterval time.Duration
	cleanup      runtime.Cleanup
}

// state lives outside FileLock so the GC cleanup can reach it without
// keeping the FileLock itself alive.
type state struct {
	locked atomic.Bool
}

// Option configures a FileLock.
type Option func(*FileLock)

// WithPollInterval sets the interval used by Wait. Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(fl *FileLock) {
		if d > 0 {
			fl.pollInterval = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(fl *FileLock) {
		if logger != nil {
			fl.logger = logger
		}
	}
}

// WithFileSystem replaces the filesystem the lock operates on.
func WithFileSystem(fs filesystem.FileSystem) Option {
	return func(fl *FileLock) {
		if fs != nil {
			fl.fs = fs
		}
	}
}

// New creates a FileLock for path. It does not create or touch the file;
// it only checks whether something already exists there and seeds Locked
// with the result.
//
// A failed existence check that is not "does not exist" (e.g. permission
// denied on a parent directory) is returned as an *IOError with Op "stat".
//
// If the instance becomes unreachable while still locked, the garbage
// collector removes the sentinel as a last resort. That can happen before the
// end of the enclosing function once fl is no longer used. Keep the instance
// alive for as long as the lock is needed, normally with defer fl.Close() or
// runtime.KeepAlive(fl) after the protected work.
func New(path string, opts ...Option) (*FileLock, error) {
	fl := &FileLock{
		path:         path,
		state:        &state{},
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(fl)
	}
	if fl.fs == nil {
		fl.fs = filesystem.New(fl.logger)
	}

	exists, err := fl.fs.Exists(context.Background(), path)
	if err != nil {
		return nil, newIOError("stat", path, err)
	}
	fl.state.locked.Store(exists)

	fl.cleanup = runtime.AddCleanup(fl, releaseUnreachable, releaseArg{
		path:   path,
		state:  fl.state,
		fs:     fl.fs,
		logger: fl.logger,
	})

	return fl, nil
}

// Path returns the sentinel file path.
func (fl *FileLock) Path() string {
	return fl.path
}

// Locked reports whether this instance believes it holds the lock.
func (fl *FileLock) Locked() bool {
	return fl.state.locked.Load()
}

// Lock creates (or truncates) the sentinel file and marks the instance locked.
// It returns ErrAlreadyLocked without touching the filesystem if the instance
// is already locked, and an *IOError if the file cannot be created.
func (fl *FileLock) Lock() error {
	if fl.state.locked.Load() {
		return fmt.Errorf("file %s: %w", fl.path, ErrAlreadyLocked)
	}

	if err := fl.fs.CreateEmpty(context.Background(), fl.path); err != nil {
		return newIOError("create", fl.path, err)
	}
	fl.state.locked.Store(true)

	fl.logger.Debug("sentinel lock acquired", "path", fl.path)
	return nil
}

// Unlock removes the sentinel file and marks the instance unlocked.
// A sentinel that is already gone counts as success. It returns ErrNotLocked
// without touching the filesystem if the instance is not locked, and an
// *IOError (instance stays locked) if the file cannot be removed.
func (fl *FileLock) Unlock() error {
	if !fl.state.locked.Load() {
		return fmt.Errorf("file %s: %w", fl.path, ErrNotLocked)
	}

	if err := removeSentinel(fl.fs, fl.path); err != nil {
		return err
	}
	fl.state.locked.Store(false)

	fl.logger.Debug("sentinel lock released", "path", fl.path)
	return nil
}

// Wait blocks until the lock is free: either this instance is unlocked or the
// sentinel file no longer exists. An unlocked instance returns immediately
// without touching the filesystem. Wait never modifies the lock.
//
// It returns ctx.Err() if ctx is done first, and an *IOError if the
// existence check itself fails.
func (fl *FileLock) Wait(ctx context.Context) error {
	if !fl.state.locked.Load() {
		return nil
	}

	ticker := time.NewTicker(fl.pollInterval)
	defer ticker.Stop()

	for {
		if !fl.state.locked.Load() {
			return nil
		}
		exists, err := fl.fs.Exists(ctx, fl.path)
		if err != nil {
			return newIOError("stat", fl.path, err)
		}
		if !exists {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitTimeout is Wait bounded by d. It returns an error wrapping ErrWaitTimeout
// when the lock is still held after d.
func (fl *FileLock) WaitTimeout(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	err := fl.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w %s after %s", ErrWaitTimeout, fl.path, d)
	}
	return err
}

// WaitAsync runs Wait in its own goroutine. The returned channel receives
// exactly one value and is then closed.
func (fl *FileLock) WaitAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	panichandler.SafeGoWithCallback("filelock wait "+fl.path,
		func() {
			done <- fl.Wait(ctx)
			close(done)
		},
		func() {
			done <- fmt.Errorf("filelock: wait on %s panicked", fl.path)
			close(done)
		},
	)
	return done
}

// Do locks, runs fn and releases the lock on every exit path of fn,
// including panics. A failed release is logged, never returned.
func (fl *FileLock) Do(fn func() error) error {
	if err := fl.Lock(); err != nil {
		return err
	}
	defer fl.release("scoped release")
	return fn()
}

// Close releases the lock if this instance still holds it. Failures are
// logged and otherwise ignored. Close is safe to call more than once.
func (fl *FileLock) Close() {
	fl.release("close")
	fl.cleanup.Stop()
}

// Detach forgets the lock without removing the sentinel file, so that no
// implicit release happens. The file is then owned by whoever removes it next.
func (fl *FileLock) Detach() {
	fl.state.locked.Store(false)
	fl.cleanup.Stop()
	fl.logger.Debug("sentinel lock detached", "path", fl.path)
}

func (fl *FileLock) release(reason string) {
	if !fl.state.locked.Load() {
		return
	}
	if err := fl.Unlock(); err != nil {
		fl.logger.Warn("best-effort release failed", "path", fl.path, "reason", reason, "error", err)
	}
}

func removeSentinel(fs filesystem.FileSystem, path string) error {
	if err := fs.Remove(context.Background(), path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return newIOError("remove", path, err)
	}
	return nil
}

type releaseArg struct {
	path   string
	state  *state
	fs     filesystem.FileSystem
	logger *slog.Logger
}

// releaseUnreachable is the GC cleanup for a FileLock that was dropped while locked.
func releaseUnreachable(arg releaseArg) {
	if !arg.state.locked.Load() {
		return
	}
	if err := removeSentinel(arg.fs, arg.path); err != nil {
		arg.logger.Warn("best-effort release failed", "path", arg.path, "reason", "unreachable", "error", err)
		return
	}
	arg.state.locked.Store(false)
	arg.logger.Debug("sentinel lock released", "path", arg.path, "reason", "unreachable")
}
