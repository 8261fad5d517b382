package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hydraide/sentinel/app/core/cleanup"
	"github.com/hydraide/sentinel/app/panichandler"
	"github.com/spf13/cobra"
)

var (
	runTimeout    time.Duration
	runNoProgress bool
)

var runCmd = &cobra.Command{
	Use:   "run <name|path> -- <command> [args...]",
	Short: "Wait for the lock, hold it while a command runs, then release it",
	Long: `Waits until the lock is free, creates the sentinel, runs the command and
removes the sentinel when the command exits, whatever its exit status.
While the command runs, SIGINT, SIGTERM and SIGHUP are forwarded to it and
the lock is held until it exits. A signal before the command starts releases
the lock and exits with 128+signal.
The exit code is the command's exit code. With --json the command's output
goes to stderr and stdout carries only the JSON document.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveLock(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		info := JsonLockInfo{Lock: args[0], Path: path, Action: "run"}
		session := &runSession{}

		stopSignals := watchSignals(session)
		defer stopSignals()

		ran, err := runLocked(cmd, session, path, args[1], args[2:])
		if ran {
			code := exitCode(err)
			info.ExitCode = &code
		}
		if err != nil && !ran {
			info.Locked = isStillHeld(err)
		}
		// the command's own output is the human readable result
		return report(cmd, info, "", err)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", 0, "Give up waiting for the lock after this duration (0 waits forever)")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "Do not show the spinner while waiting")
}

var errTakenWhileWaiting = errors.New("lock was taken while waiting")

// runLocked waits for the lock, takes it and runs the command. ran reports
// whether the command was started.
func runLocked(cmd *cobra.Command, session *runSession, path, name string, args []string) (ran bool, err error) {
	if err := waitFree(cmd.Context(), cmd.ErrOrStderr(), path, runTimeout, !runNoProgress && !jsonFlag); err != nil {
		return false, err
	}

	fl, err := newFileLock(path)
	if err != nil {
		return false, err
	}
	defer fl.Close()
	if fl.Locked() {
		// someone created the sentinel between the wait and now
		fl.Detach()
		return false, &exitError{code: exitConflict, err: fmt.Errorf("%s: %w", path, errTakenWhileWaiting)}
	}

	if err := fl.Lock(); err != nil {
		return false, err
	}
	defer cleanup.Register(func(os.Signal) { fl.Close() })()

	slog.Debug("running command under lock", "path", path, "command", append([]string{name}, args...))

	stdout := cmd.OutOrStdout()
	if jsonFlag {
		stdout = cmd.ErrOrStderr()
	}
	return runChild(session, cmd.InOrStdin(), stdout, cmd.ErrOrStderr(), name, args)
}

// runSession routes termination signals: to the child while it runs,
// otherwise to the cleanup registry.
type runSession struct {
	mu    sync.Mutex
	child *os.Process
}

// start starts c and publishes its process, so a signal arriving right after
// the start is already forwarded.
func (s *runSession) start(c *exec.Cmd) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := c.Start(); err != nil {
		return err
	}
	s.child = c.Process
	return nil
}

func (s *runSession) finished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.child = nil
}

// forward sends sig to the running child and reports whether there was one.
func (s *runSession) forward(sig os.Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.child == nil {
		return false
	}
	slog.Info("forwarding signal to command", "signal", sig.String(), "pid", s.child.Pid)
	if err := s.child.Signal(sig); err != nil {
		slog.Warn("failed to forward signal", "signal", sig.String(), "error", err)
	}
	return true
}

func runChild(session *runSession, stdin io.Reader, stdout, stderr io.Writer, name string, args []string) (bool, error) {
	child := exec.Command(name, args...)
	child.Stdin = stdin
	child.Stdout = stdout
	child.Stderr = stderr

	if err := session.start(child); err != nil {
		return false, usageError(fmt.Errorf("failed to start %s: %w", name, err))
	}
	err := child.Wait()
	session.finished()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			code = signalExitCode(ws.Signal())
		} else if code < 0 {
			code = exitUsage
		}
		return true, &exitError{code: code}
	}
	return true, err
}

// notifySignals subscribes to termination signals. Replaced in tests.
var notifySignals = func() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, cleanup.Signals...)
	return ch, func() { signal.Stop(ch) }
}

// watchSignals forwards termination signals to the session's child. When no
// child is running it runs the cleanup registry and exits with 128+signal.
// The returned function stops watching.
func watchSignals(session *runSession) (stop func()) {
	ch, unsubscribe := notifySignals()
	ctx, cancel := context.WithCancel(context.Background())
	panichandler.SafeGo("run signal watcher", func() {
		sig := cleanup.Serve(ctx, ch, session.forward)
		if sig == nil {
			return
		}
		exitFunc(signalExitCode(sig))
	})
	return func() {
		cancel()
		unsubscribe()
	}
}

func signalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return exitUsage
}
