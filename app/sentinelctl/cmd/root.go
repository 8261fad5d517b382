package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hydraide/sentinel/app/core/filelock"
	"github.com/hydraide/sentinel/app/core/filesystem"
	"github.com/hydraide/sentinel/app/core/lockpath"
	"github.com/hydraide/sentinel/app/core/settings"
	"github.com/hydraide/sentinel/app/paniclogger"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK       = 0
	exitUsage    = 1
	exitConflict = 2
	exitIO       = 3
)

// Global flags
var (
	lockDirFlag  string
	resourceFlag bool
	jsonFlag     bool
)

var cfg *settings.Settings

// exitFunc is replaced in tests.
var exitFunc = os.Exit

var rootCmd = &cobra.Command{
	Use:     "sentinelctl",
	Short:   "Sentinel file lock CLI",
	Version: Version,
	Long: `
🔒 Sentinel file lock CLI (` + Version + `)

Coordinates exclusive access to a shared resource across processes.
A lock is held while its sentinel file exists and released by deleting it.

COMMANDS:
  lock        Create the sentinel and leave it in place
  unlock      Remove the sentinel
  status      Show whether the lock is held
  wait        Block until the lock is free
  run         Wait, lock, run a command, release
  version     Display version information

A lock is addressed by name (stored in the lock directory) or by path.
With --resource the argument is the protected resource and the sentinel
name is derived from its absolute path.

EXAMPLES:
  sentinelctl lock nightly-build
  sentinelctl status nightly-build --json
  sentinelctl wait --resource ./cache --timeout 30s
  sentinelctl run --resource ./cache -- make cache
  sentinelctl unlock /tmp/x.lock
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return setup()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the CLI and exits with a code describing the outcome.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var ee *exitError
	if !errors.As(err, &ee) || ee.err != nil {
		fmt.Fprintln(os.Stderr, "❌ Error:", err)
	}
	exitFunc(exitCode(err))
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("sentinelctl {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&lockDirFlag, "dir", "d", "", "Lock directory for named locks (default $SENTINEL_LOCK_DIR or the OS lock directory)")
	rootCmd.PersistentFlags().BoolVarP(&resourceFlag, "resource", "r", false, "Treat the argument as the protected resource path")
	rootCmd.PersistentFlags().BoolVarP(&jsonFlag, "json", "j", false, "Return structured output in JSON format")
}

// setup loads settings, installs the logger and opens the panic log.
func setup() error {
	s, err := settings.Load()
	if err != nil {
		return usageError(err)
	}
	cfg = s

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	})))

	if err := paniclogger.Init(cfg.RootPath); err != nil {
		slog.Warn("failed to initialize panic logger", "error", err)
	}
	return nil
}

// resolveLock maps a command argument to a sentinel path and makes sure the
// lock directory exists when the sentinel lives in it.
func resolveLock(ctx context.Context, arg string) (string, error) {
	dir := lockDirFlag
	if dir == "" {
		dir = cfg.LockDir
	}

	var (
		path string
		err  error
	)
	if resourceFlag {
		path, err = lockpath.ForResource(dir, arg)
	} else {
		path, err = lockpath.Resolve(dir, arg)
	}
	if err != nil {
		return "", usageError(err)
	}

	if filepath.Dir(path) == filepath.Clean(dir) {
		if err := lockpath.EnsureDir(ctx, filesystem.New(slog.Default()), dir); err != nil {
			return "", &exitError{code: exitIO, err: err}
		}
	}
	return path, nil
}

func newFileLock(path string) (*filelock.FileLock, error) {
	return filelock.New(path,
		filelock.WithPollInterval(cfg.PollInterval),
		filelock.WithLogger(slog.Default()),
	)
}

// exitError carries an explicit exit code. A nil err means the failure was
// already reported and nothing more should be printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	switch {
	case errors.Is(err, filelock.ErrAlreadyLocked),
		errors.Is(err, filelock.ErrNotLocked),
		errors.Is(err, filelock.ErrWaitTimeout):
		return exitConflict
	case errors.Is(err, filelock.ErrIO):
		return exitIO
	default:
		return exitUsage
	}
}
