package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hydraide/sentinel/app/core/filelock"
	"github.com/hydraide/sentinel/app/panichandler"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	waitTimeout    time.Duration
	waitNoProgress bool
)

var waitCmd = &cobra.Command{
	Use:   "wait <name|path>",
	Short: "Block until the lock is free",
	Long: `Polls the sentinel file until it disappears. Returns immediately if the lock
is free. With --timeout the command gives up with exit code 2.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveLock(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		info := JsonLockInfo{Lock: args[0], Path: path, Action: "wait"}

		start := time.Now()
		if err := waitFree(cmd.Context(), cmd.ErrOrStderr(), path, waitTimeout, !waitNoProgress && !jsonFlag); err != nil {
			info.Locked = isStillHeld(err)
			return report(cmd, info, "", err)
		}

		return report(cmd, info, fmt.Sprintf("🟢 %s is free (waited %s)", path, time.Since(start).Round(time.Millisecond)), nil)
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)

	waitCmd.Flags().DurationVarP(&waitTimeout, "timeout", "t", 0, "Give up after this duration (0 waits forever)")
	waitCmd.Flags().BoolVar(&waitNoProgress, "no-progress", false, "Do not show the spinner")
}

// waitFree blocks until the sentinel at path is gone. It only observes the
// lock and never removes the sentinel.
func waitFree(ctx context.Context, progressOut io.Writer, path string, timeout time.Duration, progress bool) error {
	fl, err := newFileLock(path)
	if err != nil {
		return err
	}
	defer fl.Detach()

	if !fl.Locked() {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if progress {
		stop := spin(progressOut, "⏳ waiting for "+path)
		defer stop()
	}

	err = fl.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w %s after %s", filelock.ErrWaitTimeout, path, timeout)
	}
	return err
}

// isStillHeld reports whether err means the lock was seen held when the
// command gave up, as opposed to a failure to observe it.
func isStillHeld(err error) bool {
	return errors.Is(err, filelock.ErrWaitTimeout) ||
		errors.Is(err, filelock.ErrAlreadyLocked) ||
		errors.Is(err, errTakenWhileWaiting) ||
		errors.Is(err, context.Canceled)
}

// spin shows an indeterminate spinner until the returned stop function is called.
func spin(out io.Writer, description string) (stop func()) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	finished := make(chan struct{})
	panichandler.SafeGo("wait spinner", func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	})

	return func() {
		close(done)
		<-finished
	}
}
