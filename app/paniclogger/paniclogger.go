// Package paniclogger records recovered panics in a local file so they
// survive even when stderr of a short-lived sentinelctl process is lost.
package paniclogger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	panicLogFile = "panic.log"
	maxFileSize  = 10 * 1024 * 1024 // 10MB, then rotated to panic.log.old
)

var (
	logFile  *os.File
	logDir   string
	fileLock sync.Mutex
	initOnce sync.Once
	initErr  error
)

// Init opens rootPath/logs/panic.log for appending. Only the first call has any effect.
func Init(rootPath string) error {
	initOnce.Do(func() {
		logDir = filepath.Join(rootPath, "logs")
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			initErr = fmt.Errorf("failed to create logs directory: %w", err)
			return
		}

		var err error
		logFile, err = os.OpenFile(filepath.Join(logDir, panicLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			initErr = fmt.Errorf("failed to open panic log file: %w", err)
		}
	})
	return initErr
}

// LogPanic appends a panic entry. Without a successful Init it writes to stderr.
func LogPanic(context string, panicError any, stackTrace string) {
	fileLock.Lock()
	defer fileLock.Unlock()

	entry := fmt.Sprintf(
		"\n==== PANIC %s ====\nContext: %s\nError:   %v\n\n%s\n",
		time.Now().Format(time.RFC3339Nano), context, panicError, stackTrace,
	)

	if logFile == nil {
		_, _ = fmt.Fprint(os.Stderr, entry)
		return
	}

	if err := rotateIfNeeded(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to rotate panic log: %v\n", err)
	}
	if logFile == nil {
		_, _ = fmt.Fprint(os.Stderr, entry)
		return
	}

	if _, err := logFile.WriteString(entry); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to write panic log: %v\n", err)
	}
	_ = logFile.Sync()
}

// rotateIfNeeded must be called with fileLock held.
func rotateIfNeeded() error {
	stat, err := logFile.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < maxFileSize {
		return nil
	}

	_ = logFile.Close()
	logFile = nil

	logPath := filepath.Join(logDir, panicLogFile)
	backupPath := logPath + ".old"
	_ = os.Remove(backupPath)
	if err := os.Rename(logPath, backupPath); err != nil {
		return err
	}

	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	return err
}

// Close closes the panic log file.
func Close() error {
	fileLock.Lock()
	defer fileLock.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Reset resets the logger state. FOR TESTING ONLY.
func Reset() {
	fileLock.Lock()
	defer fileLock.Unlock()

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = nil
	logDir = ""
	initOnce = sync.Once{}
	initErr = nil
}
