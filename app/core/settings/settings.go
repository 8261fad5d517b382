package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hydraide/sentinel/app/core/filelock"
	"github.com/hydraide/sentinel/app/core/lockpath"
	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvRootPath     = "SENTINEL_ROOT_PATH"
	EnvLockDir      = "SENTINEL_LOCK_DIR"
	EnvPollInterval = "SENTINEL_POLL_INTERVAL"
	EnvLogLevel     = "LOG_LEVEL"
)

// Settings holds the runtime configuration of sentinelctl.
type Settings struct {
	RootPath     string
	LockDir      string
	PollInterval time.Duration
	LogLevel     string
}

// Load reads .env files (the working directory's .env when none are given)
// and then the environment. Variables already set in the environment win
// over .env values. Missing .env files are not an error, malformed ones are.
func Load(envFiles ...string) (*Settings, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	s := &Settings{
		PollInterval: filelock.DefaultPollInterval,
		LogLevel:     "info",
	}

	s.RootPath = os.Getenv(EnvRootPath)
	if s.RootPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%s is not set and the home directory is unknown: %w", EnvRootPath, err)
		}
		s.RootPath = filepath.Join(home, ".sentinel")
	}

	s.LockDir = os.Getenv(EnvLockDir)
	if s.LockDir == "" {
		dir, err := lockpath.DefaultDir()
		if err != nil {
			return nil, err
		}
		s.LockDir = dir
	}

	if v := os.Getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s must be a duration such as 2ms: %w", EnvPollInterval, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", EnvPollInterval, v)
		}
		s.PollInterval = d
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = strings.ToLower(v)
	}

	return s, nil
}

// Level returns the slog level for LogLevel.
func (s *Settings) Level() slog.Level {
	return ParseLogLevel(s.LogLevel)
}

// ParseLogLevel maps debug|info|warn|error to a slog level; anything else is info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
