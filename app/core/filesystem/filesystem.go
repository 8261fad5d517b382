package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileSystem defines the file operations the sentinel lock relies on.
type FileSystem interface {
	// Exists reports whether an entry exists at the specified path.
	// Parameters:
	//   - ctx: Context for logging
	//   - path: The path to check
	// Returns:
	//   - bool: True if something exists at path, false if it does not
	//   - error: Any error other than "does not exist" encountered during the check
	Exists(ctx context.Context, path string) (bool, error)

	// CreateEmpty creates an empty file at the specified path.
	// If the file already exists it is truncated to zero bytes.
	// Parameters:
	//   - ctx: Context for logging
	//   - path: The file path to create
	// Returns:
	//   - error: Any error encountered during file creation
	CreateEmpty(ctx context.Context, path string) error

	// Remove removes the file at the specified path.
	// The raw error is returned so callers can test it with errors.Is(err, os.ErrNotExist).
	Remove(ctx context.Context, path string) error

	// CreateDir creates a directory (and parents) at the specified path.
	// If the directory already exists, it returns nil.
	CreateDir(ctx context.Context, path string, perm os.FileMode) error
}

// filePerm is the mode of freshly created sentinel files.
const filePerm os.FileMode = 0o644

// fileSystemImpl implements the FileSystem interface on top of the os package.
type fileSystemImpl struct {
	logger *slog.Logger
}

// New creates a new FileSystem. If logger is nil, slog.Default() is used.
func New(logger *slog.Logger) FileSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileSystemImpl{logger: logger}
}

// Exists implements the Exists method of the FileSystem interface.
func (fs *fileSystemImpl) Exists(ctx context.Context, path string) (bool, error) {
	cleanPath := filepath.Clean(path)

	_, err := os.Stat(cleanPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}

	fs.logger.ErrorContext(ctx, "Failed to check existence", "path", cleanPath, "error", err)
	return false, err
}

// CreateEmpty implements the CreateEmpty method of the FileSystem interface.
func (fs *fileSystemImpl) CreateEmpty(ctx context.Context, path string) error {
	cleanPath := filepath.Clean(path)
	fs.logger.DebugContext(ctx, "Creating empty file", "path", cleanPath)

	file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		fs.logger.ErrorContext(ctx, "Failed to create empty file", "path", cleanPath, "error", err)
		return err
	}

	if err := file.Close(); err != nil {
		fs.logger.ErrorContext(ctx, "Failed to close file after creation", "path", cleanPath, "error", err)
		return err
	}

	return nil
}

// Remove implements the Remove method of the FileSystem interface.
func (fs *fileSystemImpl) Remove(ctx context.Context, path string) error {
	cleanPath := filepath.Clean(path)
	fs.logger.DebugContext(ctx, "Removing file", "path", cleanPath)

	if err := os.Remove(cleanPath); err != nil {
		if os.IsNotExist(err) {
			fs.logger.DebugContext(ctx, "File already absent", "path", cleanPath)
		} else {
			fs.logger.ErrorContext(ctx, "Failed to remove file", "path", cleanPath, "error", err)
		}
		return err
	}

	return nil
}

// CreateDir implements the CreateDir method of the FileSystem interface.
func (fs *fileSystemImpl) CreateDir(ctx context.Context, path string, perm os.FileMode) error {
	cleanPath := filepath.Clean(path)
	fs.logger.DebugContext(ctx, "Creating directory", "path", cleanPath, "perm", perm)

	if err := os.MkdirAll(cleanPath, perm); err != nil {
		fs.logger.ErrorContext(ctx, "Failed to create directory", "path", cleanPath, "error", err)
		return fmt.Errorf("failed to create directory %s: %w", cleanPath, err)
	}

	return nil
}
