package filesystem

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quiet fs implementation
func newFSForTest() FileSystem {
	return New(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
}

func TestExists(t *testing.T) {
	fs := newFSForTest()
	ctx := context.Background()
	tmp := t.TempDir()

	missing := filepath.Join(tmp, "missing.lock")
	exists, err := fs.Exists(ctx, missing)
	require.NoError(t, err)
	assert.False(t, exists)

	present := filepath.Join(tmp, "present.lock")
	require.NoError(t, os.WriteFile(present, nil, 0o644))
	exists, err = fs.Exists(ctx, present)
	require.NoError(t, err)
	assert.True(t, exists)

	// a directory counts as an existing entry
	exists, err = fs.Exists(ctx, tmp)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateEmpty_TruncatesExistingFile(t *testing.T) {
	fs := newFSForTest()
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "x.lock")

	require.NoError(t, os.WriteFile(p, []byte("stale content"), 0o644))
	require.NoError(t, fs.CreateEmpty(ctx, p))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
	assert.Equal(t, int64(0), info.Size())
}

func TestCreateEmpty_MissingParent(t *testing.T) {
	fs := newFSForTest()
	p := filepath.Join(t.TempDir(), "no", "such", "dir", "x.lock")

	err := fs.CreateEmpty(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRemove(t *testing.T) {
	fs := newFSForTest()
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "x.lock")

	require.NoError(t, os.WriteFile(p, nil, 0o644))
	require.NoError(t, fs.Remove(ctx, p))
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	err = fs.Remove(ctx, p)
	assert.True(t, errors.Is(err, os.ErrNotExist), "second remove should report not-exist, got %v", err)
}

func TestRemove_NonEmptyDirectory(t *testing.T) {
	fs := newFSForTest()
	dir := filepath.Join(t.TempDir(), "x.lock")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "child"), 0o755))

	err := fs.Remove(context.Background(), dir)
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}

func TestCreateDir(t *testing.T) {
	fs := newFSForTest()
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	require.NoError(t, fs.CreateDir(ctx, dir, 0o755))
	require.NoError(t, fs.CreateDir(ctx, dir, 0o755))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	if runtime.GOOS != "windows" {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		assert.Error(t, fs.CreateDir(ctx, filepath.Join(file, "sub"), 0o755))
	}
}
