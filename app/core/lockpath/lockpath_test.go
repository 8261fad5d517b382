package lockpath

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hydraide/sentinel/app/core/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare name", input: "cache", want: filepath.Join(dir, "cache.lock")},
		{name: "bare name with dots", input: "build.v2", want: filepath.Join(dir, "build.v2.lock")},
		{name: "absolute path", input: filepath.Join(dir, "other", "x.lock"), want: filepath.Join(dir, "other", "x.lock")},
		{name: "relative path", input: "sub/x.lock", want: filepath.Join(cwd, "sub", "x.lock")},
		{name: "lock extension means path", input: "x.lock", want: filepath.Join(cwd, "x.lock")},
		{name: "empty", input: "", wantErr: true},
		{name: "dot", input: ".", wantErr: true},
		{name: "dot dot", input: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(dir, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForResource(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(t.TempDir(), "workspace")
	b := filepath.Join(t.TempDir(), "workspace")

	pa, err := ForResource(dir, a)
	require.NoError(t, err)
	pb, err := ForResource(dir, b)
	require.NoError(t, err)
	again, err := ForResource(dir, a)
	require.NoError(t, err)

	assert.Equal(t, pa, again, "same resource must map to the same sentinel")
	assert.NotEqual(t, pa, pb, "same base name in different places must not collide")
	assert.Equal(t, dir, filepath.Dir(pa))
	assert.True(t, strings.HasPrefix(filepath.Base(pa), "workspace-"))
	assert.True(t, strings.HasSuffix(pa, Extension))
	// base + "-" + 16 hex digits + ".lock"
	assert.Len(t, filepath.Base(pa), len("workspace-")+16+len(Extension))

	_, err = ForResource(dir, "")
	assert.Error(t, err)
}

func TestForResource_RelativeEqualsAbsolute(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)

	rel, err := ForResource(dir, "data")
	require.NoError(t, err)
	abs, err := ForResource(dir, filepath.Join(cwd, "data"))
	require.NoError(t, err)
	assert.Equal(t, abs, rel)
}

func TestDefaultDir(t *testing.T) {
	orig := goos
	defer func() { goos = orig }()

	goos = "linux"
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lock/sentinel", dir)

	goos = "darwin"
	dir, err = DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.TempDir(), "sentinel"), dir)

	goos = "windows"
	t.Setenv("ProgramData", "")
	_, err = DefaultDir()
	assert.Error(t, err)

	t.Setenv("ProgramData", `C:\ProgramData`)
	dir, err = DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(`C:\ProgramData`, "Sentinel", "locks"), dir)
}

func TestEnsureDir(t *testing.T) {
	fsys := filesystem.New(nil)
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(context.Background(), fsys, dir))
	require.NoError(t, EnsureDir(context.Background(), fsys, dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// dirRecorder records CreateDir calls and fails them with err.
type dirRecorder struct {
	filesystem.FileSystem
	path string
	perm os.FileMode
	err  error
}

func (d *dirRecorder) CreateDir(_ context.Context, path string, perm os.FileMode) error {
	d.path, d.perm = path, perm
	return d.err
}

func TestEnsureDir_UsesFileSystem(t *testing.T) {
	rec := &dirRecorder{err: errors.New("read-only")}

	err := EnsureDir(context.Background(), rec, "/locks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/locks")
	assert.ErrorIs(t, err, rec.err)
	assert.Equal(t, "/locks", rec.path)
	assert.Equal(t, DirPerm, rec.perm)
}
