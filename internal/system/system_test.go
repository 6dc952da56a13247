package system

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(dir, "old.storyboard.zip"), now.Add(-2*time.Hour))
	touch(t, filepath.Join(dir, "NEW.STORYBOARD.ZIP"), now.Add(-time.Hour))
	touch(t, filepath.Join(dir, "newest.txt"), now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.storyboard.zip"), 0o755))

	got, err := FindLatest(dir, ".storyboard.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "NEW.STORYBOARD.ZIP"), got)

	_, err = FindLatest(dir, ".yaml")
	assert.Error(t, err)

	_, err = FindLatest(filepath.Join(dir, "missing"), ".yaml")
	assert.Error(t, err)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(dir, "b.yaml"), now)
	touch(t, filepath.Join(dir, "a.yml"), now)
	touch(t, filepath.Join(dir, "c.json"), now)

	got, err := ListFiles(dir, ".yaml", ".yml")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, got)
}

func TestImagePool(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 8, 4)

	img := pool.Get(rect)
	require.NotNil(t, img)
	assert.Equal(t, rect, img.Rect)
	pool.Put(img)

	again := pool.Get(rect)
	assert.Equal(t, rect, again.Rect)

	// Unknown sizes are ignored.
	pool.Put(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	pool.Put(nil)
}

func TestHostReport(t *testing.T) {
	r := HostReport(context.Background(), t.TempDir())
	assert.Positive(t, r.LogicalCPUs)
	assert.NotEmpty(t, r.DiskPath)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(1536*1024))
	assert.Equal(t, "2.0 GiB", FormatBytes(2<<30))
}
