package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndDelete(t *testing.T) {
	s := NewStore(t.TempDir())
	rel, err := s.SaveReader("my photo.JPG", strings.NewReader("jpegdata"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "images/"))
	assert.True(t, strings.HasSuffix(rel, "_my_photo.JPG"))
	assert.True(t, s.Exists(rel))

	data, err := os.ReadFile(filepath.Join(s.Root(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))

	require.NoError(t, s.Delete(rel))
	assert.False(t, s.Exists(rel))
	// deleting twice is fine
	require.NoError(t, s.Delete(rel))
	require.NoError(t, s.Delete(""))
}

func TestDeleteRefusesEscapes(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.ErrorIs(t, s.Delete("../../etc/passwd"), ErrOutsideRoot)
	assert.ErrorIs(t, s.Delete("."), ErrOutsideRoot)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "a.png", cleanName("../../a.png"))
	assert.Equal(t, "c.jpg", cleanName(`C:\b\c.jpg`))
	assert.Equal(t, "upload", cleanName(""))
	assert.Len(t, cleanName(strings.Repeat("x", 300)+".png"), 100)
}

func TestSweep(t *testing.T) {
	s := NewStore(t.TempDir())
	keep, err := s.SaveReader("keep.png", strings.NewReader("k"))
	require.NoError(t, err)
	orphan, err := s.SaveReader("orphan.png", strings.NewReader("o"))
	require.NoError(t, err)
	fresh, err := s.SaveReader("fresh.png", strings.NewReader("f"))
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	for _, rel := range []string{keep, orphan} {
		require.NoError(t, os.Chtimes(filepath.Join(s.Root(), filepath.FromSlash(rel)), old, old))
	}

	n, err := s.Sweep(map[string]bool{keep: true}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, s.Exists(keep))
	assert.False(t, s.Exists(orphan))
	assert.True(t, s.Exists(fresh))
}

func TestSweepMissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"))
	n, err := s.Sweep(nil, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}
