package localstore

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T, quota int64) *Store {
	t.Helper()
	s, err := Open(Options{QuotaBytes: quota})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := newMemoryStore(t, 0)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetString("GEMINI_API_KEY", "abc"))
	require.NoError(t, s.SetString("GEMINI_API_KEY", "abcdef"))

	got, err := s.GetString("GEMINI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "abcdef", got)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"GEMINI_API_KEY"}, keys)

	require.NoError(t, s.Delete("GEMINI_API_KEY"))
	_, err = s.Get("GEMINI_API_KEY")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuotaKeepsPreviousValue(t *testing.T) {
	s := newMemoryStore(t, 16)

	require.NoError(t, s.SetString("history", "0123456789"))
	require.NoError(t, s.SetString("key", "abcd"))

	err := s.SetString("history", strings.Repeat("x", 13))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	got, err := s.GetString("history")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", got)

	// Replacing a value only counts the new size against the quota.
	require.NoError(t, s.SetString("history", strings.Repeat("y", 12)))
	usage, err := s.Usage()
	require.NoError(t, err)
	assert.Equal(t, int64(16), usage)
}

func TestFileBackedStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "studio.db")

	s, err := Open(Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.SetString("k", "v"))
	require.NoError(t, s.Close())

	s, err = Open(Options{Path: path})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetString("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
