package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Shared KV behaviour
// ============================================

func runKVContract(t *testing.T, kv KV) {
	t.Helper()

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("userPreferences", []byte(`{"theme":"dark"}`)))
	value, ok, err := kv.Get("userPreferences")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"theme":"dark"}`, string(value))

	require.NoError(t, kv.Set("userPreferences", []byte(`{"theme":"light"}`)))
	value, _, _ = kv.Get("userPreferences")
	assert.JSONEq(t, `{"theme":"light"}`, string(value))

	require.NoError(t, kv.Delete("userPreferences"))
	_, ok, err = kv.Get("userPreferences")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, kv.Delete("userPreferences"), "deleting twice is fine")
	assert.ErrorIs(t, kv.Set("", []byte("x")), ErrEmptyKey)
}

func TestMemoryStore(t *testing.T) {
	runKVContract(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ms := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, ms.Set("k", buf))
	buf[0] = 'z'

	value, _, _ := ms.Get("k")
	assert.Equal(t, "abc", string(value))
	value[1] = 'z'
	again, _, _ := ms.Get("k")
	assert.Equal(t, "abc", string(again))
	assert.ElementsMatch(t, []string{"k"}, ms.Keys())
}

func TestFileStore(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, err)
	runKVContract(t, fs)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("session", []byte(`{"token":"abc"}`)))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	value, ok, err := second.Get("session")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"token":"abc"}`, string(value))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, fs.Set("../escape", []byte("x")))
	_, _, err = fs.Get("a/b")
	assert.Error(t, err)
}
