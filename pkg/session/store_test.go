package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	sess := &Session{
		Username:  "alice",
		Device:    json.RawMessage(`{"device_id":"d-1"}`),
		AuthState: json.RawMessage(`{"cookies":"abc"}`),
	}
	require.NoError(t, store.Save(sess))
	assert.False(t, sess.SavedAt.IsZero())

	loaded, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Username)
	assert.JSONEq(t, `{"device_id":"d-1"}`, string(loaded.Device))
	assert.JSONEq(t, `{"cookies":"abc"}`, string(loaded.AuthState))
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Load("nobody")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestStoreLoadCorrupt(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		data string
	}{
		{"not json", "{truncated"},
		{"missing username", `{"auth_state":{"cookies":"abc"}}`},
		{"missing auth state", `{"username":"alice"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(store.Path("alice"), []byte(tt.data), 0600))

			_, err := store.Load("alice")
			var corrupt *SessionCorruptError
			require.ErrorAs(t, err, &corrupt)
			assert.Equal(t, "alice", corrupt.Username)
		})
	}
}

func TestStoreSaveRejectsEmptyUsername(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.Save(nil))
	assert.Error(t, store.Save(&Session{}))
}

func TestStoreSaveFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	store := newTestStore(t)

	require.NoError(t, store.Save(&Session{
		Username:  "alice",
		AuthState: json.RawMessage(`{"cookies":"abc"}`),
	}))

	info, err := os.Stat(store.Path("alice"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreSaveLeavesNoTempFile(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&Session{
		Username:  "alice",
		AuthState: json.RawMessage(`{"cookies":"abc"}`),
	}))

	entries, err := os.ReadDir(filepath.Dir(store.Path("alice")))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestStoreDeleteAndExists(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&Session{
		Username:  "alice",
		AuthState: json.RawMessage(`{"cookies":"abc"}`),
	}))
	assert.True(t, store.Exists("alice"))

	require.NoError(t, store.Delete("alice"))
	assert.False(t, store.Exists("alice"))

	// Deleting an absent session is not an error.
	require.NoError(t, store.Delete("alice"))
}
