package infra

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

func TestFileGrantStore_Persists(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewFileGrantStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Set(camera, domain.Granted))
	require.NoError(t, s1.Close())

	s2, err := NewFileGrantStore(dir)
	require.NoError(t, err)
	status, err := s2.Get(camera)
	require.NoError(t, err)
	assert.Equal(t, domain.Granted, status)
	assert.Equal(t, filepath.Join(dir, grantFileName), s2.Path())
}

func TestFileGrantStore_FileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.json")
	s := NewFileGrantStoreWithPath(path)
	require.NoError(t, s.Set(camera, domain.Granted))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var f grantFile
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, 1, f.Version)
	assert.Equal(t, domain.Granted, f.Grants[camera])
	assert.NotZero(t, f.UpdatedAt)
	assert.Nil(t, f.Session)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileGrantStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s := NewFileGrantStoreWithPath(path)
	_, err := s.Get(camera)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestFileGrantStore_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.json")
	// Two handles on one file behave like two CLI processes.
	a := NewFileGrantStoreWithPath(path)
	b := NewFileGrantStoreWithPath(path)

	ids := []string{
		"android.permission.CAMERA",
		"android.permission.RECORD_AUDIO",
		"android.permission.READ_CONTACTS",
		"android.permission.SEND_SMS",
		"android.permission.READ_SMS",
		"android.permission.CALL_PHONE",
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		store := a
		if i%2 == 1 {
			store = b
		}
		wg.Add(1)
		go func(s *FileGrantStore, id string) {
			defer wg.Done()
			assert.NoError(t, s.Set(id, domain.Granted))
		}(store, id)
	}
	wg.Wait()

	all, err := a.All()
	require.NoError(t, err)
	assert.Len(t, all, len(ids))
}
