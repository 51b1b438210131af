package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "process_configs.json")
	store := NewStore(path, nil)

	cat := New()
	cat.Put(Config{
		ID:          "a1",
		Name:        "openlist",
		BinPath:     "/usr/bin/openlist",
		Args:        []string{"server", "--port", "5244"},
		LogFile:     "openlist.log",
		WorkingDir:  "/srv/openlist",
		EnvVars:     map[string]string{"HOME": "/srv/openlist"},
		AutoRestart: true,
		Priority:    10,
		CreatedAt:   1000,
		UpdatedAt:   1000,
	})
	cat.Put(Config{
		ID:        "a2",
		Name:      "sidecar",
		BinPath:   "/usr/bin/sidecar",
		Schedule:  "@every 5m",
		CreatedAt: 2000,
		UpdatedAt: 2000,
	})
	require.NoError(t, store.Save(cat))

	loaded := NewStore(path, nil).Load()
	assert.Equal(t, cat.List(), loaded.List())
	assert.Equal(t, cat.IDs(), loaded.IDs())
}

func TestLoadMissingFileYieldsEmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "does-not-exist.json"), nil)
	cat := store.Load()
	assert.Equal(t, 0, cat.Len())
}

func TestLoadMalformedJSONYieldsEmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "process_configs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o600))

	cat := NewStore(path, nil).Load()
	assert.Equal(t, 0, cat.Len())
}

func TestLoadSkipsInvalidEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "process_configs.json")
	raw := `{"processes":[
		{"id":"good","name":"good","bin_path":"/bin/true","created_at":1,"updated_at":1},
		{"id":"bad","name":"","bin_path":"","created_at":1,"updated_at":1}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cat := NewStore(path, nil).Load()
	require.Equal(t, 1, cat.Len())
	got, ok := cat.Get("good")
	require.True(t, ok)
	assert.Equal(t, "good", got.Name)
}

func TestSaveWritesFileMode0600(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "process_configs.json")
	store := NewStore(path, nil)

	require.NoError(t, store.Save(New()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "process_configs.json")
	store := NewStore(path, nil)

	cat := New()
	cat.Put(Config{ID: "a1", Name: "n", BinPath: "/bin/true", CreatedAt: 1, UpdatedAt: 1})
	require.NoError(t, store.Save(cat))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "process_configs.json", entries[0].Name())
}

func TestSaveOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "process_configs.json")
	store := NewStore(path, nil)

	first := New()
	first.Put(Config{ID: "a1", Name: "one", BinPath: "/bin/true", CreatedAt: 1, UpdatedAt: 1})
	require.NoError(t, store.Save(first))

	second := New()
	second.Put(Config{ID: "a2", Name: "two", BinPath: "/bin/false", CreatedAt: 2, UpdatedAt: 2})
	require.NoError(t, store.Save(second))

	loaded := NewStore(path, nil).Load()
	require.Equal(t, 1, loaded.Len())
	_, ok := loaded.Get("a1")
	assert.False(t, ok)
	got, ok := loaded.Get("a2")
	require.True(t, ok)
	assert.Equal(t, "two", got.Name)
}
