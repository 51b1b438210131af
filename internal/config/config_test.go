package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s := Load("fallback-key")
	assert.Equal(t, DefaultHost, s.Host)
	assert.Equal(t, DefaultPort, s.Port)
	assert.Equal(t, "fallback-key", s.APIKey)
	assert.True(t, s.AutoStart)
	assert.Equal(t, DefaultHost+":53211", s.Addr())
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("PROCESS_MANAGER_HOST", "0.0.0.0")
	t.Setenv("PROCESS_MANAGER_PORT", "9000")
	t.Setenv("PROCESS_MANAGER_API_KEY", "from-env")
	t.Setenv("PROCESS_MANAGER_AUTO_START", "false")
	t.Setenv("PROCESS_MANAGER_HISTORY_DB", "/tmp/history.db")

	s := Load("fallback-key")
	assert.Equal(t, "0.0.0.0", s.Host)
	assert.Equal(t, 9000, s.Port)
	assert.Equal(t, "from-env", s.APIKey)
	assert.False(t, s.AutoStart)
	assert.Equal(t, "/tmp/history.db", s.HistoryDB)
}

func TestLoadBulkFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bulk.toml")
	content := `
[[processes]]
name = "web"
bin_path = "/usr/bin/web-server"
args = ["--port", "8080"]
auto_restart = true

[[processes]]
name = "worker"
bin_path = "/usr/bin/worker"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	procs, err := LoadBulkFile(path)
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.Equal(t, "web", procs[0].Name)
	assert.Equal(t, "/usr/bin/web-server", procs[0].BinPath)
	assert.True(t, procs[0].AutoRestart)
	assert.Equal(t, "worker", procs[1].Name)
}

func TestLoadBulkFileRejectsInvalidEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bulk.toml")
	content := `
[[processes]]
name = "missing-bin-path"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadBulkFile(path)
	assert.Error(t, err)
}

func TestLoadBulkFileMissingFile(t *testing.T) {
	_, err := LoadBulkFile("/no/such/file.toml")
	assert.Error(t, err)
}
