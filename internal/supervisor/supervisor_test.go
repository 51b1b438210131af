package supervisor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/openlist-service/internal/catalog"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	store := catalog.NewStore(filepath.Join(dir, "process_configs.json"), nil)
	cat := store.Load()
	return New(cat, store, nil, WithLogDir(dir))
}

func TestCreateGetListDelete(t *testing.T) {
	s := newTestSupervisor(t)

	v, err := s.Create(catalog.Config{Name: "sleeper", BinPath: "/bin/sleep", Args: []string{"30"}})
	require.NoError(t, err)
	require.NotEmpty(t, v.Config.ID)
	assert.Equal(t, Stopped, v.State)

	got, err := s.Get(v.Config.ID)
	require.NoError(t, err)
	assert.Equal(t, v.Config.ID, got.Config.ID)

	list := s.List()
	require.Len(t, list, 1)

	require.NoError(t, s.Delete(v.Config.ID))
	_, err = s.Get(v.Config.ID)
	assert.Error(t, err)
}

func TestCreateRejectsEmptyBinPath(t *testing.T) {
	s := newTestSupervisor(t)
	_, err := s.Create(catalog.Config{Name: "bad"})
	assert.Error(t, err)
}

func TestStartStopLifecycle(t *testing.T) {
	s := newTestSupervisor(t)
	v, err := s.Create(catalog.Config{Name: "sleeper", BinPath: "/bin/sleep", Args: []string{"30"}})
	require.NoError(t, err)
	id := v.Config.ID

	started, err := s.Start(id)
	require.NoError(t, err)
	assert.True(t, started.IsRunning)
	assert.Greater(t, started.PID, 0)

	_, err = s.Start(id)
	assert.Error(t, err, "starting an already-running process should fail")

	stopped, err := s.Stop(id)
	require.NoError(t, err)
	assert.Equal(t, Stopping, stopped.State)

	require.Eventually(t, func() bool {
		v, _ := s.Get(id)
		return v.State == Stopped
	}, 3*time.Second, 20*time.Millisecond)

	final, err := s.Get(id)
	require.NoError(t, err)
	assert.False(t, final.IsRunning)
	assert.NotNil(t, final.LastExitCode)
}

func TestStopOnStoppedIsNotRunning(t *testing.T) {
	s := newTestSupervisor(t)
	v, err := s.Create(catalog.Config{Name: "idle", BinPath: "/bin/true"})
	require.NoError(t, err)

	_, err = s.Stop(v.Config.ID)
	assert.Error(t, err)
	got, _ := s.Get(v.Config.ID)
	assert.Equal(t, Stopped, got.State)
}

func TestSpawnOfNonexistentBinaryCrashes(t *testing.T) {
	s := newTestSupervisor(t)
	v, err := s.Create(catalog.Config{Name: "ghost", BinPath: "/no/such/binary-xyz"})
	require.NoError(t, err)

	_, err = s.Start(v.Config.ID)
	assert.Error(t, err)

	got, err := s.Get(v.Config.ID)
	require.NoError(t, err)
	assert.Equal(t, Crashed, got.State)
}

func TestAutoRestartReachesMaxRestartsThenCrashed(t *testing.T) {
	s := newTestSupervisor(t)
	v, err := s.Create(catalog.Config{Name: "failer", BinPath: "/bin/false", AutoRestart: true})
	require.NoError(t, err)
	id := v.Config.ID

	_, err = s.Start(id)
	require.NoError(t, err)

	// Five backoffs of 0.5s+1s+2s+4s+8s add up to 15.5s before the final exit.
	require.Eventually(t, func() bool {
		got, _ := s.Get(id)
		return got.State == Crashed && got.RestartCount > MaxRestarts
	}, 20*time.Second, 50*time.Millisecond)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, MaxRestarts+1, got.RestartCount)

	stableCount := got.RestartCount
	time.Sleep(200 * time.Millisecond)
	got, _ = s.Get(id)
	assert.Equal(t, stableCount, got.RestartCount, "no further restarts once budget is exhausted")
}

func TestUpdateWhileRunningDoesNotRestartChild(t *testing.T) {
	s := newTestSupervisor(t)
	v, err := s.Create(catalog.Config{Name: "sleeper", BinPath: "/bin/sleep", Args: []string{"30"}})
	require.NoError(t, err)
	id := v.Config.ID

	started, err := s.Start(id)
	require.NoError(t, err)
	pid := started.PID

	newArgs := []string{"60"}
	updated, err := s.Update(id, catalog.Patch{Args: newArgs})
	require.NoError(t, err)
	assert.Equal(t, newArgs, updated.Config.Args)

	current, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, pid, current.PID, "the running child keeps its old pid until the next start")

	_, _ = s.Stop(id)
}

func TestDeleteUnknownIsNotFound(t *testing.T) {
	s := newTestSupervisor(t)
	err := s.Delete("does-not-exist")
	assert.Error(t, err)
}
