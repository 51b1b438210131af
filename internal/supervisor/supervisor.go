package supervisor

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/openlist-service/internal/apierr"
	"github.com/loykin/openlist-service/internal/catalog"
	"github.com/loykin/openlist-service/internal/env"
	"github.com/loykin/openlist-service/internal/launch"
	"github.com/loykin/openlist-service/internal/logsink"
	"github.com/loykin/openlist-service/internal/metrics"
)

// Recorder is the optional audit-trail hook (see internal/history):
// every start, stop, crash and restart is reported here in addition to
// the in-memory Runtime, so it stays purely additive telemetry.
type Recorder interface {
	RecordEvent(id, name, kind string, exitCode *int)
}

// Supervisor owns the Catalog and Registry behind a single mutex,
// launches and monitors children through internal/launch, and persists
// catalog mutations through internal/catalog.Store.
type Supervisor struct {
	mu       sync.Mutex
	cat      *catalog.Catalog
	store    *catalog.Store
	entries  map[string]*entry
	log      *slog.Logger
	env      *env.Env
	logDir   string
	rec      Recorder
	events   chan exitEvent
	started  time.Time
	stopOnce sync.Once
}

type exitEvent struct {
	id       string
	gen      uint64
	exitCode int
}

// Option configures a Supervisor at construction time.
type Option func(*Supervisor)

// WithRecorder attaches an optional history/audit sink.
func WithRecorder(r Recorder) Option {
	return func(s *Supervisor) { s.rec = r }
}

// WithLogDir overrides the directory ProcessConfig.LogFile defaults into
// when a config omits log_file.
func WithLogDir(dir string) Option {
	return func(s *Supervisor) { s.logDir = dir }
}

// New builds a Supervisor around an already-loaded Catalog and starts its
// event loop. Callers must call Shutdown when done.
func New(cat *catalog.Catalog, store *catalog.Store, log *slog.Logger, opts ...Option) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	s := &Supervisor{
		cat:     cat,
		store:   store,
		entries: make(map[string]*entry, cat.Len()),
		log:     log,
		env:     env.New(),
		events:  make(chan exitEvent, 64),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, cfg := range cat.List() {
		s.entries[cfg.ID] = &entry{cfg: cfg, rt: Runtime{State: Stopped}}
	}
	go s.runEventLoop()
	return s
}

func (s *Supervisor) defaultLogPath(id string) string {
	dir := s.logDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, id+".log")
}

// List returns a snapshot of every entry. No error path.
func (s *Supervisor) List() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]View, 0, len(s.entries))
	for _, id := range s.cat.IDs() {
		e := s.entries[id]
		if e == nil {
			continue
		}
		out = append(out, viewOf(e.cfg, e.rt))
	}
	return out
}

// Get returns a single entry's view.
func (s *Supervisor) Get(id string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return View{}, apierr.NotFound(id)
	}
	return viewOf(e.cfg, e.rt), nil
}

// refreshRunningInstances recomputes the running_instances gauge from
// the current registry. Called after every state transition that could
// change the count.
func (s *Supervisor) refreshRunningInstances() {
	s.mu.Lock()
	n := 0
	for _, e := range s.entries {
		if e.rt.State == Running {
			n++
		}
	}
	s.mu.Unlock()
	metrics.SetRunningInstances(n)
}

// Stats summarizes registry counts for GET /api/v1/status.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{ByState: make(map[State]int), UptimeS: int64(time.Since(s.started).Seconds())}
	for _, e := range s.entries {
		st.Total++
		st.ByState[e.rt.State]++
	}
	return st
}

// Create validates input, assigns identity/timestamps/defaults, installs
// a Stopped registry entry, and persists the catalog.
func (s *Supervisor) Create(input catalog.Config) (View, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, exists := s.entries[id]; exists {
		return View{}, apierr.AlreadyExists(id)
	}

	cfg := input
	cfg.ID = id
	cfg.CreatedAt = now.Unix()
	cfg.UpdatedAt = now.Unix()
	if cfg.Args == nil {
		cfg.Args = []string{}
	}
	if cfg.EnvVars == nil {
		cfg.EnvVars = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return View{}, apierr.InvalidConfig(err.Error())
	}

	s.cat.Put(cfg)
	if err := s.store.Save(s.cat); err != nil {
		s.cat.Delete(id)
		return View{}, apierr.PersistenceFailed(err)
	}
	e := &entry{cfg: cfg, rt: Runtime{State: Stopped}}
	s.entries[id] = e
	return viewOf(cfg, e.rt), nil
}

// Update applies patch fields present in the request; id/created_at stay
// immutable. A running child keeps executing under its old config until
// the next start.
func (s *Supervisor) Update(id string, patch catalog.Patch) (View, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return View{}, apierr.NotFound(id)
	}
	newCfg := e.cfg.Clone()
	patch.Apply(&newCfg, now)
	if err := newCfg.Validate(); err != nil {
		return View{}, apierr.InvalidConfig(err.Error())
	}

	old := e.cfg
	s.cat.Put(newCfg)
	if err := s.store.Save(s.cat); err != nil {
		s.cat.Put(old)
		return View{}, apierr.PersistenceFailed(err)
	}
	e.cfg = newCfg
	return viewOf(e.cfg, e.rt), nil
}

// Delete stops any live runtime (waiting up to the grace period) then
// removes both the Registry entry and the Catalog entry.
func (s *Supervisor) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return apierr.NotFound(id)
	}
	needsStop := e.rt.State == Running || e.rt.State == Starting || e.rt.State == Stopping
	pid := e.rt.PID
	s.mu.Unlock()

	if needsStop && pid > 0 {
		_ = launch.Terminate(pid)
		deadline := time.Now().Add(GracePeriodSeconds * time.Second)
		for time.Now().Before(deadline) && launch.Alive(pid) {
			time.Sleep(50 * time.Millisecond)
		}
		if launch.Alive(pid) {
			_ = launch.Kill(pid)
		}
	}

	s.mu.Lock()
	e, ok = s.entries[id]
	if !ok {
		s.mu.Unlock()
		return apierr.NotFound(id)
	}
	removed := e.cfg
	s.cat.Delete(id)
	if err := s.store.Save(s.cat); err != nil {
		s.cat.Put(removed)
		s.mu.Unlock()
		return apierr.PersistenceFailed(err)
	}
	delete(s.entries, id)
	s.mu.Unlock()
	s.refreshRunningInstances()
	metrics.ClearState(id)
	return nil
}

// Start transitions Stopped/Crashed to Starting, launches the child, and
// commits Running or Crashed depending on the outcome. explicit callers
// (the HTTP handler) get AlreadyRunning if the process is already active;
// the internal auto-restart path passes explicit=false and treats the
// same race as a benign no-op.
func (s *Supervisor) Start(id string) (View, error) {
	return s.startInternal(id, true)
}

func (s *Supervisor) startInternal(id string, explicit bool) (View, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return View{}, apierr.NotFound(id)
	}
	if e.rt.State != Stopped && e.rt.State != Crashed {
		v := viewOf(e.cfg, e.rt)
		s.mu.Unlock()
		if explicit {
			return v, apierr.AlreadyRunning(id)
		}
		return v, nil
	}
	e.rt.State = Starting
	e.rt.LastExitCode = nil
	if explicit {
		e.rt.RestartCount = 0
		e.rt.restartWindow = 0
	}
	cfg := e.cfg
	s.mu.Unlock()
	metrics.SetCurrentState(id, string(Starting))

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = s.defaultLogPath(id)
	}
	lf, openErr := logsink.OpenForAppend(logPath)
	if openErr != nil {
		return s.commitCrash(e, cfg, fmt.Errorf("open log file: %w", openErr))
	}

	mergedEnv := s.env.Merge(cfg)
	handle, spawnErr := launch.Spawn(cfg, mergedEnv, lf)
	_ = lf.Close()
	if spawnErr != nil {
		s.log.Warn("launch failed", "id", id, "name", cfg.Name, "error", spawnErr)
		return s.commitCrash(e, cfg, spawnErr)
	}

	s.mu.Lock()
	e.rt.State = Running
	e.rt.PID = handle.PID()
	e.rt.StartedAt = time.Now().Unix()
	e.rt.DetectedBy = "exec:pid"
	e.rt.handle = handle
	e.rt.watcherGen++
	gen := e.rt.watcherGen
	v := viewOf(e.cfg, e.rt)
	s.mu.Unlock()

	go s.watch(id, gen, handle)
	metrics.IncStart(id)
	metrics.SetCurrentState(id, string(Running))
	s.refreshRunningInstances()
	if s.rec != nil {
		s.rec.RecordEvent(id, cfg.Name, "start", nil)
	}
	return v, nil
}

func (s *Supervisor) commitCrash(e *entry, cfg catalog.Config, cause error) (View, error) {
	s.mu.Lock()
	e.rt.State = Crashed
	v := viewOf(e.cfg, e.rt)
	s.mu.Unlock()
	metrics.IncCrash(cfg.ID)
	metrics.SetCurrentState(cfg.ID, string(Crashed))
	s.refreshRunningInstances()
	if s.rec != nil {
		s.rec.RecordEvent(cfg.ID, cfg.Name, "crash", nil)
	}
	return v, apierr.LaunchFailed(cause)
}

// Stop signals Running → Stopping and escalates to a forced kill after
// the grace period if the child is still alive. Idempotent on an
// already-Stopping process; NotRunning on Stopped/Crashed.
func (s *Supervisor) Stop(id string) (View, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return View{}, apierr.NotFound(id)
	}
	switch e.rt.State {
	case Stopped, Crashed:
		v := viewOf(e.cfg, e.rt)
		s.mu.Unlock()
		return v, apierr.NotRunning(id)
	case Stopping:
		v := viewOf(e.cfg, e.rt)
		s.mu.Unlock()
		return v, nil
	}
	e.rt.State = Stopping
	e.rt.RestartCount = 0
	e.rt.restartWindow = 0
	pid := e.rt.PID
	v := viewOf(e.cfg, e.rt)
	s.mu.Unlock()

	metrics.SetCurrentState(id, string(Stopping))
	s.refreshRunningInstances()
	if pid > 0 {
		if err := launch.Terminate(pid); err != nil {
			s.log.Warn("terminate failed", "id", id, "pid", pid, "error", err)
		}
		go s.escalateAfterGrace(pid)
	}
	metrics.IncStop(id)
	return v, nil
}

func (s *Supervisor) escalateAfterGrace(pid int) {
	time.Sleep(GracePeriodSeconds * time.Second)
	if launch.Alive(pid) {
		_ = launch.Kill(pid)
	}
}

// Logs delegates to the log sink for the process's configured (or
// default) log file.
func (s *Supervisor) Logs(id string, lines int) ([]string, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return nil, apierr.NotFound(id)
	}
	path := e.cfg.LogFile
	if path == "" {
		path = s.defaultLogPath(id)
	}
	s.mu.Unlock()
	return logsink.Tail(path, lines)
}

// Shutdown stops every Running/Starting child in parallel, waits for the
// event loop to drain, persists the catalog, and returns.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if e.rt.State == Running || e.rt.State == Starting {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = s.Stop(id)
		}(id)
	}
	wg.Wait()

	deadline := time.Now().Add((GracePeriodSeconds + 2) * time.Second)
	for time.Now().Before(deadline) {
		if !s.anyStopping() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	s.mu.Lock()
	_ = s.store.Save(s.cat)
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.events) })
}

func (s *Supervisor) anyStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.rt.State == Stopping {
			return true
		}
	}
	return false
}

// AutoStart issues Start for every loaded config in ascending Priority
// order, per spec §4.4's boot behavior, skipping configs that carry a
// Schedule (those are driven by internal/cronsched instead). Individual
// failures are logged and do not abort boot.
func (s *Supervisor) AutoStart() {
	s.mu.Lock()
	ids := s.cat.IDs()
	type prioritized struct {
		id       string
		priority int
	}
	ordered := make([]prioritized, 0, len(ids))
	for _, id := range ids {
		if e := s.entries[id]; e != nil {
			ordered = append(ordered, prioritized{id: id, priority: e.cfg.Priority})
		}
	}
	s.mu.Unlock()

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].priority < ordered[i].priority {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	for _, p := range ordered {
		s.mu.Lock()
		e := s.entries[p.id]
		scheduled := e != nil && e.cfg.Schedule != ""
		s.mu.Unlock()
		if scheduled {
			continue
		}
		if _, err := s.Start(p.id); err != nil {
			s.log.Warn("auto-start failed", "id", p.id, "error", err)
		}
	}
}
