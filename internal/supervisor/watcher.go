package supervisor

import (
	"errors"
	"os/exec"
	"time"

	"github.com/loykin/openlist-service/internal/metrics"
)

// watch blocks on the child's exit primitive and posts the result back to
// the Supervisor's event loop. It never touches s.mu directly, matching
// the Design Notes: watcher lifetime is represented as an explicit
// message channel rather than a re-entrant call, to avoid deadlocking
// with the catalog mutex.
func (s *Supervisor) watch(id string, gen uint64, h interface{ Wait() error }) {
	err := h.Wait()
	s.events <- exitEvent{id: id, gen: gen, exitCode: exitCodeOf(err)}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func (s *Supervisor) runEventLoop() {
	for ev := range s.events {
		s.handleExit(ev)
	}
}

// handleExit applies the auto-restart policy described in spec §4.4.
func (s *Supervisor) handleExit(ev exitEvent) {
	s.mu.Lock()
	e, ok := s.entries[ev.id]
	if !ok || e.rt.watcherGen != ev.gen {
		// Stale watcher: the entry was deleted, or a newer start
		// already superseded this run.
		s.mu.Unlock()
		return
	}

	prevState := e.rt.State
	exitCode := ev.exitCode
	e.rt.PID = 0
	e.rt.StartedAt = 0
	e.rt.LastExitCode = &exitCode
	e.rt.handle = nil
	cfg := e.cfg

	if prevState == Stopping {
		e.rt.State = Stopped
		e.rt.RestartCount = 0
		e.rt.restartWindow = 0
		s.mu.Unlock()
		metrics.SetCurrentState(ev.id, string(Stopped))
		s.refreshRunningInstances()
		if s.rec != nil {
			s.rec.RecordEvent(ev.id, cfg.Name, "stop", &exitCode)
		}
		return
	}

	// prevState == Running: an unexpected exit.
	if !cfg.AutoRestart {
		e.rt.State = Crashed
		s.mu.Unlock()
		s.log.Warn("process exited without auto_restart", "id", ev.id, "name", cfg.Name, "exit_code", exitCode)
		metrics.IncCrash(ev.id)
		metrics.SetCurrentState(ev.id, string(Crashed))
		s.refreshRunningInstances()
		if s.rec != nil {
			s.rec.RecordEvent(ev.id, cfg.Name, "crash", &exitCode)
		}
		return
	}

	now := time.Now().Unix()
	if e.rt.restartWindow != 0 && now-e.rt.restartWindow > 60 {
		e.rt.RestartCount = 0
		e.rt.restartWindow = 0
	}
	e.rt.RestartCount++
	if e.rt.restartWindow == 0 {
		e.rt.restartWindow = now
	}
	if e.rt.RestartCount > MaxRestarts {
		e.rt.State = Crashed
		s.mu.Unlock()
		s.log.Warn("giving up after max restarts", "id", ev.id, "name", cfg.Name, "restart_count", e.rt.RestartCount)
		metrics.IncCrash(ev.id)
		metrics.SetCurrentState(ev.id, string(Crashed))
		s.refreshRunningInstances()
		if s.rec != nil {
			s.rec.RecordEvent(ev.id, cfg.Name, "crash", &exitCode)
		}
		return
	}
	e.rt.State = Crashed // transient, superseded by startInternal once the backoff fires
	restartCount := e.rt.RestartCount
	s.mu.Unlock()

	metrics.IncRestart(ev.id)
	s.refreshRunningInstances()
	if s.rec != nil {
		s.rec.RecordEvent(ev.id, cfg.Name, "restart", &exitCode)
	}
	backoff := restartBackoff(restartCount)
	time.AfterFunc(backoff, func() {
		if _, err := s.startInternal(ev.id, false); err != nil {
			s.log.Warn("auto-restart failed", "id", ev.id, "error", err)
		}
	})
}
