// Package cronsched supplements the catalog's optional Schedule field:
// a process that carries a cron expression runs on that schedule
// instead of staying continuously up, grounded on the teacher's
// internal/cronjob wrapper around robfig/cron/v3.
package cronsched

import (
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/loykin/openlist-service/internal/apierr"
	"github.com/loykin/openlist-service/internal/supervisor"
)

// Scheduler fires Supervisor.Start for every catalog entry whose
// current config carries a non-empty Schedule.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	sup     *supervisor.Supervisor
	log     *slog.Logger
	entries map[string]cron.EntryID
}

// New builds a Scheduler around an already-constructed Supervisor.
// Call Sync once to install entries, then Start.
func New(sup *supervisor.Supervisor, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		sup:     sup,
		log:     log,
		entries: make(map[string]cron.EntryID),
	}
}

// Sync reconciles cron entries against the supervisor's current view,
// adding entries for newly-scheduled processes and removing entries
// for ones whose schedule was cleared or that were deleted.
func (s *Scheduler) Sync(views []supervisor.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(views))
	for _, v := range views {
		if v.Config.Schedule == "" {
			continue
		}
		id := v.Config.ID
		seen[id] = true
		if _, ok := s.entries[id]; ok {
			continue
		}
		entryID, err := s.cron.AddFunc(v.Config.Schedule, func() { s.trigger(id) })
		if err != nil {
			s.log.Warn("invalid schedule, not scheduling", "id", id, "schedule", v.Config.Schedule, "error", err)
			continue
		}
		s.entries[id] = entryID
	}
	for id, entryID := range s.entries {
		if !seen[id] {
			s.cron.Remove(entryID)
			delete(s.entries, id)
		}
	}
}

func (s *Scheduler) trigger(id string) {
	if _, err := s.sup.Start(id); err != nil {
		if ae := apierr.As(err); ae == nil || ae.Kind != apierr.KindAlreadyRunning {
			s.log.Warn("scheduled start failed", "id", id, "error", err)
		}
	}
}

// Start begins firing scheduled entries in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels the background dispatcher. Already-running children are
// left alone; the Supervisor's own shutdown handles those.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }

// Scheduled reports whether id currently has an active cron entry.
func (s *Scheduler) Scheduled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}
