package supervisor

import (
	"github.com/loykin/openlist-service/internal/catalog"
	"github.com/loykin/openlist-service/internal/launch"
)

// Runtime is the in-memory ProcessRuntime: never persisted, torn down on
// delete, created in the Stopped state when its config is loaded at
// construction or added by Create.
type Runtime struct {
	State         State
	PID           int
	StartedAt     int64
	RestartCount  int
	LastExitCode  *int
	DetectedBy    string
	restartWindow int64 // unix seconds of the first restart in the current window, 0 if none
	handle        *launch.Handle
	watcherGen    uint64 // incremented on every successful start so stale watchers self-cancel
}

// View is the read-only projection the HTTP layer and CLI ever see:
// config plus runtime, always handed out by value.
type View struct {
	Config       catalog.Config `json:"config"`
	IsRunning    bool           `json:"is_running"`
	State        State          `json:"state"`
	PID          int            `json:"pid,omitempty"`
	StartedAt    int64          `json:"started_at,omitempty"`
	RestartCount int            `json:"restart_count"`
	LastExitCode *int           `json:"last_exit_code"`
}

func viewOf(cfg catalog.Config, rt Runtime) View {
	return View{
		Config:       cfg,
		IsRunning:    rt.State == Running || rt.State == Stopping,
		State:        rt.State,
		PID:          rt.PID,
		StartedAt:    rt.StartedAt,
		RestartCount: rt.RestartCount,
		LastExitCode: rt.LastExitCode,
	}
}

// Stats summarizes the registry for GET /api/v1/status.
type Stats struct {
	Total    int           `json:"total"`
	ByState  map[State]int `json:"by_state"`
	UptimeS  int64         `json:"uptime_seconds"`
}
