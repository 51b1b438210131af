// Package catalog holds the persisted process catalog: the set of
// ProcessConfig entries a supervisor knows about, and the durable
// on-disk store that survives supervisor restarts.
package catalog

import (
	"fmt"
	"time"
)

// Config is the persisted descriptor for a single managed process.
// See spec §3 for field semantics and invariants.
type Config struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	BinPath     string            `json:"bin_path"`
	Args        []string          `json:"args"`
	LogFile     string            `json:"log_file"`
	WorkingDir  string            `json:"working_dir,omitempty"`
	EnvVars     map[string]string `json:"env_vars,omitempty"`
	AutoRestart bool              `json:"auto_restart"`
	RunAsAdmin  bool              `json:"run_as_admin"`
	Priority    int               `json:"priority,omitempty"`
	Schedule    string            `json:"schedule,omitempty"`
	CreatedAt   int64             `json:"created_at"`
	UpdatedAt   int64             `json:"updated_at"`
}

// Validate checks the invariants spec §3 requires of a Config in
// isolation (uniqueness against the rest of the catalog is checked by
// the caller, since it requires catalog-wide context).
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if c.BinPath == "" {
		return fmt.Errorf("bin_path must not be empty")
	}
	if c.UpdatedAt < c.CreatedAt {
		return fmt.Errorf("updated_at must not precede created_at")
	}
	return nil
}

// Clone returns a deep copy so callers never share mutable state with
// the catalog's internal copy.
func (c Config) Clone() Config {
	cp := c
	if c.Args != nil {
		cp.Args = append([]string(nil), c.Args...)
	}
	if c.EnvVars != nil {
		cp.EnvVars = make(map[string]string, len(c.EnvVars))
		for k, v := range c.EnvVars {
			cp.EnvVars[k] = v
		}
	}
	return cp
}

// Patch carries only the fields an update request wishes to change.
// A nil pointer/slice means "leave unchanged"; ID and CreatedAt are
// deliberately absent since they are immutable per spec §4.4.
type Patch struct {
	Name        *string
	BinPath     *string
	Args        []string
	LogFile     *string
	WorkingDir  *string
	EnvVars     map[string]string
	AutoRestart *bool
	RunAsAdmin  *bool
	Priority    *int
	Schedule    *string
}

// Apply mutates c in place according to non-nil fields of p, then
// bumps UpdatedAt. It does not persist or validate; callers do both.
func (p Patch) Apply(c *Config, now time.Time) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.BinPath != nil {
		c.BinPath = *p.BinPath
	}
	if p.Args != nil {
		c.Args = append([]string(nil), p.Args...)
	}
	if p.LogFile != nil {
		c.LogFile = *p.LogFile
	}
	if p.WorkingDir != nil {
		c.WorkingDir = *p.WorkingDir
	}
	if p.EnvVars != nil {
		c.EnvVars = make(map[string]string, len(p.EnvVars))
		for k, v := range p.EnvVars {
			c.EnvVars[k] = v
		}
	}
	if p.AutoRestart != nil {
		c.AutoRestart = *p.AutoRestart
	}
	if p.RunAsAdmin != nil {
		c.RunAsAdmin = *p.RunAsAdmin
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.Schedule != nil {
		c.Schedule = *p.Schedule
	}
	c.UpdatedAt = now.Unix()
}
