// Package env builds the environment a managed child process is
// spawned with: the supervisor's own OS environment, overridden by the
// process's own env_vars, with a pair of reserved identity variables
// injected so a value can reference the process's own id/name without
// the catalog author hardcoding it.
package env

import (
	"os"
	"strings"

	"github.com/loykin/openlist-service/internal/catalog"
)

type Var map[string]string

// reservedPrefix marks the builtin identity variables Merge injects.
// A catalog entry's own env_vars can reference them via ${...} but
// cannot override their value.
const reservedPrefix = "OPENLIST_PROCESS_"

// Env caches the supervisor's own OS environment as the base layer that
// every managed process's env_vars is merged on top of.
type Env struct {
	env Var
}

func New() *Env {
	return &Env{}
}

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			v := kv[i+1:]
			if k == "" {
				continue
			}
			base[k] = v
		}
	}
	e.env = base
}

// Merge composes base = OS env (or cached), then applies cfg.EnvVars
// overrides, then injects OPENLIST_PROCESS_ID/NAME so a value can
// reference the process's own identity, then expands ${VAR} references
// against the composed map. Returns the environment slice in "K=V"
// form suitable for exec.Cmd.Env.
func (e *Env) Merge(cfg catalog.Config) []string {
	if e.env == nil {
		e.FromOS()
	}
	m := make(Var, len(e.env)+len(cfg.EnvVars)+2)
	for k, v := range e.env {
		m[k] = v
	}
	for k, v := range cfg.EnvVars {
		if k == "" || strings.HasPrefix(k, reservedPrefix) {
			continue
		}
		m[k] = v
	}
	m[reservedPrefix+"ID"] = cfg.ID
	m[reservedPrefix+"NAME"] = cfg.Name

	expanded := make(Var, len(m))
	for k, v := range m {
		expanded[k] = expand(v, m)
	}
	out := make([]string, 0, len(expanded))
	for k, v := range expanded {
		if k == "" {
			continue
		}
		out = append(out, k+"="+v)
	}
	return out
}

func expand(s string, m Var) string {
	res := s
	for k, v := range m {
		res = strings.ReplaceAll(res, "${"+k+"}", v)
	}
	return res
}
