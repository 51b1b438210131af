// Package launch implements the Child Launcher (spec §4.3): spawning a
// managed process either normally or through a platform-specific
// elevation helper, with stdout/stderr redirected to its log file.
package launch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/loykin/openlist-service/internal/catalog"
)

// Reason classifies why a spawn failed, matching spec §4.3's failure modes.
type Reason string

const (
	ReasonBinaryNotFound    Reason = "binary_not_found"
	ReasonWorkingDirMissing Reason = "working_dir_missing"
	ReasonPermissionDenied  Reason = "permission_denied"
	ReasonUnknown          Reason = "unknown"
)

// SpawnError carries a Reason alongside the underlying OS error.
type SpawnError struct {
	Reason Reason
	Err    error
}

func (e *SpawnError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Handle is the opaque child handle spec §3 calls ProcessRuntime.child_handle.
// For a normal spawn it wraps the real child; for an elevated spawn on
// Windows it wraps the PowerShell launcher process (see spec §9).
type Handle struct {
	cmd *exec.Cmd
	pid int
}

// PID returns the tracked process id (the launcher's, for elevated
// Windows spawns; see spec §9's documented limitation).
func (h *Handle) PID() int { return h.pid }

// Wait blocks until the tracked process exits and returns its error
// (nil on a clean exit), mirroring exec.Cmd.Wait.
func (h *Handle) Wait() error {
	return h.cmd.Wait()
}

// Spawn launches cfg according to spec §4.3, redirecting stdout/stderr
// to logFile (already opened for append by the caller via logsink).
func Spawn(cfg catalog.Config, mergedEnv []string, logFile *os.File) (*Handle, error) {
	if strings.TrimSpace(cfg.BinPath) == "" {
		return nil, &SpawnError{Reason: ReasonBinaryNotFound, Err: errors.New("bin_path is empty")}
	}
	if cfg.WorkingDir != "" {
		info, err := os.Stat(cfg.WorkingDir)
		if err != nil || !info.IsDir() {
			return nil, &SpawnError{Reason: ReasonWorkingDirMissing, Err: fmt.Errorf("working_dir %q is not a usable directory", cfg.WorkingDir)}
		}
	}
	if err := ensureExecutable(cfg.BinPath); err != nil && !os.IsNotExist(err) {
		return nil, &SpawnError{Reason: ReasonPermissionDenied, Err: fmt.Errorf("ensure executable permissions: %w", err)}
	}

	var cmd *exec.Cmd
	if cfg.RunAsAdmin {
		cmd = buildElevatedCmd(cfg)
	} else {
		if _, err := exec.LookPath(cfg.BinPath); err != nil {
			if _, statErr := os.Stat(cfg.BinPath); statErr != nil {
				return nil, &SpawnError{Reason: ReasonBinaryNotFound, Err: err}
			}
		}
		// #nosec G204 -- bin_path/args come from the operator's own catalog, validated at create/update time.
		cmd = exec.Command(cfg.BinPath, cfg.Args...)
	}

	if cfg.WorkingDir != "" {
		cmd.Dir = cfg.WorkingDir
	}
	if len(mergedEnv) > 0 {
		cmd.Env = mergedEnv
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, classifyStartErr(err)
	}
	return &Handle{cmd: cmd, pid: cmd.Process.Pid}, nil
}

func classifyStartErr(err error) *SpawnError {
	if errors.Is(err, os.ErrNotExist) {
		return &SpawnError{Reason: ReasonBinaryNotFound, Err: err}
	}
	if errors.Is(err, os.ErrPermission) {
		return &SpawnError{Reason: ReasonPermissionDenied, Err: err}
	}
	return &SpawnError{Reason: ReasonUnknown, Err: err}
}

// quotePowerShellArg wraps a single argument in a PowerShell
// single-quoted literal for the elevated Start-Process command line,
// doubling any embedded single quotes. Normal spawns pass arguments to
// exec.Command directly and never go through a shell.
func quotePowerShellArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
