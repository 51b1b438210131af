//go:build windows

package launch

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/loykin/openlist-service/internal/catalog"
)

const (
	createNewProcessGroup = 0x00000200
	createNoWindow        = 0x08000000
)

// configureSysProcAttr creates a new process group so the supervisor
// can later target it with GenerateConsoleCtrlEvent, matching the
// teacher's Windows sysattrs helper.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup | createNoWindow}
}

// buildElevatedCmd shells out to PowerShell's Start-Process -Verb
// RunAs per spec §4.3. The returned *exec.Cmd tracks the PowerShell
// launcher, not the elevated child; spec §9 documents the resulting
// PID-opacity limitation.
func buildElevatedCmd(cfg catalog.Config) *exec.Cmd {
	psCmd := buildStartProcessCommand(cfg)
	// #nosec G204 -- the PowerShell command line is built from an escaped, quoted argument list.
	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", psCmd)
}

func buildStartProcessCommand(cfg catalog.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Start-Process -FilePath %s -Verb RunAs -WindowStyle Hidden", quotePowerShellArg(cfg.BinPath))
	if len(cfg.Args) > 0 {
		quoted := make([]string, len(cfg.Args))
		for i, a := range cfg.Args {
			quoted[i] = quotePowerShellArg(a)
		}
		fmt.Fprintf(&b, " -ArgumentList @(%s)", strings.Join(quoted, ", "))
	}
	if cfg.WorkingDir != "" {
		fmt.Fprintf(&b, " -WorkingDirectory %s", quotePowerShellArg(cfg.WorkingDir))
	}
	return b.String()
}

// Signal is a best-effort analogue of POSIX signaling. sig==syscall.SIGTERM
// attempts a courteous Ctrl+Break to the process group; anything else
// terminates directly, since Windows has no generic signal delivery.
func Signal(pid int, sig syscall.Signal) error {
	if sig == syscall.SIGTERM {
		if err := sendCtrlBreak(pid); err == nil {
			return nil
		}
	}
	return terminateByPID(pid)
}

func Alive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer func() { _ = windows.CloseHandle(h) }()
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	const stillActive = 259
	return code == stillActive
}

func Terminate(pid int) error { return Signal(pid, syscall.SIGTERM) }

func Kill(pid int) error { return terminateByPID(pid) }

func sendCtrlBreak(pid int) error {
	const cCtrlBreakEvent = 1
	return windows.GenerateConsoleCtrlEvent(cCtrlBreakEvent, uint32(pid))
}

func terminateByPID(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		// TaskkillByPID is the elevated-launch fallback described in spec §9.
		return TaskkillByPID(pid)
	}
	defer func() { _ = windows.CloseHandle(h) }()
	return windows.TerminateProcess(h, 1)
}

// TaskkillByPID shells out to taskkill /PID <pid> /T /F for cases where
// OpenProcess fails to reach an elevated child, per spec §9.
func TaskkillByPID(pid int) error {
	// #nosec G204 -- pid is an int formatted by fmt, not attacker-controlled text.
	cmd := exec.Command("taskkill", "/PID", fmt.Sprintf("%d", pid), "/T", "/F")
	return cmd.Run()
}

// ensureExecutable is a no-op on Windows: there is no POSIX executable
// bit to repair, matching the original launcher's platform guard.
func ensureExecutable(string) error { return nil }
