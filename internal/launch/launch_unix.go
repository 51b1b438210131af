//go:build !windows

package launch

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/loykin/openlist-service/internal/catalog"
)

// configureSysProcAttr places the child in its own process group so
// Stop (spec §4.4) can signal the whole group rather than just the
// immediate child, matching the teacher's process.ConfigureCmd.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// buildElevatedCmd runs the binary through "sudo -n" per spec §4.3. If
// sudo requires a password it fails immediately (non-interactive),
// which the supervisor observes as an immediate Crashed transition.
func buildElevatedCmd(cfg catalog.Config) *exec.Cmd {
	args := append([]string{"-n", cfg.BinPath}, cfg.Args...)
	// #nosec G204 -- bin_path/args come from the operator's own catalog, validated at create/update time.
	return exec.Command("sudo", args...)
}

// Signal sends sig to the process group led by pid.
func Signal(pid int, sig unix.Signal) error {
	return unix.Kill(-pid, sig)
}

// Alive reports whether the process (or its group leader) can still be
// signaled, i.e. is still alive from the OS's point of view.
func Alive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

// Terminate sends SIGTERM to the process group.
func Terminate(pid int) error { return Signal(pid, unix.SIGTERM) }

// Kill sends SIGKILL to the process group.
func Kill(pid int) error { return Signal(pid, unix.SIGKILL) }

// ensureExecutable chmods binPath +x if it isn't already executable by
// its owner, mirroring the original launcher's habit of self-healing a
// freshly-extracted or copied binary rather than failing the spawn.
func ensureExecutable(binPath string) error {
	var st unix.Stat_t
	if err := unix.Stat(binPath, &st); err != nil {
		return err
	}
	if st.Mode&0o100 != 0 {
		return nil
	}
	return unix.Chmod(binPath, uint32(st.Mode|0o755))
}
