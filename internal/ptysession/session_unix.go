//go:build !windows

package ptysession

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so SIGTERM/SIGKILL
// can be delivered to the whole group (the CLI may itself fork helpers).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateProcessGroup(cmd *exec.Cmd) error {
	return signalProcessGroup(cmd, syscall.SIGTERM)
}

func killProcessGroup(cmd *exec.Cmd) error {
	return signalProcessGroup(cmd, syscall.SIGKILL)
}

func signalProcessGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		return syscall.Kill(cmd.Process.Pid, sig)
	}
	return nil
}
