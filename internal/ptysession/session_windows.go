//go:build windows

package ptysession

import "os/exec"

// Windows has no PTY/process-group semantics matching the Unix model; the
// Claude-CLI strategy that depends on this package reports not-installed on
// this platform rather than pretending to support it.
func setProcessGroup(cmd *exec.Cmd) {}

func terminateProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func killProcessGroup(cmd *exec.Cmd) error {
	return terminateProcessGroup(cmd)
}
