//go:build !windows

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// SetNewPG puts the child in its own process group so it survives keeper exit.
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// IsProcessRunning checks whether the process with the given PID is alive.
func IsProcessRunning(pid int) (bool, error) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}

	// signal 0 probes for existence without delivering anything
	err = process.Signal(syscall.Signal(0))
	if err != nil {
		return false, fmt.Errorf("process with PID %d is not running: %v", pid, err)
	}

	return true, nil
}

// KillProcessByPID sends SIGTERM to the process with the given PID.
func KillProcessByPID(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process with PID %d: %v", pid, err)
	}

	return nil
}
