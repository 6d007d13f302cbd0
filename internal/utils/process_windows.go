//go:build windows

package utils

import (
	"fmt"
	"os/exec"
	"syscall"
	"unsafe"
)

const (
	PROCESS_TERMINATE         = 0x0001
	PROCESS_QUERY_INFORMATION = 0x0400
	STILL_ACTIVE              = 259
)

var (
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess        = kernel32.NewProc("OpenProcess")
	procCloseHandle        = kernel32.NewProc("CloseHandle")
	procTerminateProcess   = kernel32.NewProc("TerminateProcess")
	procGetExitCodeProcess = kernel32.NewProc("GetExitCodeProcess")
)

// SetNewPG puts the child in its own process group so it survives keeper exit.
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// IsProcessRunning checks whether the process with the given PID is alive
// by querying its exit code: STILL_ACTIVE means the process is running.
func IsProcessRunning(pid int) (bool, error) {
	handle, _, err := procOpenProcess.Call(
		uintptr(PROCESS_QUERY_INFORMATION),
		uintptr(0),
		uintptr(pid),
	)

	if handle == 0 {
		// failing to open the handle usually means the process is gone
		return false, fmt.Errorf("failed to open process with PID %d: %v", pid, err)
	}
	defer procCloseHandle.Call(handle)

	var exitCode uint32
	ret, _, err := procGetExitCodeProcess.Call(
		handle,
		uintptr(unsafe.Pointer(&exitCode)),
	)

	if ret == 0 {
		return false, fmt.Errorf("failed to get exit code for process with PID %d: %v", pid, err)
	}

	return exitCode == STILL_ACTIVE, nil
}

// KillProcessByPID terminates the process with the given PID.
func KillProcessByPID(pid int) error {
	handle, _, err := procOpenProcess.Call(
		uintptr(PROCESS_TERMINATE),
		uintptr(0),
		uintptr(pid),
	)

	if handle == 0 {
		return fmt.Errorf("failed to open process with PID %d: %v", pid, err)
	}
	defer procCloseHandle.Call(handle)

	ret, _, err := procTerminateProcess.Call(
		handle,
		uintptr(1),
	)

	if ret == 0 {
		return fmt.Errorf("failed to terminate process with PID %d: %v", pid, err)
	}

	return nil
}
