//go:build !windows

package procprovider

import (
	"os"
	"syscall"
)

// isProcessAlive probes liveness with signal 0, which the kernel delivers
// to no one but still validates permission and existence of pid. os.FindProcess
// itself always succeeds on Unix, so it cannot be used alone.
func isProcessAlive(pid int32) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(int(pid))
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// ESRCH: no such process. EPERM: process exists but we can't signal it,
	// which still means it's alive.
	return err == syscall.EPERM
}
