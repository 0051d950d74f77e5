//go:build windows

package procprovider

import "os"

// isProcessAlive on Windows has no signal-0 equivalent; os.FindProcess
// itself calls OpenProcess and fails if pid does not name a running
// process, so its error is the liveness signal.
func isProcessAlive(pid int32) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(int(pid))
	return err == nil
}
