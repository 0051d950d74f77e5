package procprovider

import "os"

// OSProvider answers identity and liveness questions using the real
// operating system process table.
type OSProvider struct{}

// CurrentProcessID returns os.Getpid().
func (OSProvider) CurrentProcessID() int32 {
	return int32(os.Getpid())
}

// IsAlive reports whether pid names a running process, via isProcessAlive
// which is implemented per-platform (os_provider_unix.go, os_provider_windows.go).
func (OSProvider) IsAlive(pid int32) bool {
	return isProcessAlive(pid)
}

var _ Provider = OSProvider{}
