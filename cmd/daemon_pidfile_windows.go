//go:build windows

package cmd

import (
	"golang.org/x/sys/windows"
)

// isProcessRunning opens pid with SYNCHRONIZE access, the minimum needed
// to see that it exists.
func isProcessRunning(pid int) bool {
	handle, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return false
	}
	windows.CloseHandle(handle)
	return true
}
