package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const pidFileName = "waqt.pid"

func getPidFilePath(dir string) string {
	return filepath.Join(dir, pidFileName)
}

// WritePidFile writes the current process ID to the PID file in dir.
func WritePidFile(dir string) error {
	return os.WriteFile(getPidFilePath(dir), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPidFile returns the PID stored in dir. A missing file yields an
// error satisfying os.IsNotExist.
func ReadPidFile(dir string) (int, error) {
	data, err := os.ReadFile(getPidFilePath(dir))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}
	return pid, nil
}

func RemovePidFile(dir string) error {
	err := os.Remove(getPidFilePath(dir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
