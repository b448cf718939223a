package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"opine/internal/config"
)

// PIDFilePath returns where the daemon records its process id.
func PIDFilePath(cfg *config.Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "opined.pid")
}

// ReadPID parses the daemon pid file. A missing file reports pid 0
// with no error.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pidStr := strings.TrimSpace(string(data))
	if pidStr == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q holds %q, not a pid", path, pidStr)
	}
	return pid, nil
}

// ProcessAlive probes whether the pid names a live process this user
// can signal.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// ProcessInfo reports whether the daemon process recorded in the pid
// file is still alive.
func ProcessInfo(pidPath string) (bool, int, error) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return false, 0, err
	}
	if pid == 0 {
		return false, 0, nil
	}
	return ProcessAlive(pid), pid, nil
}

// StopProcess asks the daemon recorded in the pid file to shut down
// with SIGTERM and waits up to gracePeriod for it to exit. With force
// set, a process still alive after the grace period is killed. Returns
// the signaled pid; ErrDaemonNotRunning when no live process is found.
func StopProcess(pidPath string, gracePeriod time.Duration, force bool) (int, error) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return 0, err
	}
	if pid == 0 || !ProcessAlive(pid) {
		return 0, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to stop current process (pid %d)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !ProcessAlive(pid) {
			return pid, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !ProcessAlive(pid) {
		return pid, nil
	}
	if !force {
		return pid, fmt.Errorf("daemon process %d still running after %s", pid, gracePeriod)
	}
	if err := proc.Kill(); err != nil {
		return pid, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pid, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	return pid, nil
}
