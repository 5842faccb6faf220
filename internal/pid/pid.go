package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/ressmon/internal/errors"
)

const (
	pidFile = "ressmon.pid"
)

// Path returns the PID file location, in $XDG_RUNTIME_DIR when set.
func Path() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}

	return filepath.Join(dir, pidFile)
}

// Write writes the current process ID to a PID file. It fails with
// ErrAlreadyRunning when the file names another live process. A stale or
// unreadable file is replaced.
func Write() error {
	errFactory := errors.New()
	pid := os.Getpid()
	path := Path()

	if bytes, err := os.ReadFile(path); err == nil {
		if other, err := strconv.Atoi(strings.TrimSpace(string(bytes))); err == nil && other != pid && isRunning(other) {
			return errFactory.WithData(errors.ErrAlreadyRunning, other)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func Remove() error {
	errFactory := errors.New()
	path := Path()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func isRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
