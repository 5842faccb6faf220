package pid_test

import (
	"os"
	"strconv"
	"testing"

	"codeberg.org/mutker/ressmon/internal/errors"
	"codeberg.org/mutker/ressmon/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	require.NoError(t, pid.Write())

	bytes, err := os.ReadFile(pid.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(bytes))

	require.NoError(t, pid.Write(), "own PID file is not a conflict")

	require.NoError(t, pid.Remove())
	_, err = os.Stat(pid.Path())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, pid.Remove(), "removing a missing file is a no-op")
}

func TestWriteRefusesLiveProcess(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	require.NoError(t, os.WriteFile(pid.Path(), []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := pid.Write()
	require.Error(t, err)
	code, ok := errors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrAlreadyRunning, code)
}

func TestWriteReplacesGarbage(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	require.NoError(t, os.WriteFile(pid.Path(), []byte("not a pid\n"), 0o600))

	require.NoError(t, pid.Write())

	bytes, err := os.ReadFile(pid.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(bytes))
}
