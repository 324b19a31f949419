package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatcher_StartStop(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".yui"), 0755))
	require.NoError(t, os.WriteFile(Path(home), []byte("logging:\n  debug_mode: false\n"), 0644))

	w, err := NewWatcher(home)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Start(), "second start must be a no-op")

	// Touch the file; the watcher must tolerate events while running.
	require.NoError(t, os.WriteFile(Path(home), []byte("logging:\n  debug_mode: true\n"), 0644))

	w.Stop()
	w.Stop() // idempotent
}

func TestWatcher_MissingDirFailsOnStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	require.Error(t, w.Start())
	// Stop after a failed Start must not hang.
	w.Stop()
}
